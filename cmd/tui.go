package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ratebot/internal/shared"
	"github.com/desertthunder/ratebot/internal/tasks"
	"github.com/desertthunder/ratebot/internal/ui"
)

// TUI launches the interactive leaderboard browser.
//
// Metadata refresh from the browser is only offered when Spotify is configured.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/ratebot-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	store, err := r.open()
	if err != nil {
		return err
	}

	var refresher ui.Refresher
	if r.spotify != nil {
		refresher = tasks.NewBackfiller(r.spotify, store, r.logger)
	}

	model := ui.NewModel(ctx, r.aggregator(store), refresher, int(cmd.Int("count")))
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
