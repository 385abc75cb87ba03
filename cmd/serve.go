package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ratebot/internal/server"
	"github.com/desertthunder/ratebot/internal/shared"
)

// Serve runs the HTTP endpoints Slack delivers events and slash commands to.
//
// Blocks until SIGINT or SIGTERM, then drains in-flight requests.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: spotify client credentials not configured", shared.ErrMissingCredentials)
	}

	store, err := r.open()
	if err != nil {
		return err
	}

	if tracks, artists, reactions, err := store.Stats.Totals(); err == nil {
		r.logger.Info("store loaded", "tracks", tracks, "artists", artists, "reactions", reactions)
	} else {
		r.logger.Warn("failed to count stored rows", "error", err)
	}

	dispatcher, err := r.dispatcher(store)
	if err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := server.NewRouter(dispatcher, store.DB(), r.logger)
	for _, p := range router.Paths() {
		r.logger.Debug("route registered", "path", p)
	}

	return server.Start(ctx, addr, router, r.logger)
}
