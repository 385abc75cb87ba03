package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ratebot/internal/bot"
	"github.com/desertthunder/ratebot/internal/repositories"
	"github.com/desertthunder/ratebot/internal/services"
	"github.com/desertthunder/ratebot/internal/shared"
	"github.com/desertthunder/ratebot/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database is opened lazily by [Runner.open] so commands that never touch
// the store (setup, help) do not create one.
type Runner struct {
	config  *shared.Config
	spotify services.TrackProvider
	slack   bot.Chat
	logger  *log.Logger
	output  io.Writer
	db      *sql.DB
	store   *repositories.Store
	openURL func(url string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Spotify services.TrackProvider // nil when no Spotify credentials are configured
	Slack   bot.Chat               // nil when no bot token is configured
	DB      *sql.DB                // an already migrated database, used instead of Config.Database
	Logger  *log.Logger
	Output  io.Writer
	OpenURL func(url string) error // browser launcher, defaults to [shared.OpenURL]
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenURL
	}

	r := &Runner{
		config:  opts.Config,
		spotify: opts.Spotify,
		slack:   opts.Slack,
		logger:  opts.Logger,
		output:  opts.Output,
		db:      opts.DB,
		openURL: opts.OpenURL,
	}
	if opts.DB != nil {
		r.store = repositories.NewStore(opts.DB)
	}
	return r
}

// SetLogger replaces the logger used by commands.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, leaderboardCommand, unratedCommand, statsCommand, tracksCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// open returns the rating store, opening and migrating the configured database on first use.
func (r *Runner) open() (*repositories.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	path := r.config.Database.Path
	r.logger.Debug("opening database", "path", path)

	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	applied, err := shared.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if applied > 0 {
		r.logger.Info("applied migrations", "count", applied)
	}

	r.db = db
	r.store = repositories.NewStore(db)
	return r.store, nil
}

// Close releases the database opened by [Runner.open].
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db, r.store = nil, nil
	return err
}

func (r *Runner) aggregator(store *repositories.Store) *tasks.Aggregator {
	return tasks.NewAggregator(store, tasks.AggregatorOpts{
		LeaderboardSize: r.config.Bot.LeaderboardSize,
		TopCount:        r.config.Bot.TopCount,
	})
}

// dispatcher builds the bot over the store. Requires a Slack client.
func (r *Runner) dispatcher(store *repositories.Store) (*bot.Dispatcher, error) {
	if r.slack == nil {
		return nil, fmt.Errorf("%w: slack bot token not configured", shared.ErrMissingCredentials)
	}

	var provider tasks.TrackProvider
	if r.spotify != nil {
		provider = r.spotify
	}

	ratings := tasks.NewRatingEngine(store, r.logger)
	return bot.NewDispatcher(r.slack, provider, ratings, r.aggregator(store), r.logger), nil
}

// displayName resolves a user id through Slack when available, falling back to the id.
func (r *Runner) displayName(ctx context.Context, user string) string {
	if r.slack == nil {
		return user
	}
	name, err := r.slack.UserName(ctx, user)
	if err != nil {
		r.logger.Debug("could not resolve user name", "user", user, "err", err)
		return user
	}
	return name
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
