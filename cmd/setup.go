package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ratebot/internal/shared"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.ResolveConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.ResolveConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	applied, err := shared.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Database ready: %s (%d migrations applied)\n", config.Database.Path, applied)
	r.writePlainln("Next: fill in the Slack and Spotify credentials in %s, then run 'ratebot serve'", configPath)
	return nil
}

// SetupStatus lists the applied schema migrations.
func (r *Runner) SetupStatus(ctx context.Context, cmd *cli.Command) error {
	store, err := r.open()
	if err != nil {
		return err
	}

	applied, err := shared.MigrationStatus(store.DB())
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(applied, true)
	}

	r.writePlainHeader(fmt.Sprintf("Applied migrations (%d)", len(applied)))
	for _, m := range applied {
		r.writePlain("%04d  %s\n", m.Version, m.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// SetupRollback reverts the most recently applied migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	store, err := r.open()
	if err != nil {
		return err
	}

	if err := shared.RollbackMigration(store.DB()); err != nil {
		return err
	}

	r.logger.Warn("rolled back the latest migration")
	return r.writePlain("✓ Rolled back the latest migration\n")
}
