// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Create the config file if missing, initialize the database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   defaultConfigPath,
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "status",
				Usage: "List the applied schema migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the most recently applied migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// serveCommand runs the Slack events and slash command endpoints.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve Slack events, slash commands, health checks and metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port from config)",
			},
		},
		Action: r.Serve,
	}
}

// leaderboardCommand prints or posts the top rated tracks.
func leaderboardCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "leaderboard",
		Aliases: []string{"top"},
		Usage:   "Show the top rated tracks",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "Number of tracks to show (default: bot.leaderboard_size)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: table, csv or json",
				Value:   "table",
			},
			&cli.StringFlag{
				Name:  "post",
				Usage: "Post the leaderboard to this Slack channel id instead of printing it",
			},
		},
		Action: r.Leaderboard,
	}
}

// unratedCommand lists the tracks a user has not rated.
func unratedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "unrated",
		Usage: "List tracks a user has not rated yet",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "user",
				Aliases:  []string{"u"},
				Usage:    "Slack user id",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Unrated,
	}
}

// statsCommand prints user, song or artist statistics.
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show statistics for exactly one of a user, a song or an artist",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "user",
				Usage: "Slack user id",
			},
			&cli.StringFlag{
				Name:  "song",
				Usage: "Track link, id or title",
			},
			&cli.StringFlag{
				Name:  "artist",
				Usage: "Artist name",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Stats,
	}
}

// tracksCommand manages the stored tracks.
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tracks",
		Usage: "Manage stored tracks",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Register a track by link or id",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "track"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "Slack user id credited with the submission",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "link",
						Usage: "Permalink of the Slack message to rate on",
					},
				},
				Action: r.TracksAdd,
			},
			{
				Name:  "delete",
				Usage: "Delete a track and its ratings",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.TracksDelete,
			},
			{
				Name:  "search",
				Usage: "Find tracks by link, id or title",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.TracksSearch,
			},
			{
				Name:  "open",
				Usage: "Open a track's rating message in the browser, or its Spotify page when it has none",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "track"},
				},
				Action: r.TracksOpen,
			},
			{
				Name:  "backfill",
				Usage: "Refresh track metadata from Spotify",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Refresh every track, not only tracks without artists",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent database writers",
						Value: 2,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Spotify requests per second",
						Value: 5,
					},
				},
				Action: r.TracksBackfill,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for browsing the leaderboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Browse the leaderboard interactively",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "Number of tracks to load (default: bot.leaderboard_size)",
			},
		},
		Action: r.TUI,
	}
}
