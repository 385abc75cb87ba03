package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ratebot/internal/services"
	"github.com/desertthunder/ratebot/internal/shared"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadDotEnv(".env"); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	configPath := os.Getenv("RATEBOT_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	config, err := shared.ResolveConfig(configPath)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		config = shared.DefaultConfig()
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	opts := RunnerOpts{Config: config, Logger: logger}

	spotify := config.Credentials.Spotify
	if spotify.ClientID != "" && spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(map[string]string{
			"client_id":     spotify.ClientID,
			"client_secret": spotify.ClientSecret,
		}, spotify.RequestsPerSecond); err == nil {
			opts.Spotify = svc
		} else {
			logger.Warn("spotify disabled", "error", err)
		}
	}

	if slack := config.Credentials.Slack; slack.BotToken != "" {
		if svc, err := services.NewSlackService(slack.BotToken, slack.APIURL); err == nil {
			opts.Slack = svc
		} else {
			logger.Warn("slack disabled", "error", err)
		}
	}

	runner := NewRunner(opts)
	defer runner.Close()

	app := &cli.Command{
		Name:     "ratebot",
		Usage:    "Rate shared Spotify tracks with Slack reactions",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}
