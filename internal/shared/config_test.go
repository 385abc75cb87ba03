package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./ratebot.db" {
			t.Errorf("expected database path ./ratebot.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Server.Addr() != "127.0.0.1:3000" {
			t.Errorf("expected addr 127.0.0.1:3000, got %s", config.Server.Addr())
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.Credentials.Slack.APIURL != "https://slack.com/api" {
			t.Errorf("expected slack api url https://slack.com/api, got %s", config.Credentials.Slack.APIURL)
		}

		if config.Bot.LeaderboardSize != 10 || config.Bot.TopCount != 3 {
			t.Errorf("unexpected bot defaults: %+v", config.Bot)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		err = CreateConfigFile(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("creating config file again should fail with ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 8080

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"

[credentials.slack]
bot_token = "xoxb-test"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Credentials.Slack.BotToken != "xoxb-test" {
			t.Errorf("expected slack bot token xoxb-test, got %s", config.Credentials.Slack.BotToken)
		}

		if config.Bot.TopCount != 3 {
			t.Errorf("unset values should keep defaults, got top_count %d", config.Bot.TopCount)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("SLACK_BOT_TOKEN", "xoxb-env")
		t.Setenv("RATEBOT_PORT", "4100")
		t.Setenv("RATEBOT_LOG_LEVEL", "debug")

		config := DefaultConfig()
		if err := ApplyEnv(config); err != nil {
			t.Fatalf("failed to apply env: %v", err)
		}

		if config.Credentials.Slack.BotToken != "xoxb-env" {
			t.Errorf("expected bot token from env, got %s", config.Credentials.Slack.BotToken)
		}
		if config.Server.Port != 4100 {
			t.Errorf("expected port 4100 from env, got %d", config.Server.Port)
		}
		if config.Log.Level != "debug" {
			t.Errorf("expected log level debug from env, got %s", config.Log.Level)
		}
	})

	t.Run("ApplyEnv Invalid Value", func(t *testing.T) {
		t.Setenv("RATEBOT_PORT", "not-a-port")

		err := ApplyEnv(DefaultConfig())
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("ResolveConfig Without File", func(t *testing.T) {
		config, err := ResolveConfig(filepath.Join(t.TempDir(), "absent.toml"))
		if err != nil {
			t.Fatalf("expected defaults when file is absent, got %v", err)
		}
		if config.Database.Path != "./ratebot.db" {
			t.Errorf("expected default database path, got %s", config.Database.Path)
		}
	})

	t.Run("LoadDotEnv", func(t *testing.T) {
		tmpDir := t.TempDir()
		envPath := filepath.Join(tmpDir, ".env")
		if err := os.WriteFile(envPath, []byte("RATEBOT_DOTENV_CHECK=loaded\n"), 0644); err != nil {
			t.Fatalf("failed to write .env: %v", err)
		}
		t.Cleanup(func() { os.Unsetenv("RATEBOT_DOTENV_CHECK") })

		if err := LoadDotEnv(filepath.Join(tmpDir, "missing.env"), envPath); err != nil {
			t.Fatalf("failed to load .env: %v", err)
		}

		if got := os.Getenv("RATEBOT_DOTENV_CHECK"); got != "loaded" {
			t.Errorf("expected RATEBOT_DOTENV_CHECK=loaded, got %q", got)
		}
	})
}
