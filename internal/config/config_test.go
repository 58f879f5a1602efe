package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "homenest.yaml")
	raw := `
http:
  addr: ":9090"
database:
  driver: sqlite
  dsn: "file:test.db"
anthropic:
  model: claude-test
callQueue:
  staleAfter: 5m
notifications:
  telegram:
    chatId: 42
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(configPathEnv, path)
	t.Setenv(anthropicAPIKeyEnv, "sk-test")
	t.Setenv(telegramChatIDEnv, "-100123")

	cfg := Load()

	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Database.Driver != DriverSQLite || cfg.Database.DSN != "file:test.db" {
		t.Fatalf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Anthropic.Model != "claude-test" || cfg.Anthropic.APIKey != "sk-test" {
		t.Fatalf("unexpected anthropic config: %+v", cfg.Anthropic)
	}
	if cfg.Anthropic.Endpoint == "" {
		t.Fatalf("expected default endpoint to survive merge")
	}
	if cfg.CallQueue.StaleAfter != 5*time.Minute || cfg.CallQueue.SweepInterval != time.Minute {
		t.Fatalf("unexpected call queue config: %+v", cfg.CallQueue)
	}
	if cfg.Notifications.Telegram.ChatID != -100123 {
		t.Fatalf("expected env chat id to win, got %d", cfg.Notifications.Telegram.ChatID)
	}
}

func TestLoadFallsBackOnUnreadableFile(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()
	if cfg.Database.Driver != DriverPostgres {
		t.Fatalf("expected default driver, got %s", cfg.Database.Driver)
	}
	if cfg.Storage.Enabled() {
		t.Fatalf("storage must be disabled without credentials")
	}
}
