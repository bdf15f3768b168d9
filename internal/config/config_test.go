package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:8080" {
		t.Fatalf("unexpected listen addr %q", cfg.ListenAddr)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "postflow.db" {
		t.Fatalf("unexpected database defaults %+v", cfg.Database)
	}
	if cfg.CleanupDays != 30 {
		t.Fatalf("unexpected cleanup default %d", cfg.CleanupDays)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postflow.yaml")
	data := `
listen_addr: 0.0.0.0:9000
database:
  driver: postgres
  dsn: host=localhost user=postflow dbname=postflow
telegram:
  bot_token: tg-token
linkedin:
  client_id: li-id
  client_secret: li-secret
cleanup_days: 7
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Fatalf("unexpected listen addr %q", cfg.ListenAddr)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("unexpected driver %q", cfg.Database.Driver)
	}
	if cfg.Telegram.BotToken != "tg-token" || cfg.LinkedIn.ClientID != "li-id" {
		t.Fatal("expected secrets from file")
	}
	if cfg.CleanupDays != 7 {
		t.Fatalf("unexpected cleanup days %d", cfg.CleanupDays)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postflow.yaml")
	if err := os.WriteFile(path, []byte("telegram:\n  bot_token: from-file\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.BotToken != "from-env" {
		t.Fatalf("expected env to win, got %q", cfg.Telegram.BotToken)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
