package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("fills defaults around the required fields", func(t *testing.T) {
		path := writeConfigFile(t, `
database:
  url: postgres://localhost:5432/ledger
admin:
  token: secret
`)
		cfg, err := LoadConfig(path, false)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Port != 3000 {
			t.Errorf("expected default port 3000, got %d", cfg.Server.Port)
		}
		if cfg.Exchange.Price != 100 {
			t.Errorf("expected default price 100, got %d", cfg.Exchange.Price)
		}
		if cfg.Admin.SessionTTL != 30*time.Minute {
			t.Errorf("expected default session TTL 30m, got %v", cfg.Admin.SessionTTL)
		}
		if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
			t.Errorf("expected info/json log defaults, got %s/%s", cfg.Log.Level, cfg.Log.Format)
		}
		if cfg.RateLimit.ActivatePerMinute != 10 || cfg.RateLimit.ExchangePerMinute != 20 {
			t.Errorf("unexpected rate limit defaults: %+v", cfg.RateLimit)
		}
	})

	t.Run("explicit values win over defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
server:
  port: 8080
  announcement: "down at midnight"
database:
  url: postgres://localhost:5432/ledger
exchange:
  price: 250
admin:
  token: secret
`)
		cfg, err := LoadConfig(path, false)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Port != 8080 {
			t.Errorf("expected port 8080, got %d", cfg.Server.Port)
		}
		if cfg.Exchange.Price != 250 {
			t.Errorf("expected price 250, got %d", cfg.Exchange.Price)
		}
		if cfg.Server.Announcement != "down at midnight" {
			t.Errorf("unexpected announcement %q", cfg.Server.Announcement)
		}
	})

	t.Run("environment variables override file values", func(t *testing.T) {
		path := writeConfigFile(t, `
database:
  url: postgres://file-value:5432/ledger
admin:
  token: file-token
`)
		t.Setenv("DATABASE_URL", "postgres://env-value:5432/ledger")
		t.Setenv("ADMIN_TOKEN", "env-token")

		cfg, err := LoadConfig(path, false)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Database.URL != "postgres://env-value:5432/ledger" {
			t.Errorf("expected env override for database url, got %s", cfg.Database.URL)
		}
		if cfg.Admin.Token != "env-token" {
			t.Errorf("expected env override for admin token, got %s", cfg.Admin.Token)
		}
	})

	t.Run("refuses to start without a database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		path := writeConfigFile(t, `
admin:
  token: secret
`)
		if _, err := LoadConfig(path, false); err == nil {
			t.Errorf("expected an error for a missing database url")
		}
	})

	t.Run("refuses to start without an admin token", func(t *testing.T) {
		t.Setenv("ADMIN_TOKEN", "")
		path := writeConfigFile(t, `
database:
  url: postgres://localhost:5432/ledger
`)
		if _, err := LoadConfig(path, false); err == nil {
			t.Errorf("expected an error for a missing admin token")
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
			t.Errorf("expected an error for a missing file")
		}
	})
}
