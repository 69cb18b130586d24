package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
server:
  port: 9090
database:
  driver: sqlite
  url: file:test.db
auth:
  access_secret: aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa
  refresh_secret: bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb
  access_ttl: 5m
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileMergesDefaultsYAMLAndEnv(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	t.Setenv("JWT_REFRESH_TTL", "48h")
	t.Setenv("NOTIFIER_DRIVER", "direct")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("driver = %q", cfg.Database.Driver)
	}
	if cfg.Auth.AccessTTL != 5*time.Minute {
		t.Fatalf("access ttl = %s", cfg.Auth.AccessTTL)
	}
	if cfg.Auth.RefreshTTL != 48*time.Hour {
		t.Fatalf("refresh ttl = %s, want env override", cfg.Auth.RefreshTTL)
	}
	if cfg.Auth.PhoneCodeTTL != 10*time.Minute || cfg.Auth.ResetTokenTTL != 30*time.Minute {
		t.Fatalf("proof ttl defaults lost: %s / %s", cfg.Auth.PhoneCodeTTL, cfg.Auth.ResetTokenTTL)
	}
	if cfg.Notifier.Driver != "direct" {
		t.Fatalf("notifier driver = %q", cfg.Notifier.Driver)
	}
}

func TestLoadFileMissingFileUsesEnv(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:x.db")
	t.Setenv("JWT_ACCESS_SECRET", strings.Repeat("a", 32))
	t.Setenv("JWT_REFRESH_SECRET", strings.Repeat("b", 32))

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Database.DSN != "file:x.db" {
		t.Fatalf("dsn = %q", cfg.Database.DSN)
	}
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "mysql"
	cfg.Auth.AccessSecret = "short"
	cfg.Auth.RefreshSecret = "short"
	cfg.Notifier.Driver = "kafka"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"database.driver", "database.url", "access_secret", "must differ", "kafka.brokers"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestValidateRejectsLogNotifierInProduction(t *testing.T) {
	cfg := Default()
	cfg.Database.DSN = "file:x.db"
	cfg.Auth.AccessSecret = strings.Repeat("a", 32)
	cfg.Auth.RefreshSecret = strings.Repeat("b", 32)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("development defaults: %v", err)
	}

	cfg.Log.Env = "production"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), `notifier.driver "log"`) {
		t.Fatalf("Validate = %v, want log notifier rejected", err)
	}

	cfg.Notifier.Driver = "direct"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("direct notifier in production: %v", err)
	}
}
