package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q, expected 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, expected sqlite", cfg.Database.Driver)
	}
	if cfg.AI.Primary.Provider == "" || cfg.AI.Secondary.Provider == "" {
		t.Error("defaults should configure both provider slots")
	}
	if cfg.AI.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, expected 3", cfg.AI.MaxAttempts)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("missing file should fall back to defaults, Port = %q", cfg.Server.Port)
	}
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: "9000"
ai:
  primary:
    provider: anthropic
    model: claude-sonnet-4-20250514
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9000" {
		t.Errorf("Port = %q, expected 9000", cfg.Server.Port)
	}
	if cfg.AI.Primary.Provider != "anthropic" {
		t.Errorf("Primary.Provider = %q", cfg.AI.Primary.Provider)
	}
	// Knobs omitted from the file get defaults.
	if cfg.AI.MaxAttempts != 3 || cfg.AI.BackoffBaseMS != 1000 {
		t.Errorf("orchestration knobs not defaulted: %+v", cfg.AI)
	}
	if cfg.JWT.ExpireHour != 24 {
		t.Errorf("ExpireHour = %d, expected 24", cfg.JWT.ExpireHour)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7777")
	t.Setenv("AI_PRIMARY_PROVIDER", "ollama")
	t.Setenv("AI_PRIMARY_MODEL", "llama3")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "7777" {
		t.Errorf("Port = %q, env override lost", cfg.Server.Port)
	}
	if cfg.AI.Primary.Provider != "ollama" || cfg.AI.Primary.Model != "llama3" {
		t.Errorf("AI env overrides lost: %+v", cfg.AI.Primary)
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		url      string
		addr     string
		password string
		db       int
	}{
		{"redis://localhost:6379/0", "localhost:6379", "", 0},
		{"redis://:secret@redis.internal:6380/2", "redis.internal:6380", "secret", 2},
		{"redis://user:pw@host:6379/1", "host:6379", "pw", 1},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.parseRedisURL(tt.url)

			if cfg.Redis.Addr != tt.addr {
				t.Errorf("Addr = %q, expected %q", cfg.Redis.Addr, tt.addr)
			}
			if cfg.Redis.Password != tt.password {
				t.Errorf("Password = %q, expected %q", cfg.Redis.Password, tt.password)
			}
			if cfg.Redis.DB != tt.db {
				t.Errorf("DB = %d, expected %d", cfg.Redis.DB, tt.db)
			}
		})
	}
}
