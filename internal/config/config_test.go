package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Mode != "all" {
		t.Errorf("expected mode all, got %s", cfg.Mode)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Worker.Concurrency != 2 {
		t.Errorf("expected concurrency 2, got %d", cfg.Worker.Concurrency)
	}
	if cfg.SessionTTL() != 120*time.Minute {
		t.Errorf("expected 120m session TTL, got %s", cfg.SessionTTL())
	}
	if cfg.AnswerTimeout() != 120*time.Second {
		t.Errorf("expected 120s answer timeout, got %s", cfg.AnswerTimeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/config.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
mode: worker
server:
  port: 9090
chroma:
  url: http://chroma:8000
worker:
  concurrency: 4
session:
  ttl_minutes: 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Mode != "worker" {
		t.Errorf("expected mode worker, got %s", cfg.Mode)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Chroma.URL != "http://chroma:8000" {
		t.Errorf("unexpected chroma url %s", cfg.Chroma.URL)
	}
	if cfg.Worker.Concurrency != 4 {
		t.Errorf("expected concurrency 4, got %d", cfg.Worker.Concurrency)
	}
	if cfg.SessionTTL() != 30*time.Minute {
		t.Errorf("expected 30m TTL, got %s", cfg.SessionTTL())
	}
	// Untouched values keep defaults
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected default max open conns, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mode: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PORT", "7070")
	t.Setenv("RUN_MODE", "api")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ANSWER_TIMEOUT_SEC", "60")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("expected env port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Mode != "api" {
		t.Errorf("expected mode api, got %s", cfg.Mode)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Errorf("unexpected redis url %s", cfg.Redis.URL)
	}
	if cfg.AnswerTimeout() != 60*time.Second {
		t.Errorf("expected 60s answer timeout, got %s", cfg.AnswerTimeout())
	}
}

func TestLoad_InvalidEnvIntIgnored(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port kept, got %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad mode", func(c *Config) { c.Mode = "hybrid" }, true},
		{"missing database", func(c *Config) { c.Database.URL = "" }, true},
		{"missing chroma", func(c *Config) { c.Chroma.URL = "" }, true},
		{"bad port", func(c *Config) { c.Server.Port = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
