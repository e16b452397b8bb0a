package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `{
		// minimal config
		"models": {"capable": "pro", "fast": "flash"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Gateway.Host != "127.0.0.1" {
		t.Errorf("default host = %q", cfg.Gateway.Host)
	}
	if cfg.Gateway.Port != 18700 {
		t.Errorf("default port = %d", cfg.Gateway.Port)
	}
	if cfg.Pipeline.MaxRetries != 2 {
		t.Errorf("default max_retries = %d", cfg.Pipeline.MaxRetries)
	}
	if cfg.Pipeline.ScoreThreshold != 100 {
		t.Errorf("default score_threshold = %d", cfg.Pipeline.ScoreThreshold)
	}
	if cfg.Pipeline.TickInterval.Duration() != time.Second {
		t.Errorf("default tick_interval = %s", cfg.Pipeline.TickInterval.Duration())
	}
	if cfg.Events.BufferSize != 1024 {
		t.Errorf("default buffer_size = %d", cfg.Events.BufferSize)
	}
}

func TestLoad_EnvTemplate(t *testing.T) {
	t.Setenv("AEGIS_TEST_KEY", "secret-123")

	path := writeConfig(t, `{
		"models": {
			"capable": "pro", "fast": "flash",
			"providers": {
				"pro": {
					"driver": "gemini",
					"model": "gemini-3-pro-preview",
					"auth": {"api_key": "${{ .Env.AEGIS_TEST_KEY }}"}
				}
			}
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	got := cfg.Models.Providers["pro"].Auth.APIKey
	if got != "secret-123" {
		t.Errorf("api_key = %q, want %q", got, "secret-123")
	}
}

func TestLoad_PolicyOverrides(t *testing.T) {
	path := writeConfig(t, `{
		"pipeline": {
			"max_retries": 50,
			"score_threshold": 85,
			"tick_interval": "250ms"
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Pipeline.MaxRetries != 50 {
		t.Errorf("max_retries = %d, want 50", cfg.Pipeline.MaxRetries)
	}
	if cfg.Pipeline.ScoreThreshold != 85 {
		t.Errorf("score_threshold = %d, want 85", cfg.Pipeline.ScoreThreshold)
	}
	if cfg.Pipeline.TickInterval.Duration() != 250*time.Millisecond {
		t.Errorf("tick_interval = %s", cfg.Pipeline.TickInterval.Duration())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.jsonc")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
