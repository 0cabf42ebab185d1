package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "zero target",
			mutate: func(cfg *Config) {
				cfg.TargetCount = 0
			},
			wantErr: "target count",
		},
		{
			name: "zero max pages",
			mutate: func(cfg *Config) {
				cfg.MaxPages = 0
			},
			wantErr: "max pages",
		},
		{
			name: "empty list url",
			mutate: func(cfg *Config) {
				cfg.ListURL = ""
			},
			wantErr: "list URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.ListURL = "http://"
			},
			wantErr: "list URL",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "negative delay",
			mutate: func(cfg *Config) {
				cfg.DelayMin = -time.Millisecond
			},
			wantErr: "delay cannot be negative",
		},
		{
			name: "inverted delay range",
			mutate: func(cfg *Config) {
				cfg.DelayMin = 3 * time.Second
				cfg.DelayMax = time.Second
			},
			wantErr: "delay min",
		},
		{
			name: "unknown load mode",
			mutate: func(cfg *Config) {
				cfg.LoadMode = "overwrite"
			},
			wantErr: "load mode",
		},
		{
			name: "empty store dsn",
			mutate: func(cfg *Config) {
				cfg.StoreDSN = ""
			},
			wantErr: "store DSN",
		},
		{
			name: "backoff above max",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = time.Hour
			},
			wantErr: "retry backoff",
		},
		{
			name: "bad output format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.EnableFallbackOnEmpty {
		t.Fatalf("fallback should be disabled by default")
	}
}

func TestPageURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListURL = "http://example.test/list?sort=top"

	got, err := cfg.PageURL(3)
	if err != nil {
		t.Fatalf("page url: %v", err)
	}
	if got != "http://example.test/list?page=3&sort=top" {
		t.Fatalf("page url = %q", got)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SCRAPER_TARGET", "25")
	t.Setenv("SCRAPER_DELAY_MAX", "3s")
	t.Setenv("SCRAPER_FALLBACK", "yes")
	t.Setenv("SCRAPER_LOAD_MODE", "REPLACE")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.TargetCount != 25 || cfg.DelayMax != 3*time.Second || !cfg.EnableFallbackOnEmpty || cfg.LoadMode != LoadModeReplace {
		t.Fatalf("unexpected config after env: %+v", cfg)
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	t.Setenv("SCRAPER_PAGES", "many")
	if err := DefaultConfig().ApplyEnv(); err == nil || !strings.Contains(err.Error(), "SCRAPER_PAGES") {
		t.Fatalf("expected SCRAPER_PAGES error, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraper.yaml")
	content := "target_count: 50\nmax_pages: 2\ndelay_min: 100ms\ndelay_max: 250ms\nenable_fallback_on_empty: true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.TargetCount != 50 || cfg.MaxPages != 2 || cfg.DelayMin != 100*time.Millisecond || cfg.DelayMax != 250*time.Millisecond {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.EnableFallbackOnEmpty {
		t.Fatalf("fallback flag not loaded")
	}
	if cfg.Table != "goodreads_books" {
		t.Fatalf("defaults should survive, table = %q", cfg.Table)
	}
}

func TestLoadFileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraper.yaml")
	if err := os.WriteFile(path, []byte("parallelism: 4\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected unknown key error")
	}
}
