package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetDefault(t *testing.T) {
	cfg := GetDefault()

	if cfg == nil {
		t.Fatal("GetDefault returned nil")
	}
	if !cfg.Categories.Temp {
		t.Error("expected Temp to be enabled by default")
	}
	if !cfg.Categories.Cache {
		t.Error("expected Cache to be enabled by default")
	}
	if !cfg.Categories.Logs {
		t.Error("expected Logs to be enabled by default")
	}
	if cfg.Quarantine.Strict {
		t.Error("expected strict quarantine to be disabled by default")
	}
	if cfg.Quarantine.RetentionDays != 30 {
		t.Errorf("expected 30 day retention, got %d", cfg.Quarantine.RetentionDays)
	}
	if cfg.DryRun {
		t.Error("expected DryRun to be disabled by default")
	}
}

func TestGetDefaultValidates(t *testing.T) {
	if err := GetDefault().Validate(); err != nil {
		t.Errorf("default config must validate, got %v", err)
	}
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Quarantine.RetentionDays != 30 {
		t.Error("expected default config for missing file")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := GetDefault()
	cfg.ScanPaths = []string{"/srv/media"}
	cfg.Quarantine.RetentionDays = 7
	cfg.Quarantine.Strict = true
	cfg.Duplicates.MinFileSize = "4KB"
	cfg.CustomPaths = []string{"/srv/downloads"}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.ScanPaths[0] != "/srv/media" {
		t.Errorf("scan paths lost: %+v", loaded.ScanPaths)
	}
	if loaded.Quarantine.RetentionDays != 7 || !loaded.Quarantine.Strict {
		t.Errorf("quarantine settings lost: %+v", loaded.Quarantine)
	}
	if loaded.Duplicates.MinFileSize != "4KB" {
		t.Errorf("min file size lost: %s", loaded.Duplicates.MinFileSize)
	}
	if len(loaded.CustomPaths) != 1 || loaded.CustomPaths[0] != "/srv/downloads" {
		t.Errorf("custom paths lost: %+v", loaded.CustomPaths)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("categories: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative temp age", func(c *Config) { c.AgeThresholds.Temp = -1 }},
		{"negative retention", func(c *Config) { c.Quarantine.RetentionDays = -5 }},
		{"bad min size", func(c *Config) { c.Duplicates.MinFileSize = "lots" }},
		{"relative protected path", func(c *Config) { c.ProtectedPaths = []string{"relative/path"} }},
		{"relative scan path", func(c *Config) { c.ScanPaths = []string{"relative"} }},
		{"relative custom path", func(c *Config) { c.CustomPaths = []string{"relative/extra"} }},
		{"bad exclude pattern", func(c *Config) { c.ExcludePatterns = []string{"[unclosed"} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := GetDefault()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestMinFileSizeBytes(t *testing.T) {
	cfg := GetDefault()
	cfg.Duplicates.MinFileSize = "2KB"

	got, err := cfg.MinFileSizeBytes()
	if err != nil {
		t.Fatalf("MinFileSizeBytes failed: %v", err)
	}
	if got != 2048 {
		t.Errorf("expected 2048, got %d", got)
	}

	cfg.Duplicates.MinFileSize = ""
	if got, _ := cfg.MinFileSizeBytes(); got != 0 {
		t.Errorf("empty min size must be 0, got %d", got)
	}
}

func TestRetention(t *testing.T) {
	cfg := GetDefault()
	cfg.Quarantine.RetentionDays = 1
	if cfg.Retention() != 24*time.Hour {
		t.Errorf("expected 24h, got %v", cfg.Retention())
	}
}
