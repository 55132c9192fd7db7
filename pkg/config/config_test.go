package config

import (
	"testing"

	"github.com/b1690/awardgen/pkg/sheet"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"AWARDGEN_SHEET_URL", "PORT", "AWARDGEN_FONT", "AWARDGEN_CACHE", "API_KEY"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.SheetURL != sheet.DefaultURL {
		t.Fatalf("SheetURL = %q", cfg.SheetURL)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q", cfg.Port)
	}
	if cfg.CachePath == "" {
		t.Fatal("CachePath empty")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AWARDGEN_SHEET_URL", "https://example.com/roster.csv")
	t.Setenv("PORT", "9090")
	t.Setenv("API_KEY", "k-123")

	cfg := Load()
	if cfg.SheetURL != "https://example.com/roster.csv" {
		t.Fatalf("SheetURL = %q", cfg.SheetURL)
	}
	if cfg.Port != "9090" || cfg.APIKey != "k-123" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}
