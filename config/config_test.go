package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VRCHAT_BASE_URL", "")
	t.Setenv("CACHE_FILE", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("TIMEZONE", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.VRChatBaseURL != "https://api.vrchat.cloud/api/1" {
		t.Errorf("unexpected default base url: %q", cfg.VRChatBaseURL)
	}
	if cfg.CacheFile != "usercache.json" {
		t.Errorf("unexpected default cache file: %q", cfg.CacheFile)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("unexpected default http addr: %q", cfg.HTTPAddr)
	}
	if cfg.Location == nil {
		t.Errorf("expected a location, got nil")
	}
}

func TestLoadTimezone(t *testing.T) {
	t.Setenv("TIMEZONE", "Asia/Tokyo")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Location.String() != "Asia/Tokyo" {
		t.Errorf("Location = %q, want Asia/Tokyo", cfg.Location)
	}

	t.Setenv("TIMEZONE", "Not/AZone")
	if _, err := Load(); err == nil {
		t.Errorf("expected error for bogus timezone")
	}
}

func TestValidateBotReady(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token123")
	cfg, _ := Load()
	if err := cfg.ValidateBotReady(); err != nil {
		t.Errorf("expected valid bot config, got %v", err)
	}
	if err := os.Unsetenv("DISCORD_TOKEN"); err != nil {
		t.Fatalf("failed to unset DISCORD_TOKEN: %v", err)
	}
	cfg, _ = Load()
	if err := cfg.ValidateBotReady(); err == nil {
		t.Errorf("expected error when missing discord token")
	}
}
