// Package config loads environment variables and provides a typed Config used across the bot.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required credentials (the Discord bot token), use ValidateBotReady.
package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	// Discord
	DiscordToken string

	// VRChat
	VRChatBaseURL   string
	VRChatUserAgent string

	// Credential cache
	CacheFile     string
	EncryptionKey string

	// Calendar input times are interpreted in this location before
	// conversion to UTC for the remote API.
	Location *time.Location

	// Database (optional group registry; empty DSN disables it)
	DBDsn string

	// HTTP
	HTTPAddr string
}

// Load reads environment variables and applies defaults. It doesn't fail if the
// Discord token is missing; use ValidateBotReady() before connecting the gateway.
// Missing optional variables disable features (e.g., the group registry).
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DiscordToken = os.Getenv("DISCORD_TOKEN")

	cfg.VRChatBaseURL = os.Getenv("VRCHAT_BASE_URL")
	if cfg.VRChatBaseURL == "" {
		cfg.VRChatBaseURL = "https://api.vrchat.cloud/api/1"
	}
	cfg.VRChatUserAgent = os.Getenv("VRCHAT_USER_AGENT")
	if cfg.VRChatUserAgent == "" {
		cfg.VRChatUserAgent = "VRChatGroupBot/1.0.0"
	}

	cfg.CacheFile = os.Getenv("CACHE_FILE")
	if cfg.CacheFile == "" {
		cfg.CacheFile = "usercache.json"
	}
	cfg.EncryptionKey = os.Getenv("ENCRYPTION_KEY")

	if tz := os.Getenv("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE (IANA name like Asia/Tokyo): %w", err)
		}
		cfg.Location = loc
	} else {
		cfg.Location = time.Local
	}

	cfg.DBDsn = os.Getenv("DB_DSN")

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	return cfg, nil
}

// ValidateBotReady checks required fields before connecting to the Discord gateway.
func (c *Config) ValidateBotReady() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("missing discord env: require DISCORD_TOKEN")
	}
	return nil
}
