package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds server-side settings, loaded from the environment.
type Config struct {
	Port   string
	APIKey string

	// VaultRoot is the directory documents are resolved against.
	VaultRoot string

	// SettingsPath points at the YAML archiver settings file. Empty means
	// built-in defaults.
	SettingsPath string

	// OpTTL controls how long finished operations stay queryable.
	OpTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port:         envOr("PORT", "8091"),
		APIKey:       os.Getenv("ARCHIVER_API_KEY"),
		VaultRoot:    envOr("VAULT_ROOT", "."),
		SettingsPath: os.Getenv("ARCHIVER_SETTINGS"),
		OpTTL:        envDuration("OP_TTL", 1*time.Hour),
	}

	if cfg.OpTTL <= 0 {
		cfg.OpTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("ARCHIVER_API_KEY is required")
	}
	if c.VaultRoot == "" {
		return fmt.Errorf("VAULT_ROOT must not be empty")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
