package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port string

	// Auth. Empty disables authentication.
	APIKey string

	// Upload limits
	MaxUploadBytes int64

	// Partitioning defaults
	DefaultChunkSize int
}

func Load() Config {
	cfg := Config{
		Port:   envOr("PORT", "8091"),
		APIKey: os.Getenv("XMLSAW_API_KEY"),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		DefaultChunkSize: envInt("DEFAULT_CHUNK_SIZE", 1000),
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.DefaultChunkSize <= 0 {
		cfg.DefaultChunkSize = 1000
	}

	return cfg
}

func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
