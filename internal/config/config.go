// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config is the tutord service configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// CatalogDir is the directory of catalog JSON files.
	CatalogDir string
	// DBPath is the SQLite database file. Empty means the default
	// data-dir location.
	DBPath string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration
}

// Default returns the baked-in defaults.
func Default() Config {
	return Config{
		Addr:            ":8080",
		CatalogDir:      "catalog",
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
	}
}

// FromEnv builds a Config from TUTORD_* environment variables on top of
// the defaults. A .env file in the working directory is loaded first if
// present.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if v := os.Getenv("TUTORD_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("TUTORD_CATALOG_DIR"); v != "" {
		cfg.CatalogDir = v
	}
	if v := os.Getenv("TUTORD_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TUTORD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TUTORD_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("TUTORD_SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.CatalogDir == "" {
		return fmt.Errorf("catalog directory must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}
