package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "catalog", cfg.CatalogDir)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("TUTORD_ADDR", "127.0.0.1:9999")
	t.Setenv("TUTORD_CATALOG_DIR", "/data/catalog")
	t.Setenv("TUTORD_LOG_LEVEL", "debug")
	t.Setenv("TUTORD_SHUTDOWN_TIMEOUT", "30s")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Addr)
	assert.Equal(t, "/data/catalog", cfg.CatalogDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestFromEnv_BadDuration(t *testing.T) {
	t.Setenv("TUTORD_SHUTDOWN_TIMEOUT", "soon")
	_, err := FromEnv()
	assert.Error(t, err)
}
