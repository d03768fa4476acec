package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080/api", c.ServerURL)
	assert.Equal(t, "permits.db", filepath.Base(c.DatabasePath))
	assert.Equal(t, 15*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 5*time.Minute, c.SyncInterval)
	assert.Equal(t, time.Minute, c.SyncErrorBackoff)
	assert.Equal(t, 5, c.MaxQueueRetries)
	assert.Equal(t, 2, c.RemoteRetries)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"server_url":    "http://json:1",
		"database_path": "/tmp/json.db",
		"sync_interval": "2m",
		"log_level":     "debug",
	})
	t.Setenv("PERMITSYNC_SERVER_URL", "http://env:2")
	t.Setenv("PERMITSYNC_SYNC_ERROR_BACKOFF", "30s")
	t.Setenv("PERMITSYNC_MAX_QUEUE_RETRIES", "9")

	cfg, err := LoadConfig([]string{"-c", path, "-s", "60", "-unrelated", "x"})
	require.NoError(t, err)

	assert.Equal(t, "http://env:2", cfg.ServerURL)
	assert.Equal(t, "/tmp/json.db", cfg.DatabasePath)
	assert.Equal(t, time.Minute, cfg.SyncInterval)
	assert.Equal(t, 30*time.Second, cfg.SyncErrorBackoff)
	assert.Equal(t, 9, cfg.MaxQueueRetries)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 15*time.Second, cfg.OnlineCheckInterval)
}

func TestLoadConfig_BadEnvironment(t *testing.T) {
	t.Setenv("PERMITSYNC_SYNC_INTERVAL", "often")
	_, err := LoadConfig(nil)
	assert.ErrorContains(t, err, "failed to read environment")
}
