package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/permitsync/internal/flagx"
	"github.com/dmitrijs2005/permitsync/internal/timex"
)

// jsonConfig is the on-disk form. Absent fields leave the current values
// alone.
type jsonConfig struct {
	ServerURL           string         `json:"server_url"`
	DatabasePath        string         `json:"database_path"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	SyncInterval        timex.Duration `json:"sync_interval"`
	SyncErrorBackoff    timex.Duration `json:"sync_error_backoff"`
	MaxQueueRetries     *int           `json:"max_queue_retries"`
	RemoteRetries       *int           `json:"remote_retries"`
	LogFile             string         `json:"log_file"`
	LogLevel            string         `json:"log_level"`
}

func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.LogFile, jc.LogFile)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.SyncInterval.Duration > 0 {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.SyncErrorBackoff.Duration > 0 {
		cfg.SyncErrorBackoff = jc.SyncErrorBackoff.Duration
	}
	if jc.MaxQueueRetries != nil {
		cfg.MaxQueueRetries = *jc.MaxQueueRetries
	}
	if jc.RemoteRetries != nil {
		cfg.RemoteRetries = *jc.RemoteRetries
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
