package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/filex"
	"github.com/kelseyhightower/envconfig"
)

const (
	appName   = "permitsync"
	envPrefix = "PERMITSYNC"
)

// Config holds runtime settings of the permit CLI.
type Config struct {
	ServerURL           string        `envconfig:"SERVER_URL"`
	DatabasePath        string        `envconfig:"DATABASE_PATH"`
	RequestTimeout      time.Duration `envconfig:"REQUEST_TIMEOUT"`
	OnlineCheckInterval time.Duration `envconfig:"ONLINE_CHECK_INTERVAL"`
	SyncInterval        time.Duration `envconfig:"SYNC_INTERVAL"`
	SyncErrorBackoff    time.Duration `envconfig:"SYNC_ERROR_BACKOFF"`
	// MaxQueueRetries is how many rejected replays turn a queued change into
	// a dead letter.
	MaxQueueRetries int `envconfig:"MAX_QUEUE_RETRIES"`
	// RemoteRetries is how many times a failed read is retried in place.
	RemoteRetries int    `envconfig:"REMOTE_RETRIES"`
	LogFile       string `envconfig:"LOG_FILE"`
	LogLevel      string `envconfig:"LOG_LEVEL"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	dir := filex.DefaultDataDir(appName)

	c.ServerURL = "http://127.0.0.1:8080/api"
	c.DatabasePath = filepath.Join(dir, "permits.db")
	c.RequestTimeout = 10 * time.Second
	c.OnlineCheckInterval = 15 * time.Second
	c.SyncInterval = 5 * time.Minute
	c.SyncErrorBackoff = time.Minute
	c.MaxQueueRetries = 5
	c.RemoteRetries = 2
	c.LogFile = filepath.Join(dir, "permitsync.log")
	c.LogLevel = "info"
}

// LoadConfig applies defaults, then the JSON file, the environment and the
// flags found in args (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
