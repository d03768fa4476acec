// Package config loads runtime configuration for the permit client.
//
// Sources, later ones overriding earlier ones:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Environment variables prefixed PERMITSYNC_ (for example
//     PERMITSYNC_SERVER_URL, PERMITSYNC_SYNC_INTERVAL=10m).
//  4. Command-line flags.
//
// Supported flags
//
//	-a string   base URL of the permit API
//	-d string   path of the local SQLite database
//	-i int      online status check interval (seconds)
//	-s int      background sync interval (seconds)
//
// # JSON schema
//
// Intervals use timex.Duration, so they can be strings like "3s" or integer
// nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080/api",
//	  "database_path": "/home/me/.config/permitsync/permits.db",
//	  "request_timeout": "10s",
//	  "online_check_interval": "15s",
//	  "sync_interval": "5m",
//	  "sync_error_backoff": "1m",
//	  "max_queue_retries": 5,
//	  "remote_retries": 2,
//	  "log_file": "/tmp/permitsync.log",
//	  "log_level": "info"
//	}
package config
