package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/flagx"
)

// parseFlags overlays the flags it knows about; everything else in args is
// left to other parsers.
//
//	-a string   base URL of the permit API
//	-d string   local database path
//	-i int      online check interval in seconds
//	-s int      background sync interval in seconds
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-i", "-s"})

	fs := flag.NewFlagSet("permitsync", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the permit API")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	checkInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	syncInterval := fs.Int("s", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			cfg.OnlineCheckInterval, err = seconds(*checkInterval, err)
		case "s":
			cfg.SyncInterval, err = seconds(*syncInterval, err)
		}
	})
	return err
}

func seconds(n int, prev error) (time.Duration, error) {
	if prev != nil {
		return 0, prev
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid flags: interval must be positive, got %d", n)
	}
	return time.Duration(n) * time.Second, nil
}
