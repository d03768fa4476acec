package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/permitsync/internal/client/cli"
	"github.com/dmitrijs2005/permitsync/internal/client/config"
	"github.com/dmitrijs2005/permitsync/internal/logging"
)

func main() {

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger, closer := logging.NewFileLogger(logging.FileOptions{Path: cfg.LogFile, Level: cfg.LogLevel})
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "client stopped", "err", err)
	}

}
