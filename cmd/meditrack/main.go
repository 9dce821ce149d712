package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/meditrack/internal/app"
	"github.com/dmitrijs2005/meditrack/internal/buildinfo"
	"github.com/dmitrijs2005/meditrack/internal/cli"
	"github.com/dmitrijs2005/meditrack/internal/config"
	"github.com/dmitrijs2005/meditrack/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if z, ok := logger.(*logging.ZapLogger); ok {
		defer func() { _ = z.Sync() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error(ctx, "close failed", "err", err)
		}
	}()

	c := cli.NewApp(a.Medications, a.Users, os.Stdin, os.Stdout, logger)
	if err := c.Run(ctx); err != nil {
		logger.Error(ctx, "cli stopped", "err", err)
	}
}
