// Command moodboardd runs the moodboard generation service.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/moorea/moodboard/internal/bootstrap"
	"github.com/moorea/moodboard/internal/config"
	"github.com/moorea/moodboard/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "moodboardd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.Path("config.yaml"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting moodboard service",
		logger.String("version", cfg.Service.Version),
		logger.Int("port", cfg.Service.Port),
		logger.Int("workers", cfg.Service.Workers),
	)

	components, err := bootstrap.New(cfg, log)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer func() { _ = components.Cache.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components.Manager.Start(ctx)
	defer components.Manager.Stop()

	return components.Server.RunWithGracefulShutdown(ctx)
}
