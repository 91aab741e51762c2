package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/zoravur/bookshelf-live/internal/app"
	"github.com/zoravur/bookshelf-live/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := cfg.Logger()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	srv, err := app.NewServer(context.Background(), cfg, log)
	if err != nil {
		return err
	}
	return srv.Run()
}
