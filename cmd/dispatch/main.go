package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rozgar-hq/rozgar-dispatch/internal/app"
	"github.com/rozgar-hq/rozgar-dispatch/internal/config"
	"github.com/rozgar-hq/rozgar-dispatch/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dispatch start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("dispatch starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher, err := app.NewDispatcher(ctx, cfg, logger.Global{})
	if err != nil {
		logger.ErrorObj("failed to initialize dispatcher", "error", err)
		return err
	}

	if err := dispatcher.Run(ctx); err != nil {
		return fmt.Errorf("dispatcher run: %w", err)
	}

	return nil
}
