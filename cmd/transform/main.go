// Package main builds the crashes, people and crashes_joined tables from
// the raw tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/your-org/chi-traffic-accidents/internal/config"
	"github.com/your-org/chi-traffic-accidents/internal/datastore"
	"github.com/your-org/chi-traffic-accidents/internal/transform"
	"github.com/your-org/chi-traffic-accidents/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.SetGlobalLogLevel(cfg.App.LogLevel)
	if err := cfg.Validate(config.RequireDatabase); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Errorf("Transform failed: %v", err)
		os.Exit(1)
	}
	logger.Info("Transform finished.")
}

func run(ctx context.Context, cfg *config.Config) error {
	zapLogger, err := logger.NewZap(cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("init zap logger: %w", err)
	}
	defer zapLogger.Sync()

	pool, err := datastore.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	return transform.New(datastore.NewRepository(pool, zapLogger), zapLogger).Run(ctx)
}
