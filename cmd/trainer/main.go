// Package main trains the injury model and records the run.
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
	"github.com/your-org/chi-traffic-accidents/internal/trainer"
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

	report, err := run(ctx, cfg)
	if err != nil {
		logger.Errorf("Training failed: %v", err)
		os.Exit(1)
	}
	for _, s := range report.Scores {
		logger.Infof("Test %s", s)
	}
	logger.Infof("Run %s recorded; %d of %d features selected. Artifacts in %s.",
		report.Run.ID, len(report.Run.SelectedFeatures), len(report.Run.Features), report.Run.ArtifactDir)
}

func run(ctx context.Context, cfg *config.Config) (*trainer.Report, error) {
	zapLogger, err := logger.NewZap(cfg.App.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init zap logger: %w", err)
	}
	defer zapLogger.Sync()

	if err := datastore.RunMigrations(cfg.Database.DSN(), cfg.Model.MigrationsDir); err != nil {
		return nil, err
	}

	pool, err := datastore.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	return trainer.New(datastore.NewRepository(pool, zapLogger), cfg.Model, zapLogger).Train(ctx)
}
