// Package main downloads the crash and people datasets into their raw
// tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/your-org/chi-traffic-accidents/internal/collector"
	"github.com/your-org/chi-traffic-accidents/internal/config"
	"github.com/your-org/chi-traffic-accidents/internal/datastore"
	"github.com/your-org/chi-traffic-accidents/internal/soda"
	"github.com/your-org/chi-traffic-accidents/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	dataset := flag.String("dataset", "all", "Dataset to collect: crashes, people or all")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.SetGlobalLogLevel(cfg.App.LogLevel)
	logger.Infof("Loaded configuration from: %s", *configPath)

	datasets, err := selectDatasets(*dataset)
	if err != nil {
		logger.Fatalf("Invalid -dataset: %v", err)
	}
	if err := cfg.Validate(config.RequireSODA, config.RequireDatabase); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, datasets); err != nil {
		logger.Errorf("Collection failed: %v", err)
		os.Exit(1)
	}
	logger.Info("Collection finished.")
}

func run(ctx context.Context, cfg *config.Config, datasets []soda.Dataset) error {
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

	client := soda.NewClient(cfg.SODA.Domain, cfg.SODA.AppToken, cfg.SODA.PageSize, cfg.SODA.Timeout.Std(), zapLogger)
	defer client.Close()

	validator, err := soda.NewValidator()
	if err != nil {
		return err
	}
	c := collector.New(client, datastore.NewRepository(pool, zapLogger), zapLogger).WithFilter(validator)
	for _, ds := range datasets {
		n, err := c.Collect(ctx, ds)
		if err != nil {
			return err
		}
		zapLogger.Info("stored raw table", zap.String("table", ds.RawTable), zap.Int64("rows", n))
	}
	return nil
}

// selectDatasets resolves the -dataset flag. "all" means crashes then
// people.
func selectDatasets(name string) ([]soda.Dataset, error) {
	if name == "all" {
		return []soda.Dataset{soda.Crashes, soda.People}, nil
	}
	ds, err := soda.ParseDataset(name)
	if err != nil {
		return nil, err
	}
	return []soda.Dataset{ds}, nil
}
