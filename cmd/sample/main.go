// Package main exports small CSV samples of the derived tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/your-org/chi-traffic-accidents/internal/config"
	"github.com/your-org/chi-traffic-accidents/internal/csvwriter"
	"github.com/your-org/chi-traffic-accidents/internal/datastore"
	"github.com/your-org/chi-traffic-accidents/internal/transform"
	"github.com/your-org/chi-traffic-accidents/pkg/logger"
)

type sample struct {
	table string
	file  string
}

var samples = []sample{
	{table: transform.CrashesJoinedTable, file: "crashes-data-sample.csv"},
	{table: transform.PeopleTable, file: "people-data-sample.csv"},
}

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

	paths, err := run(context.Background(), cfg)
	if err != nil {
		logger.Errorf("Export failed: %v", err)
		os.Exit(1)
	}
	for _, p := range paths {
		logger.Infof("Wrote %s", p)
	}
}

func run(ctx context.Context, cfg *config.Config) ([]string, error) {
	zapLogger, err := logger.NewZap(cfg.App.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init zap logger: %w", err)
	}
	defer zapLogger.Sync()

	pool, err := datastore.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	return export(ctx, datastore.NewRepository(pool, zapLogger), cfg.Sample, zapLogger)
}

// export writes the first cfg.Limit rows of every sample table and returns
// the files written.
func export(ctx context.Context, store datastore.TableReader, cfg config.SampleConfig, zapLogger *zap.Logger) ([]string, error) {
	paths := make([]string, 0, len(samples))
	for _, s := range samples {
		f, err := store.ReadTable(ctx, s.table, cfg.Limit)
		if err != nil {
			return paths, fmt.Errorf("read %s: %w", s.table, err)
		}
		path := filepath.Join(cfg.OutputDir, s.file)
		if err := csvwriter.WriteFile(path, f, zapLogger); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
