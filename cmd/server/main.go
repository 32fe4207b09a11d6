// Package main serves the prediction form.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/your-org/chi-traffic-accidents/internal/config"
	"github.com/your-org/chi-traffic-accidents/internal/datastore"
	"github.com/your-org/chi-traffic-accidents/internal/http/handler"
	"github.com/your-org/chi-traffic-accidents/internal/predict"
	"github.com/your-org/chi-traffic-accidents/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.SetGlobalLogLevel(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Errorf("Server failed: %v", err)
		os.Exit(1)
	}
	logger.Info("Server stopped.")
}

func run(ctx context.Context, cfg *config.Config) error {
	zapLogger, err := logger.NewZap(cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("init zap logger: %w", err)
	}
	defer zapLogger.Sync()

	predictor, err := predict.Load(cfg.Model.ArtifactDir)
	if err != nil {
		return fmt.Errorf("load model from %s: %w", cfg.Model.ArtifactDir, err)
	}
	logger.Infof("Loaded model %s from %s", predictor.ModelVersion(), cfg.Model.ArtifactDir)

	// Training history is optional: without credentials /model answers 503.
	var runs datastore.RunRepository
	if err := cfg.Validate(config.RequireDatabase); err != nil {
		logger.Warnf("Training history disabled: %v", err)
	} else {
		pool, err := datastore.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		runs = datastore.NewRepository(pool, zapLogger)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.NewRouter(predictor, runs, reg, zapLogger),
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
