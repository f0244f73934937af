// Package cli provides common CLI initialization utilities shared by
// cmd/gastos and cmd/gastos-worker.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gastos/internal/cache"
	"gastos/internal/config"
	"gastos/internal/home"
	"gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process on failure, logging through the default logger.
func LoadAndValidateConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// SetupLogger builds the logger described by cfg and installs it as the
// default logger.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     cfg.SlogLevel(),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// HomeOptions are the engine settings derived from the configuration.
func HomeOptions(cfg *config.Config, logger *log.Logger) ([]home.Option, *time.Location, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, fmt.Errorf("load time zone: %w", err)
	}
	policy, err := cfg.DatePolicy()
	if err != nil {
		return nil, nil, err
	}
	return []home.Option{
		home.WithLocation(loc),
		home.WithDatePolicy(policy),
		home.WithLogger(logger.WithComponent(log.ComponentHome).Logger),
	}, loc, nil
}

// NewHomeService wires an engine, its projection cache and metrics around
// reader. The cache is registered with manager for expiry sweeps.
func NewHomeService(cfg *config.Config, logger *log.Logger, reader services.SnapshotReader, m *metrics.Metrics, manager *cache.Manager) (*services.HomeService, *time.Location, error) {
	opts, loc, err := HomeOptions(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	projections := cache.NewLRUCache[home.Projection](cfg.CacheSize, cfg.CacheTTL)
	if manager != nil {
		manager.Register(projections)
	}
	return services.NewHomeService(reader, home.NewEngine(opts...), projections, m), loc, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. The
// returned stop func releases the signal handler.
func GracefulShutdown(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
