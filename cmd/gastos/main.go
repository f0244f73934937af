package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"gastos/internal/backend"
	"gastos/internal/cache"
	"gastos/internal/cli"
	apphttp "gastos/internal/http"
	"gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()
	repo := be.Repository

	m := metrics.New()
	caches := cache.NewManager()
	homeSvc, loc, err := cli.NewHomeService(cfg, logger, repo, m, caches)
	if err != nil {
		logger.Error("Failed to configure home screen", "error", err)
		os.Exit(1)
	}
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	// Subscribe before the first read so that no commit is missed.
	changes, cancelChanges := repo.Subscribe(64)
	defer cancelChanges()
	if err := homeSvc.Refresh(ctx); err != nil {
		logger.Error("Initial home refresh failed", "error", err)
		os.Exit(1)
	}

	deps := apphttp.Deps{
		Home:     homeSvc,
		Expenses: services.NewExpenseService(repo),
		Catalog:  services.NewCatalogService(repo),
		Metrics:  m,
		Logger:   logger,
		Location: loc,
	}
	if p, ok := repo.(apphttp.Pinger); ok {
		deps.Ready = p
	}
	srv := apphttp.NewServer(":"+cfg.Port, deps)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return homeSvc.Run(gctx, changes)
	})
	if be.Publisher != nil {
		published, cancelPublished := repo.Subscribe(256)
		defer cancelPublished()
		g.Go(func() error {
			return services.RelayChanges(gctx, published, be.Publisher)
		})
	}
	g.Go(func() error {
		logger.Info("Starting gastos server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
