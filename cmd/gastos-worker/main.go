package main

import (
	"context"
	"errors"
	"os"

	"gastos/internal/amqp"
	"gastos/internal/backend"
	"gastos/internal/cli"
	"gastos/internal/log"
	"gastos/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting gastos-worker", log.FieldOperation, log.OpStartup)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	if !backendCfg.Type.Shared() || cfg.AMQPURL == "" {
		logger.Error("The worker needs a shared backend and AMQP_URL",
			"backend", cfg.DataBackend)
		os.Exit(1)
	}

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	// The worker reads the store but never publishes, so it opens the
	// repository without AMQP and consumes with its own client.
	backendCfg.AMQPURL = ""
	be, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	defer be.Cleanup()

	homeSvc, loc, err := cli.NewHomeService(cfg, logger, be.Repository, nil, nil)
	if err != nil {
		logger.Error("Failed to configure home screen", "error", err)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	// Bind the queue before the first read so that no change is missed.
	queue, err := client.DeclareWorkerQueue()
	if err != nil {
		logger.Error("Failed to declare worker queue", "error", err)
		os.Exit(1)
	}
	if err := homeSvc.Refresh(ctx); err != nil {
		logger.Error("Initial home refresh failed", "error", err, "queue", queue)
		os.Exit(1)
	}

	w := worker.NewChangeWorker(homeSvc, loc, logger)
	if err := client.ConsumeChanges(ctx, w.HandleChange); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Change consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
