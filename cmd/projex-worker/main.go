package main

import (
	"context"
	"os"

	"projex/internal/amqp"
	"projex/internal/backend"
	"projex/internal/cli"
	"projex/internal/config"
	applog "projex/internal/log"
	"projex/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	logger.Info("Starting projex-worker", applog.FieldOperation, applog.OpStartup,
		"ledger", cfg.LedgerBackend, "queue", cfg.AMQPQueue)

	ledgerCfg, err := backend.LedgerFromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid ledger configuration", applog.FieldError, err)
		os.Exit(1)
	}
	ledger, err := backend.NewFactory(logger).OpenLedger(context.Background(), ledgerCfg)
	if err != nil {
		logger.Error("Failed to open ledger", applog.FieldError, err)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}

	w := worker.NewLedgerWorker(ledger.Ledger, logger)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(context.Context) {
		if err := client.Close(); err != nil {
			logger.Warn("AMQP close error", applog.FieldError, err)
		}
		if ledger.Cleanup != nil {
			if err := ledger.Cleanup(); err != nil {
				logger.Warn("Ledger cleanup error", applog.FieldError, err)
			}
		}
		exported, failed := w.Stats()
		logger.Info("Worker stopped", "exported", exported, "failed", failed)
	})

	if err := w.Run(ctx, client); err != nil {
		logger.Error("Worker failed", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
