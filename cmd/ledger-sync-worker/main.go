package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cfg, logger := cli.MustBootstrap(applog.ComponentWorker, (*config.Config).ValidateLedgerSync)
	logger.Info("Starting ledger-sync-worker", "ledger_backend", cfg.LedgerBackend)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, stop := cli.SignalContext()
	defer stop()

	ledgerCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid ledger configuration", "error", err)
		os.Exit(1)
	}
	ledger, err := backend.NewFactory(logger.WithComponent(applog.ComponentSheets).Slog()).CreateLedger(ctx, ledgerCfg)
	if err != nil {
		logger.Error("Failed to initialize ledger", "error", err)
		os.Exit(1)
	}
	if ledger.Cleanup != nil {
		defer ledger.Cleanup()
	}

	amqpClient, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewLedgerSyncWorker(repo, ledger.Ledger)

	done := make(chan error, 1)
	go func() {
		done <- amqpClient.ConsumeTransactionEvents(ctx, syncWorker.HandleTransactionEvent)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			logger.Warn("Shutdown timeout reached")
		}
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}
	logger.Info("Ledger-sync-worker shutdown complete")
}
