package main

import (
	"context"
	"flag"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/clock"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	once := flag.Bool("once", false, "process due rules a single time and exit")
	flag.Parse()

	cfg, logger := cli.MustBootstrap(applog.ComponentScheduler, nil)
	logger.Info("Starting recurring-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, stop := cli.SignalContext()
	defer stop()

	// Materialized transactions are published so the ledger-sync-worker
	// picks them up like manual ones.
	var publisher services.TransactionPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode", "error", err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP client initialized - transactions will sync via ledger-sync-worker")
		}
	} else {
		logger.Info("AMQP disabled - transactions will not sync to the ledger")
	}

	processor := services.NewRecurringProcessor(repo, publisher)
	scheduler := services.NewRecurringScheduler(processor, repo, clock.System{}, services.SchedulerConfig{
		Interval:   cfg.RecurringInterval,
		RunOnStart: true,
	})

	if *once {
		count := scheduler.RunOnce(ctx)
		logger.Info("Single run complete", "processed", count)
		return
	}

	logger.Info("Recurring processor configured",
		"interval", cfg.RecurringInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start recurring scheduler", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("Shutdown timeout reached", "error", err)
		return
	}
	logger.Info("Recurring-worker shutdown complete")
}
