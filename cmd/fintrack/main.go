package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/cli"
	"fintrack/internal/clock"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger := cli.MustBootstrap(applog.ComponentApp, nil)
	logger.Info("Starting fintrack API", "environment", cfg.Environment, "port", cfg.Port)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, stop := cli.SignalContext()
	defer stop()

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn)
	if err != nil {
		logger.Error("Failed to initialize token service", "error", err)
		os.Exit(1)
	}

	var google services.GoogleVerifier
	if len(cfg.GoogleClientIDs) > 0 {
		verifier, err := auth.NewGoogleVerifier(cfg.GoogleClientIDs)
		if err != nil {
			logger.Error("Failed to initialize Google verifier", "error", err)
			os.Exit(1)
		}
		google = verifier
	} else {
		logger.Info("Google sign-in disabled - no GOOGLE_CLIENT_IDS provided")
	}

	// Transaction events feed the ledger-sync-worker. The API keeps working
	// without a broker.
	var publisher services.TransactionPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - transactions will not sync to the ledger")
	}

	clk := clock.System{}
	processor := services.NewRecurringProcessor(repo, publisher)
	svc := apphttp.Services{
		Auth:         services.NewAuthService(repo, tokens, google, clk),
		Transactions: services.NewTransactionService(repo, publisher, clk),
		Recurring:    services.NewRecurringService(repo, processor, clk),
		Categories:   services.NewCategoryService(repo, repo, clk),
		Stats:        services.NewStatsService(repo, clk, cfg.Location()),
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, tokens, apphttp.Options{
		Environment:        cfg.Environment,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		StatsCacheTTL:      cfg.StatsCacheTTL,
		TrustedProxies:     cfg.TrustedProxies,
		Ready:              repo.Ping,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
	})

	var scheduler *services.RecurringScheduler
	if cfg.RecurringEmbedded {
		scheduler = services.NewRecurringScheduler(processor, repo, clk, services.SchedulerConfig{
			Interval:   cfg.RecurringInterval,
			RunOnStart: true,
		})
		scheduler.OnProcessed = func(int) { srv.PurgeStats() }
		if err := scheduler.Start(ctx); err != nil {
			logger.Error("Failed to start recurring scheduler", "error", err)
			os.Exit(1)
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Warn("Recurring scheduler stop error", "error", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	logger.Info("fintrack API stopped")
}
