// Package cli holds the bootstrap steps shared by cmd/fintrack,
// cmd/recurring-worker and cmd/ledger-sync-worker.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Bootstrap loads .env and the configuration, then installs the logger for
// component. validate runs after the base Validate when non-nil.
func Bootstrap(component string, validate func(*config.Config) error) (*config.Config, *applog.Logger, error) {
	LoadEnvFile()
	cfg := config.Load()

	logger, err := applog.Setup(component, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("setup logger: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, logger, err
	}
	if validate != nil {
		if err := validate(cfg); err != nil {
			return nil, logger, err
		}
	}
	return cfg, logger, nil
}

// MustBootstrap is Bootstrap that exits the process on failure.
func MustBootstrap(component string, validate func(*config.Config) error) (*config.Config, *applog.Logger) {
	cfg, logger, err := Bootstrap(component, validate)
	if err != nil {
		if logger != nil {
			logger.Error("Configuration validation failed", "error", err)
		} else {
			slog.Error("Startup failed", "error", err)
		}
		os.Exit(1)
	}
	return cfg, logger
}

// InitSQLite opens and migrates the database, exiting on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
