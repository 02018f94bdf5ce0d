// Package cli holds the startup and shutdown steps the pnljournal binaries
// share.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pnljournal/internal/config"
	applog "pnljournal/internal/log"
	"pnljournal/internal/storage"
)

// SetupLogger installs a stdout logger at LOG_LEVEL as the slog default.
// An unknown level means info.
func SetupLogger(level, component string) *applog.Logger {
	lvl, _ := config.ParseLevel(level)
	logger := applog.New(applog.Config{Level: lvl, Component: component, Output: os.Stdout})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile reads .env when present.
func LoadEnvFile() {
	_ = godotenv.Load()
}

func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fatal(logger, "Configuration validation failed", "error", err)
	}
	return cfg
}

func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		fatal(logger, "Failed to initialize SQLite repository", "error", err, "path", dbPath)
	}
	return repo
}

func fatal(logger *applog.Logger, msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}

// GracefulShutdown cancels the returned context on SIGINT or SIGTERM, then
// runs cleanup for at most timeout. done is closed when cleanup returns or
// the timeout passes, whichever comes first.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		stop()
		logger.Info("Shutdown signal received", "cause", context.Cause(ctx))

		cleaned := make(chan struct{})
		go func() {
			defer close(cleaned)
			if cleanup != nil {
				cleanup()
			}
		}()

		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-cleaned:
			logger.Info("Shutdown complete")
		case <-timer.C:
			logger.Warn("Shutdown timeout reached", "timeout", timeout)
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the signal arrived and cleanup is over.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
