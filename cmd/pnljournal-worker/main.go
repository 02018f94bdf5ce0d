package main

import (
	"context"
	"errors"
	"os"
	"time"

	"pnljournal/internal/amqp"
	"pnljournal/internal/cli"
	"pnljournal/internal/config"
	applog "pnljournal/internal/log"
	"pnljournal/internal/sheets"
	gsheet "pnljournal/internal/sheets/google"
	memsheet "pnljournal/internal/sheets/memory"
	"pnljournal/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	logger.Info("Starting pnljournal-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	// The worker always reads the sync state from SQLite
	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	mirror, err := newMirror(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(sqliteRepo, mirror, cfg.SyncBatchSize)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
	} else {
		logger.Info("AMQP disabled - relying on scheduled sweeps only")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		logger.Info("Shutting down worker...")
	})

	// Process anything left pending while the worker was down
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
	}

	scheduler := worker.NewScheduler(ctx, syncWorker)
	if err := scheduler.Register(cfg.SyncSchedule); err != nil {
		logger.Error("Failed to register sync schedule", "error", err, "schedule", cfg.SyncSchedule)
		os.Exit(1)
	}
	scheduler.Start()

	if amqpClient != nil {
		amqpLogger := logger.WithComponent(applog.ComponentAMQP)
		go func() {
			if err := amqpClient.ConsumeEntries(ctx, syncWorker); err != nil && !errors.Is(err, context.Canceled) {
				amqpLogger.Error("Message consumption failed", "error", err, "queue", cfg.AMQPQueue)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	scheduler.Stop()
	logger.Info("Worker shutdown complete")
}

// newMirror returns the Google Sheets mirror when configured, otherwise an
// in-process mirror so entries still move through the sync states.
func newMirror(ctx context.Context, cfg *config.Config, logger *applog.Logger) (sheets.EntryMirror, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, using in-memory mirror")
		return memsheet.New(), nil
	}

	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
