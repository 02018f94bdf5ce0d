package main

import (
	"context"
	"errors"
	"os"

	"pnljournal/internal/backend"
	"pnljournal/internal/cli"
	applog "pnljournal/internal/log"
	"pnljournal/internal/sheets"
	gsheet "pnljournal/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()

	// Logs go to stderr so exported CSV on stdout stays clean
	logger := applog.New(applog.Config{Component: applog.ComponentCLI, Output: os.Stderr})
	applog.SetDefault(logger)
	cfg := cli.LoadAndValidateConfig(logger)

	open := func(ctx context.Context) (*backend.BackendResult, error) {
		backendCfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			return nil, err
		}
		return backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	}

	mirror := func(ctx context.Context) (sheets.EntryReader, error) {
		if !cfg.SheetsEnabled() {
			return nil, errors.New("GOOGLE_SPREADSHEET_ID is not set")
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
		return client, nil
	}

	root := newRootCmd(open, mirror, cfg.DefaultUserID)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
