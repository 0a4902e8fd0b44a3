package main

import (
	"context"
	"errors"
	"os"

	"finance/internal/cli"
	"finance/internal/config"
	"finance/internal/log"
	"finance/internal/period"
	"finance/internal/sheets"
	gsheet "finance/internal/sheets/google"
	mem "finance/internal/sheets/memory"
	"finance/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentWorker)

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Memory backend is private to this process, exports will only see an empty ledger")
	}
	backendResult, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if backendResult.Cleanup != nil {
		defer func() {
			if err := backendResult.Cleanup(); err != nil {
				logger.Error("Failed to close storage backend", log.FieldError, err)
			}
		}()
	}

	var exporter sheets.RegisterExporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.NewFromConfig(ctx, cfg, logger)
		if err != nil {
			return err
		}
		exporter = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		exporter = mem.New()
		logger.Info("Google Sheets disabled - registers are exported in memory only")
	}

	granularity, err := period.ParseGranularity(cfg.ExportGranularity)
	if err != nil {
		return err
	}
	w := worker.NewExportWorker(backendResult.Store, exporter, worker.ExportWorkerConfig{
		Granularity: granularity,
		Interval:    cfg.ExportInterval,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})

	if client := cli.ConnectAMQP(cfg, logger); client != nil {
		defer client.Close()
		g.Go(func() error {
			err := client.ConsumeLedgerEvents(gctx, w.HandleLedgerEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Warn("AMQP client not available, skipping event consumption; relying on periodic exports")
	}

	logger.Info("Starting finance-worker",
		log.FieldGranularity, granularity.String(),
		"interval", cfg.ExportInterval.String())
	return g.Wait()
}
