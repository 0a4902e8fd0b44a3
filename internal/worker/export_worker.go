package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance/internal/amqp"
	"finance/internal/core"
	"finance/internal/ledger"
	"finance/internal/log"
	"finance/internal/period"
	"finance/internal/report"
	"finance/internal/sheets"
	"finance/internal/store"
)

// ExportWorkerConfig holds configuration for the export worker
type ExportWorkerConfig struct {
	// Granularity of the exported register tabs (default: month)
	Granularity period.Granularity

	// Interval between full exports of the current period (default: 15m)
	Interval time.Duration

	// Clock returns today's date (default: core.Today)
	Clock func() core.Date
}

// DefaultExportWorkerConfig returns sensible defaults
func DefaultExportWorkerConfig() ExportWorkerConfig {
	return ExportWorkerConfig{
		Granularity: period.Month,
		Interval:    15 * time.Minute,
		Clock:       core.Today,
	}
}

// ExportWorker keeps the exported registers in step with the stored ledger.
// It never trusts event payloads for amounts: every export rebuilds the
// report from the document in the shared store.
type ExportWorker struct {
	store    store.DocumentStore
	exporter sheets.RegisterExporter
	config   ExportWorkerConfig
	logger   *log.Logger
}

func NewExportWorker(st store.DocumentStore, exporter sheets.RegisterExporter, config ExportWorkerConfig, logger *log.Logger) *ExportWorker {
	defaults := DefaultExportWorkerConfig()
	if !config.Granularity.IsValid() {
		config.Granularity = defaults.Granularity
	}
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Clock == nil {
		config.Clock = defaults.Clock
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		store:    st,
		exporter: exporter,
		config:   config,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleLedgerEvent exports the window holding the event's transaction and
// the current window. A delivery error makes the broker redeliver.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldOperation, msg.Op,
		log.FieldRevision, msg.Revision,
		log.FieldDate, msg.Date)

	windows := []period.Window{w.currentWindow()}
	if msg.Date != "" {
		d, err := core.ParseDate(msg.Date)
		if err != nil {
			w.logger.WarnContext(ctx, "Ignoring bad event date", log.FieldDate, msg.Date, log.FieldError, err)
		} else if ew := period.NewWindow(w.config.Granularity, d); !ew.Start.Equal(windows[0].Start) {
			windows = append(windows, ew)
		}
	}

	if err := w.export(ctx, windows...); err != nil {
		return fmt.Errorf("export after %s event: %w", msg.Op, err)
	}
	return nil
}

// ExportCurrent exports the current window. It backs up event delivery in
// case messages were lost.
func (w *ExportWorker) ExportCurrent(ctx context.Context) error {
	return w.export(ctx, w.currentWindow())
}

// Run exports the current window immediately and then every interval until
// ctx is cancelled. Failed passes are logged and retried on the next tick.
func (w *ExportWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "Periodic export started",
		"interval", w.config.Interval,
		log.FieldGranularity, w.config.Granularity.String())

	w.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Periodic export stopped")
			return nil
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *ExportWorker) runOnce(ctx context.Context) {
	if err := w.ExportCurrent(ctx); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Periodic export failed", log.FieldError, err)
	}
}

func (w *ExportWorker) currentWindow() period.Window {
	return period.Current(w.config.Granularity, w.config.Clock())
}

func (w *ExportWorker) export(ctx context.Context, windows ...period.Window) error {
	l, err := w.load(ctx)
	if err != nil {
		return err
	}
	for _, win := range windows {
		r := report.Build(l, win)
		ref, err := w.exporter.ExportRegister(ctx, r)
		if err != nil {
			return fmt.Errorf("export %s: %w", win.Label(), err)
		}
		w.logger.InfoContext(ctx, "Exported register",
			log.FieldGranularity, win.Granularity.String(),
			log.FieldPeriodStart, win.Start.String(),
			"transactions", len(r.Transactions),
			log.FieldExportRef, ref)
	}
	return nil
}

// load reads the shared document. An empty store exports an empty ledger.
func (w *ExportWorker) load(ctx context.Context) (*ledger.Ledger, error) {
	l := ledger.New(ledger.WithClock(w.config.Clock))
	doc, err := w.store.Load(ctx)
	if errors.Is(err, store.ErrNoDocument) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if err := l.Deserialize(doc); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return l, nil
}
