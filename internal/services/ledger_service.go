package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"finance/internal/amqp"
	"finance/internal/budget"
	"finance/internal/cache"
	"finance/internal/core"
	"finance/internal/ledger"
	"finance/internal/log"
	"finance/internal/period"
	"finance/internal/report"
	"finance/internal/store"

	"github.com/shopspring/decimal"
)

// EventPublisher announces committed ledger changes.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

// Options tunes a LedgerService. Zero values take defaults.
type Options struct {
	UndoDepth int
	CacheSize int
	CacheTTL  time.Duration
	Clock     func() core.Date
}

// LedgerService owns the ledger. Every mutation is applied in memory,
// persisted through the document store, then published.
type LedgerService struct {
	mu         sync.Mutex
	ledger     *ledger.Ledger
	history    *ledger.History
	store      store.DocumentStore
	publisher  EventPublisher
	reports    *cache.LRUCache[report.Report]
	logger     *log.Logger
	structured *log.StructuredLogger
}

// Suggestions feeds the name and category autocompletion.
type Suggestions struct {
	Names      []string
	Categories []string
	Category   string
	Found      bool
}

func NewLedgerService(st store.DocumentStore, publisher EventPublisher, logger *log.Logger, opts Options) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	if opts.UndoDepth <= 0 {
		opts.UndoDepth = ledger.DefaultHistoryDepth
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}
	var ledgerOpts []ledger.Option
	if opts.Clock != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithClock(opts.Clock))
	}
	return &LedgerService{
		ledger:     ledger.New(ledgerOpts...),
		history:    ledger.NewHistory(opts.UndoDepth),
		store:      st,
		publisher:  publisher,
		reports:    cache.NewLRUCache[report.Report](opts.CacheSize, opts.CacheTTL),
		logger:     logger.WithComponent(log.ComponentLedger),
		structured: log.NewStructuredLogger(logger),
	}
}

// ReportCache exposes the report cache for periodic cleanup.
func (s *LedgerService) ReportCache() cache.Cleaner {
	return s.reports
}

// Load replaces the in-memory ledger with the stored document. An empty
// store leaves the ledger empty.
func (s *LedgerService) Load(ctx context.Context) error {
	doc, err := s.store.Load(ctx)
	if errors.Is(err, store.ErrNoDocument) {
		s.logger.InfoContext(ctx, "No stored ledger, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ledger.Deserialize(doc); err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	s.history.Clear()
	s.reports.Purge()

	s.logger.InfoContext(ctx, "Ledger loaded",
		"transactions", s.ledger.Len(),
		"budgets", len(s.ledger.Budgets()),
		log.FieldRevision, s.ledger.Revision())
	return nil
}

// Create records a new transaction.
func (s *LedgerService) Create(ctx context.Context, d ledger.Draft) (core.Transaction, error) {
	cmd := &ledger.CreateCommand{Draft: d}
	if err := s.do(ctx, cmd); err != nil {
		return core.Transaction{}, err
	}
	return cmd.Created, nil
}

// Update patches an existing transaction. An empty patch records nothing.
func (s *LedgerService) Update(ctx context.Context, id int64, p ledger.Patch) (core.Transaction, error) {
	if p.IsEmpty() {
		return s.Transaction(id)
	}
	cmd := &ledger.UpdateCommand{ID: id, Patch: p}
	if err := s.do(ctx, cmd); err != nil {
		return core.Transaction{}, err
	}
	return cmd.Updated, nil
}

func (s *LedgerService) Delete(ctx context.Context, id int64) error {
	return s.do(ctx, &ledger.DeleteCommand{ID: id})
}

// SetBudget sets the monthly budget of category; a nil amount clears it.
func (s *LedgerService) SetBudget(ctx context.Context, category string, amount *decimal.Decimal) error {
	return s.do(ctx, &ledger.BudgetCommand{Category: category, Amount: amount})
}

// Undo reverts the latest mutation and returns what it was.
func (s *LedgerService) Undo(ctx context.Context) (string, error) {
	return s.travel(ctx, amqp.OpUndo, s.history.Undo, ledger.Command.Apply)
}

// Redo reapplies the latest undone mutation.
func (s *LedgerService) Redo(ctx context.Context) (string, error) {
	return s.travel(ctx, amqp.OpRedo, s.history.Redo, ledger.Command.Revert)
}

func (s *LedgerService) do(ctx context.Context, cmd ledger.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := s.history.Checkpoint()
	if err := s.history.Do(s.ledger, cmd); err != nil {
		return err
	}
	if err := s.commit(ctx, cmd.Describe(), cmd); err != nil {
		s.rollback(ctx, cmd.Describe(), cp, cmd.Revert)
		return err
	}
	return nil
}

// travel runs one undo or redo step; inverse takes the ledger back if the
// step cannot be saved.
func (s *LedgerService) travel(ctx context.Context, op string,
	step func(*ledger.Ledger) (ledger.Command, error),
	inverse func(ledger.Command, *ledger.Ledger) error,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := s.history.Checkpoint()
	cmd, err := step(s.ledger)
	if err != nil {
		return "", err
	}
	if err := s.commit(ctx, op, cmd); err != nil {
		s.rollback(ctx, op, cp, func(l *ledger.Ledger) error { return inverse(cmd, l) })
		return "", err
	}
	return cmd.Describe(), nil
}

// commit persists and publishes a change already applied in memory.
// Callers hold s.mu and roll the change back when commit fails.
func (s *LedgerService) commit(ctx context.Context, op string, cmd ledger.Command) error {
	rev := s.ledger.Revision()
	fields := log.NewFields()
	tx, hasTx := affected(cmd, op == amqp.OpUndo)
	if hasTx {
		fields = fields.WithTransaction(tx.ID, string(tx.Kind), core.FormatAmount(tx.Amount), tx.Category, tx.Date.String())
	}

	if err := s.store.Save(ctx, s.ledger.Serialize()); err != nil {
		s.structured.LogError(ctx, "Failed to persist ledger", err, log.ComponentStorage, op, fields.WithRevision(rev))
		return fmt.Errorf("save ledger after %s: %w", op, err)
	}
	s.structured.LogMutation(ctx, op, rev, fields)

	msg := amqp.NewLedgerEventMessage(op, rev)
	if hasTx {
		msg.WithTransaction(tx.ID, tx.Category, tx.Date.String())
	} else if b, ok := cmd.(*ledger.BudgetCommand); ok {
		msg.Category = b.Category
	}
	s.publish(ctx, msg)
	return nil
}

// rollback undoes an unsaved change in memory and puts history back to cp.
// The revision still advances.
func (s *LedgerService) rollback(ctx context.Context, op string, cp ledger.Checkpoint, undo func(*ledger.Ledger) error) {
	if err := undo(s.ledger); err != nil {
		s.structured.LogError(ctx, "Failed to roll back unsaved change", err, log.ComponentLedger, op,
			log.NewFields().WithRevision(s.ledger.Revision()))
	}
	s.history.Restore(cp)
}

func (s *LedgerService) publish(ctx context.Context, msg *amqp.LedgerEventMessage) {
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping ledger event", log.FieldOperation, msg.Op)
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldOperation, msg.Op,
			log.FieldRevision, msg.Revision,
			log.FieldError, err)
	}
}

// affected returns the transaction a command touched, in the state the
// ledger now holds.
func affected(cmd ledger.Command, undone bool) (core.Transaction, bool) {
	switch c := cmd.(type) {
	case *ledger.CreateCommand:
		return c.Created, true
	case *ledger.UpdateCommand:
		if undone {
			return c.Before, true
		}
		return c.Updated, true
	case *ledger.DeleteCommand:
		return c.Deleted, true
	default:
		return core.Transaction{}, false
	}
}

// Transaction looks up one transaction by id.
func (s *LedgerService) Transaction(id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.ledger.Transaction(id)
	if !ok {
		return core.Transaction{}, fmt.Errorf("%w: id %d", core.ErrNotFound, id)
	}
	return tx, nil
}

func (s *LedgerService) Today() core.Date {
	return s.ledger.Today()
}

func (s *LedgerService) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Revision()
}

// CanUndo and CanRedo report whether history has a step available.
func (s *LedgerService) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *LedgerService) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// Report returns the report for w, built once per ledger revision.
func (s *LedgerService) Report(w period.Window) report.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reportLocked(w)
}

func (s *LedgerService) reportLocked(w period.Window) report.Report {
	key := fmt.Sprintf("%d:%s:%d", s.ledger.Revision(), w.Granularity, w.Start.Ordinal())
	if r, ok := s.reports.Get(key); ok {
		return r
	}
	r := report.Build(s.ledger, w)
	s.reports.Set(key, r)
	return r
}

// Budgets evaluates every budget against the debits of w.
func (s *LedgerService) Budgets(w period.Window) []budget.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return budget.Evaluate(s.reportLocked(w), s.ledger.Budgets(), s.ledger.Today())
}

// Chart returns the category shares of one kind within w.
func (s *LedgerService) Chart(w period.Window, kind core.Kind) []report.Share {
	return report.Shares(s.Report(w).Totals(kind))
}

// Suggest lists known names and categories, and the category last used with
// name when there is one.
func (s *LedgerService) Suggest(name string) Suggestions {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Suggestions{
		Names:      s.ledger.Names(),
		Categories: s.ledger.Categories(),
	}
	if name != "" {
		out.Category, out.Found = s.ledger.SuggestCategory(name)
	}
	return out
}

// Document serializes the current ledger.
func (s *LedgerService) Document() ledger.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Serialize()
}

// ReplaceDocument loads doc over the current ledger and clears history. A
// malformed document, or one that cannot be saved, leaves everything
// unchanged.
func (s *LedgerService) ReplaceDocument(ctx context.Context, doc ledger.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.ledger.Serialize()
	cp := s.history.Checkpoint()
	if err := s.ledger.Deserialize(doc); err != nil {
		return err
	}
	s.history.Clear()
	s.reports.Purge()
	if err := s.commit(ctx, amqp.OpLoad, nil); err != nil {
		s.rollback(ctx, amqp.OpLoad, cp, func(l *ledger.Ledger) error { return l.Deserialize(previous) })
		return err
	}
	return nil
}

// Ping checks the store when it can be checked.
func (s *LedgerService) Ping(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return ctx.Err()
}

// Close releases the store and publisher.
func (s *LedgerService) Close() error {
	var errs []error

	if c, ok := s.store.(store.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
