// Package storage keeps the ledger document in SQLite, one row per
// transaction and budget.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"finance/internal/ledger"
	"finance/internal/log"
	"finance/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load implements store.DocumentStore.
func (r *SQLiteRepository) Load(ctx context.Context) (ledger.Document, error) {
	var next int64
	err := r.db.QueryRowContext(ctx, `SELECT next_id FROM ledger_meta WHERE id = 1`).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Document{}, store.ErrNoDocument
	}
	if err != nil {
		return ledger.Document{}, fmt.Errorf("read ledger meta: %w", err)
	}

	doc := ledger.Document{
		NextID:  &next,
		Budgets: make(map[string]ledger.BudgetRecord),
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, amount, date, category FROM transactions ORDER BY position, id`)
	if err != nil {
		return ledger.Document{}, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, date             int64
			name, kind, category string
			amount               string
		)
		if err := rows.Scan(&id, &name, &kind, &amount, &date, &category); err != nil {
			return ledger.Document{}, fmt.Errorf("scan transaction: %w", err)
		}
		n := json.Number(amount)
		doc.Transactions = append(doc.Transactions, ledger.TransactionRecord{
			ID:       &id,
			Name:     &name,
			Type:     &kind,
			Amount:   &n,
			Date:     &date,
			Category: &category,
		})
	}
	if err := rows.Err(); err != nil {
		return ledger.Document{}, fmt.Errorf("iterate transactions: %w", err)
	}

	brows, err := r.db.QueryContext(ctx, `SELECT category, amount FROM budgets`)
	if err != nil {
		return ledger.Document{}, fmt.Errorf("query budgets: %w", err)
	}
	defer brows.Close()

	for brows.Next() {
		var category, amount string
		if err := brows.Scan(&category, &amount); err != nil {
			return ledger.Document{}, fmt.Errorf("scan budget: %w", err)
		}
		n := json.Number(amount)
		doc.Budgets[category] = ledger.BudgetRecord{Amount: &n}
	}
	if err := brows.Err(); err != nil {
		return ledger.Document{}, fmt.Errorf("iterate budgets: %w", err)
	}

	return doc, nil
}

// Save implements store.DocumentStore. All rows are replaced in a single
// transaction.
func (r *SQLiteRepository) Save(ctx context.Context, doc ledger.Document) error {
	if doc.NextID == nil {
		return fmt.Errorf("save document: next_id is missing")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_meta (id, next_id, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET next_id = excluded.next_id, updated_at = excluded.updated_at`,
		*doc.NextID); err != nil {
		return fmt.Errorf("write ledger meta: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	insertTx, err := tx.PrepareContext(ctx,
		`INSERT INTO transactions (id, position, name, type, amount, date, category) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare transaction insert: %w", err)
	}
	defer insertTx.Close()

	for i, rec := range doc.Transactions {
		if rec.ID == nil || rec.Name == nil || rec.Type == nil || rec.Amount == nil || rec.Date == nil || rec.Category == nil {
			return fmt.Errorf("save document: transaction %d is incomplete", i)
		}
		if _, err := insertTx.ExecContext(ctx,
			*rec.ID, i, *rec.Name, *rec.Type, rec.Amount.String(), *rec.Date, *rec.Category); err != nil {
			return fmt.Errorf("insert transaction %d: %w", *rec.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM budgets`); err != nil {
		return fmt.Errorf("clear budgets: %w", err)
	}
	for category, rec := range doc.Budgets {
		if rec.Amount == nil {
			return fmt.Errorf("save document: budget %q has no amount", category)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO budgets (category, amount) VALUES (?, ?)`, category, rec.Amount.String()); err != nil {
			return fmt.Errorf("insert budget %q: %w", category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.logger.DebugContext(ctx, "Ledger document saved",
		log.FieldOperation, log.OpSave,
		"transactions", len(doc.Transactions),
		"budgets", len(doc.Budgets))
	return nil
}
