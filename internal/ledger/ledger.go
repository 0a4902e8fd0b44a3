// Package ledger owns the transactions and budgets of one financial
// journal. It is not safe for concurrent use; services.LedgerService
// serialises access to it.
package ledger

import (
	"fmt"
	"sort"
	"strings"

	"finance/internal/core"

	"github.com/shopspring/decimal"
)

// Draft carries the caller-supplied fields of a new transaction. Nil fields
// take their defaults: empty name, debit, zero amount, today, uncategorized.
type Draft struct {
	Name     *string
	Kind     *core.Kind
	Amount   *decimal.Decimal
	Date     *core.Date
	Category *string
}

// Patch carries the fields to change on an existing transaction. Nil
// fields are left alone.
type Patch struct {
	Name     *string
	Kind     *core.Kind
	Amount   *decimal.Decimal
	Date     *core.Date
	Category *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Kind == nil && p.Amount == nil && p.Date == nil && p.Category == nil
}

type Ledger struct {
	nextID       int64
	transactions []*core.Transaction
	index        map[int64]int
	budgets      map[string]decimal.Decimal
	revision     uint64
	today        func() core.Date
}

type Option func(*Ledger)

// WithClock overrides the source of today's date used for defaults.
func WithClock(today func() core.Date) Option {
	return func(l *Ledger) {
		l.today = today
	}
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		index:   make(map[int64]int),
		budgets: make(map[string]decimal.Decimal),
		today:   core.Today,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Create appends a new transaction with id NextID and advances NextID.
func (l *Ledger) Create(d Draft) (core.Transaction, error) {
	tx := core.Transaction{
		ID:     l.nextID,
		Kind:   core.Debit,
		Amount: decimal.Zero,
		Date:   l.today(),
	}
	if d.Name != nil {
		tx.Name = *d.Name
	}
	if d.Kind != nil {
		tx.Kind = *d.Kind
	}
	if d.Amount != nil {
		tx.Amount = *d.Amount
	}
	if d.Date != nil {
		tx.Date = *d.Date
	}
	if d.Category != nil {
		tx.Category = *d.Category
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	l.insert(tx)
	l.nextID++
	l.touch()
	return tx, nil
}

// Delete removes a transaction. Its id is never handed out again.
func (l *Ledger) Delete(id int64) error {
	i, ok := l.index[id]
	if !ok {
		return fmt.Errorf("%w: id %d", core.ErrNotFound, id)
	}
	l.transactions = append(l.transactions[:i], l.transactions[i+1:]...)
	l.reindex()
	l.touch()
	return nil
}

// Update applies a patch. Either every field is written or none is.
func (l *Ledger) Update(id int64, p Patch) (core.Transaction, error) {
	i, ok := l.index[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("%w: id %d", core.ErrNotFound, id)
	}
	updated := *l.transactions[i]
	if p.Name != nil {
		updated.Name = *p.Name
	}
	if p.Kind != nil {
		updated.Kind = *p.Kind
	}
	if p.Amount != nil {
		updated.Amount = *p.Amount
	}
	if p.Date != nil {
		updated.Date = *p.Date
	}
	if p.Category != nil {
		updated.Category = *p.Category
	}
	if err := updated.Validate(); err != nil {
		return core.Transaction{}, err
	}

	*l.transactions[i] = updated
	l.touch()
	return updated, nil
}

// SetBudget sets the monthly budget of a category. A nil amount removes it.
func (l *Ledger) SetBudget(category string, amount *decimal.Decimal) error {
	if amount == nil {
		if _, ok := l.budgets[category]; ok {
			delete(l.budgets, category)
			l.touch()
		}
		return nil
	}
	if err := core.ValidateAmount(*amount); err != nil {
		return err
	}
	l.budgets[category] = *amount
	l.touch()
	return nil
}

func (l *Ledger) Transaction(id int64) (core.Transaction, bool) {
	i, ok := l.index[id]
	if !ok {
		return core.Transaction{}, false
	}
	return *l.transactions[i], true
}

// Transactions returns copies of every transaction in insertion order.
func (l *Ledger) Transactions() []core.Transaction {
	out := make([]core.Transaction, len(l.transactions))
	for i, tx := range l.transactions {
		out[i] = *tx
	}
	return out
}

func (l *Ledger) Len() int {
	return len(l.transactions)
}

func (l *Ledger) Budget(category string) (decimal.Decimal, bool) {
	b, ok := l.budgets[category]
	return b, ok
}

// Budgets returns a copy of the budget map keyed by category.
func (l *Ledger) Budgets() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(l.budgets))
	for k, v := range l.budgets {
		out[k] = v
	}
	return out
}

func (l *Ledger) NextID() int64 {
	return l.nextID
}

// Revision increases on every successful mutation, including loads.
func (l *Ledger) Revision() uint64 {
	return l.revision
}

// Today returns the ledger's notion of the current day.
func (l *Ledger) Today() core.Date {
	return l.today()
}

// Names returns the distinct non-empty transaction names, sorted.
func (l *Ledger) Names() []string {
	return l.distinct(func(tx *core.Transaction) string { return tx.Name })
}

// Categories returns the distinct non-empty categories, sorted.
func (l *Ledger) Categories() []string {
	return l.distinct(func(tx *core.Transaction) string { return tx.Category })
}

func (l *Ledger) distinct(field func(*core.Transaction) string) []string {
	seen := make(map[string]struct{})
	for _, tx := range l.transactions {
		if v := field(tx); v != "" {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// SuggestCategory returns the category of the latest transaction with the
// same name (case-insensitive) that has one.
func (l *Ledger) SuggestCategory(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	var (
		best  *core.Transaction
		found bool
	)
	for _, tx := range l.transactions {
		if tx.Category == "" || !strings.EqualFold(tx.Name, name) {
			continue
		}
		// Later insertion wins ties on date.
		if !found || !tx.Date.Before(best.Date) {
			best, found = tx, true
		}
	}
	if !found {
		return "", false
	}
	return best.Category, true
}

func (l *Ledger) insert(tx core.Transaction) {
	c := tx
	l.transactions = append(l.transactions, &c)
	l.index[c.ID] = len(l.transactions) - 1
}

// restore puts back a previously removed transaction at pos, clamped to
// the current length.
func (l *Ledger) restore(tx core.Transaction, pos int) error {
	if _, ok := l.index[tx.ID]; ok {
		return fmt.Errorf("transaction %d already present", tx.ID)
	}
	pos = max(0, min(pos, len(l.transactions)))
	c := tx
	l.transactions = append(l.transactions, nil)
	copy(l.transactions[pos+1:], l.transactions[pos:])
	l.transactions[pos] = &c
	l.reindex()
	l.touch()
	return nil
}

// position returns the document index of a transaction.
func (l *Ledger) position(id int64) (int, bool) {
	i, ok := l.index[id]
	return i, ok
}

func (l *Ledger) reindex() {
	l.index = make(map[int64]int, len(l.transactions))
	for i, tx := range l.transactions {
		l.index[tx.ID] = i
	}
}

func (l *Ledger) touch() {
	l.revision++
}
