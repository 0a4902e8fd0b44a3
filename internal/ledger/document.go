package ledger

import (
	"encoding/json"
	"fmt"

	"finance/internal/core"

	"github.com/shopspring/decimal"
)

// Document is the persisted form of a ledger. Field presence is tracked
// with pointers so that a missing field can be told apart from a zero one.
type Document struct {
	NextID       *int64                  `json:"next_id"`
	Transactions []TransactionRecord     `json:"transactions"`
	Budgets      map[string]BudgetRecord `json:"budgets"`
}

// TransactionRecord stores dates as proleptic day ordinals.
type TransactionRecord struct {
	ID       *int64       `json:"id"`
	Name     *string      `json:"name"`
	Type     *string      `json:"type"`
	Amount   *json.Number `json:"amount"`
	Date     *int64       `json:"date"`
	Category *string      `json:"category"`
}

type BudgetRecord struct {
	Amount *json.Number `json:"amount"`
}

// ParseDocument decodes JSON bytes. Unknown fields are ignored.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", core.ErrMalformedDocument, err)
	}
	return doc, nil
}

// Marshal encodes the document as indented JSON.
func (d Document) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Serialize snapshots the ledger. Transactions keep insertion order.
func (l *Ledger) Serialize() Document {
	next := l.nextID
	doc := Document{
		NextID:       &next,
		Transactions: make([]TransactionRecord, 0, len(l.transactions)),
		Budgets:      make(map[string]BudgetRecord, len(l.budgets)),
	}
	for _, tx := range l.transactions {
		doc.Transactions = append(doc.Transactions, recordOf(*tx))
	}
	for cat, amount := range l.budgets {
		n := json.Number(amount.String())
		doc.Budgets[cat] = BudgetRecord{Amount: &n}
	}
	return doc
}

func recordOf(tx core.Transaction) TransactionRecord {
	id := tx.ID
	name := tx.Name
	kind := string(tx.Kind)
	amount := json.Number(tx.Amount.String())
	date := tx.Date.Ordinal()
	category := tx.Category
	return TransactionRecord{
		ID:       &id,
		Name:     &name,
		Type:     &kind,
		Amount:   &amount,
		Date:     &date,
		Category: &category,
	}
}

// Deserialize replaces the ledger content with doc. On error the ledger is
// left untouched.
func (l *Ledger) Deserialize(doc Document) error {
	if doc.NextID == nil {
		return fmt.Errorf("%w: next_id is missing", core.ErrMalformedDocument)
	}
	next := *doc.NextID
	if next < 0 {
		return fmt.Errorf("%w: next_id %d is negative", core.ErrMalformedDocument, next)
	}

	txs := make([]*core.Transaction, 0, len(doc.Transactions))
	index := make(map[int64]int, len(doc.Transactions))
	for i, rec := range doc.Transactions {
		tx, err := rec.transaction()
		if err != nil {
			return fmt.Errorf("%w: transaction %d: %v", core.ErrMalformedDocument, i, err)
		}
		if tx.ID >= next {
			return fmt.Errorf("%w: transaction id %d is not below next_id %d", core.ErrMalformedDocument, tx.ID, next)
		}
		if _, dup := index[tx.ID]; dup {
			return fmt.Errorf("%w: duplicate transaction id %d", core.ErrMalformedDocument, tx.ID)
		}
		index[tx.ID] = len(txs)
		txs = append(txs, &tx)
	}

	budgets := make(map[string]decimal.Decimal, len(doc.Budgets))
	for cat, rec := range doc.Budgets {
		if rec.Amount == nil {
			return fmt.Errorf("%w: budget %q has no amount", core.ErrMalformedDocument, cat)
		}
		amount, err := decimal.NewFromString(rec.Amount.String())
		if err != nil {
			return fmt.Errorf("%w: budget %q: %v", core.ErrMalformedDocument, cat, err)
		}
		if amount.IsNegative() {
			return fmt.Errorf("%w: budget %q is negative", core.ErrMalformedDocument, cat)
		}
		budgets[cat] = amount
	}

	l.nextID = next
	l.transactions = txs
	l.index = index
	l.budgets = budgets
	l.touch()
	return nil
}

func (r TransactionRecord) transaction() (core.Transaction, error) {
	switch {
	case r.ID == nil:
		return core.Transaction{}, fmt.Errorf("missing id")
	case r.Name == nil:
		return core.Transaction{}, fmt.Errorf("missing name")
	case r.Type == nil:
		return core.Transaction{}, fmt.Errorf("missing type")
	case r.Amount == nil:
		return core.Transaction{}, fmt.Errorf("missing amount")
	case r.Date == nil:
		return core.Transaction{}, fmt.Errorf("missing date")
	case r.Category == nil:
		return core.Transaction{}, fmt.Errorf("missing category")
	}

	amount, err := decimal.NewFromString(r.Amount.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %v", r.Amount.String(), err)
	}
	if *r.Date < core.MinOrdinal || *r.Date > core.MaxOrdinal {
		return core.Transaction{}, fmt.Errorf("date ordinal %d out of range", *r.Date)
	}
	tx := core.Transaction{
		ID:       *r.ID,
		Name:     *r.Name,
		Kind:     core.Kind(*r.Type),
		Amount:   amount,
		Date:     core.DateFromOrdinal(*r.Date),
		Category: *r.Category,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}
