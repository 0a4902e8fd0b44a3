package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Ledger event operations
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpBudget = "budget"
	OpUndo   = "undo"
	OpRedo   = "redo"
	OpLoad   = "load"
)

// LedgerEventMessage announces a committed ledger change. It carries no
// amounts: consumers reload the document from the shared store.
type LedgerEventMessage struct {
	Op            string    `json:"op"`
	TransactionID *int64    `json:"transaction_id,omitempty"`
	Category      string    `json:"category,omitempty"`
	Date          string    `json:"date,omitempty"`
	Revision      uint64    `json:"revision"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(op string, revision uint64) *LedgerEventMessage {
	return &LedgerEventMessage{
		Op:        op,
		Revision:  revision,
		Timestamp: time.Now().UTC(),
	}
}

// WithTransaction sets the transaction the event is about.
func (m *LedgerEventMessage) WithTransaction(id int64, category, date string) *LedgerEventMessage {
	m.TransactionID = &id
	m.Category = category
	m.Date = date
	return m
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Op == "" {
		return nil, fmt.Errorf("ledger event without op")
	}
	return &msg, nil
}
