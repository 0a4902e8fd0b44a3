// Package memory keeps the ledger document in process memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"finance/internal/ledger"
	"finance/internal/store"
)

type Store struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

func New() *Store {
	return &Store{}
}

// Load returns a deep copy of the last saved document.
func (s *Store) Load(_ context.Context) (ledger.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return ledger.Document{}, store.ErrNoDocument
	}
	return ledger.ParseDocument(s.data)
}

// Save keeps an encoded copy so later changes to doc do not leak in.
func (s *Store) Save(_ context.Context, doc ledger.Document) error {
	data, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
