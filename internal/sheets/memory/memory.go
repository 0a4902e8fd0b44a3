package memory

import (
	"context"
	"fmt"
	"sync"

	"finance/internal/report"
	ports "finance/internal/sheets"
)

// Export is one recorded register export.
type Export struct {
	Tab  string
	Rows [][]any
}

// Store keeps the latest rows per tab in memory.
type Store struct {
	mu      sync.Mutex
	tabs    map[string][][]any
	exports []Export
}

var _ ports.RegisterExporter = (*Store)(nil)

func New() *Store {
	return &Store{tabs: make(map[string][][]any)}
}

// ExportRegister replaces the tab's rows and returns a synthetic reference.
func (s *Store) ExportRegister(ctx context.Context, r report.Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tab := ports.TabName(r)
	rows := ports.Rows(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[tab] = rows
	s.exports = append(s.exports, Export{Tab: tab, Rows: rows})
	return fmt.Sprintf("mem:%s!A1:F%d", tab, len(rows)), nil
}

// Tab returns the rows last written to tab.
func (s *Store) Tab(tab string) ([][]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tabs[tab]
	return rows, ok
}

// Exports returns every export in the order they happened.
func (s *Store) Exports() []Export {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Export(nil), s.exports...)
}
