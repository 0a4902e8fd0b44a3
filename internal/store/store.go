// Package store defines where ledger documents are kept between runs.
package store

import (
	"context"
	"errors"

	"finance/internal/ledger"
)

// ErrNoDocument is returned by Load when nothing has been saved yet.
var ErrNoDocument = errors.New("no ledger document stored")

// DocumentStore persists whole ledger documents.
type DocumentStore interface {
	Load(ctx context.Context) (ledger.Document, error)
	Save(ctx context.Context, doc ledger.Document) error
}

// Closer is implemented by stores holding external resources.
type Closer interface {
	Close() error
}
