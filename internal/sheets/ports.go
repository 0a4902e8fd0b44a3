package sheets

import (
	"context"

	"finance/internal/report"
)

// Ports for outbound adapters.
type (
	// RegisterExporter writes the register of one period somewhere outside
	// the ledger. Exports are idempotent: writing the same report twice leaves
	// the destination in the same state.
	RegisterExporter interface {
		ExportRegister(ctx context.Context, r report.Report) (ref string, err error)
	}
)
