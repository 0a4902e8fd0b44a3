package report

import (
	"finance/internal/core"
	"finance/internal/period"

	"github.com/shopspring/decimal"
)

// Report is everything derived from a ledger for one window.
type Report struct {
	Window       period.Window
	Transactions []core.Transaction
	Summary      Summary
	Credits      map[string]decimal.Decimal
	Debits       map[string]decimal.Decimal
}

// Build computes the report for w. The Forever window always starts from a
// zero balance.
func Build(src Source, w period.Window) Report {
	visible := Visible(src, w)
	starting := decimal.Zero
	if w.Granularity != period.Forever {
		starting = StartingBalance(src, w.Start)
	}
	return Report{
		Window:       w,
		Transactions: visible,
		Summary:      Summarize(visible, starting),
		Credits:      CategoryTotals(visible, core.Credit),
		Debits:       CategoryTotals(visible, core.Debit),
	}
}

// Totals returns the per-category totals of one kind.
func (r Report) Totals(kind core.Kind) map[string]decimal.Decimal {
	if kind == core.Credit {
		return r.Credits
	}
	return r.Debits
}
