// Package report derives period views and totals from a ledger.
package report

import (
	"sort"

	"finance/internal/core"
	"finance/internal/period"
)

// Source is the read side of a ledger.
type Source interface {
	Transactions() []core.Transaction
}

// Visible returns the transactions inside w in ascending date order. Equal
// dates keep insertion order.
func Visible(src Source, w period.Window) []core.Transaction {
	all := src.Transactions()
	out := make([]core.Transaction, 0, len(all))
	for _, tx := range all {
		if w.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
