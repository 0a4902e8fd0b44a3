package report

import (
	"sort"

	"finance/internal/colors"
	"finance/internal/core"

	"github.com/shopspring/decimal"
)

// Summary holds the totals shown under the register.
type Summary struct {
	CreditCount     int
	CreditTotal     decimal.Decimal
	DebitCount      int
	DebitTotal      decimal.Decimal
	StartingBalance decimal.Decimal
	EndingBalance   decimal.Decimal
}

// Net is credits minus debits within the window.
func (s Summary) Net() decimal.Decimal {
	return s.CreditTotal.Sub(s.DebitTotal)
}

// CategoryTotals sums the amounts of the given kind per category. Categories
// with no matching transaction have no entry.
func CategoryTotals(visible []core.Transaction, kind core.Kind) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, tx := range visible {
		if tx.Kind != kind {
			continue
		}
		totals[tx.Category] = totals[tx.Category].Add(tx.Amount)
	}
	return totals
}

// StartingBalance is the signed sum of every transaction dated before start.
func StartingBalance(src Source, start core.Date) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range src.Transactions() {
		if tx.Date.Before(start) {
			total = total.Add(tx.Signed())
		}
	}
	return total
}

// Summarize counts and totals the visible transactions on top of starting.
func Summarize(visible []core.Transaction, starting decimal.Decimal) Summary {
	s := Summary{
		CreditTotal:     decimal.Zero,
		DebitTotal:      decimal.Zero,
		StartingBalance: starting,
	}
	for _, tx := range visible {
		switch tx.Kind {
		case core.Credit:
			s.CreditCount++
			s.CreditTotal = s.CreditTotal.Add(tx.Amount)
		case core.Debit:
			s.DebitCount++
			s.DebitTotal = s.DebitTotal.Add(tx.Amount)
		}
	}
	s.EndingBalance = starting.Add(s.Net())
	return s
}

// Share is one slice of the category chart.
type Share struct {
	Category string
	Total    decimal.Decimal
	Fraction float64
	Color    string
}

// Shares orders category totals by name and attaches each one's fraction of
// the grand total. Fractions are zero when the grand total is zero.
func Shares(totals map[string]decimal.Decimal) []Share {
	grand := decimal.Zero
	cats := make([]string, 0, len(totals))
	for cat, v := range totals {
		cats = append(cats, cat)
		grand = grand.Add(v)
	}
	sort.Strings(cats)

	out := make([]Share, 0, len(cats))
	for _, cat := range cats {
		s := Share{Category: cat, Total: totals[cat], Color: colors.Hex(cat)}
		if grand.IsPositive() {
			s.Fraction = totals[cat].Div(grand).InexactFloat64()
		}
		out = append(out, s)
	}
	return out
}
