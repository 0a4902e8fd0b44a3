// Package budget compares category spending with monthly budgets.
package budget

import (
	"sort"

	"finance/internal/colors"
	"finance/internal/core"
	"finance/internal/period"
	"finance/internal/report"

	"github.com/shopspring/decimal"
)

// OverSentinel is the ratio reported when something was spent against a
// zero budget. It classifies as over and stays JSON friendly.
const OverSentinel = 1e9

const (
	StatusOK    Status = "ok"
	StatusAhead Status = "ahead"
	StatusOver  Status = "over"
)

// Status is how spending compares with the budget and the elapsed period.
type Status string

var (
	daysPerMonth   = decimal.NewFromInt(30)
	weeksPerMonth  = decimal.NewFromInt(4)
	monthsPerYear  = decimal.NewFromInt(12)
	divisionDigits = int32(16)
)

// Normalize scales a monthly budget to granularity g. Forever has no
// meaningful budget and ok is false.
func Normalize(monthly decimal.Decimal, g period.Granularity) (decimal.Decimal, bool) {
	switch g {
	case period.Day:
		return monthly.DivRound(daysPerMonth, divisionDigits), true
	case period.Week:
		return monthly.DivRound(weeksPerMonth, divisionDigits), true
	case period.Month:
		return monthly, true
	case period.Year:
		return monthly.Mul(monthsPerYear), true
	default:
		return decimal.Zero, false
	}
}

// Ratio is spent/budget for display. A zero budget gives OverSentinel when
// anything was spent and 0 otherwise.
func Ratio(spent, budget decimal.Decimal) float64 {
	if budget.IsZero() {
		if spent.IsPositive() {
			return OverSentinel
		}
		return 0
	}
	return spent.DivRound(budget, divisionDigits).InexactFloat64()
}

// Classify marks spending above the budget as over, comparing the decimals
// exactly, and spending ahead of the elapsed part of the period as ahead.
func Classify(spent, budget decimal.Decimal, elapsed float64, hasElapsed bool) Status {
	switch {
	case spent.Cmp(budget) > 0:
		return StatusOver
	case hasElapsed && Ratio(spent, budget) > elapsed:
		return StatusAhead
	default:
		return StatusOK
	}
}

// Line is one row of the budget screen.
type Line struct {
	Category string
	Spent    decimal.Decimal
	Color    string

	// Budget fields are only set when HasBudget is true.
	HasBudget  bool
	Monthly    decimal.Decimal
	Normalized decimal.Decimal
	Ratio      float64
	Status     Status
}

// Evaluate builds one line per category with debit spending in the report or
// a budget, sorted by category. At Forever granularity lines carry spending
// only.
func Evaluate(r report.Report, budgets map[string]decimal.Decimal, today core.Date) []Line {
	cats := make(map[string]struct{}, len(r.Debits)+len(budgets))
	for cat := range r.Debits {
		cats[cat] = struct{}{}
	}
	for cat := range budgets {
		cats[cat] = struct{}{}
	}
	names := make([]string, 0, len(cats))
	for cat := range cats {
		names = append(names, cat)
	}
	sort.Strings(names)

	elapsed, hasElapsed := r.Window.ElapsedRatio(today)

	lines := make([]Line, 0, len(names))
	for _, cat := range names {
		spent, ok := r.Debits[cat]
		if !ok {
			spent = decimal.Zero
		}
		line := Line{Category: cat, Spent: spent, Color: colors.Hex(cat)}
		if monthly, ok := budgets[cat]; ok {
			if normalized, ok := Normalize(monthly, r.Window.Granularity); ok {
				line.HasBudget = true
				line.Monthly = monthly
				line.Normalized = normalized
				line.Ratio = Ratio(spent, normalized)
				line.Status = Classify(spent, normalized, elapsed, hasElapsed)
			}
		}
		lines = append(lines, line)
	}
	return lines
}
