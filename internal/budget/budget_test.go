package budget

import (
	"testing"

	"finance/internal/core"
	"finance/internal/ledger"
	"finance/internal/period"
	"finance/internal/report"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNormalize(t *testing.T) {
	cases := []struct {
		g    period.Granularity
		want string
	}{
		{period.Day, "10"},
		{period.Week, "75"},
		{period.Month, "300"},
		{period.Year, "3600"},
	}
	for _, tc := range cases {
		got, ok := Normalize(dec("300"), tc.g)
		if !ok || !got.Equal(dec(tc.want)) {
			t.Errorf("%s: expected %s, got %s (ok=%v)", tc.g, tc.want, got, ok)
		}
	}
	if _, ok := Normalize(dec("300"), period.Forever); ok {
		t.Fatal("forever has no budget")
	}
}

func TestRatioAndClassify(t *testing.T) {
	cases := []struct {
		name       string
		spent      string
		budget     string
		elapsed    float64
		hasElapsed bool
		want       Status
	}{
		{"zero budget with spending", "50", "0", 0.5, true, StatusOver},
		{"nothing at all", "0", "0", 0.5, true, StatusOK},
		{"over budget", "120", "100", 0.5, true, StatusOver},
		{"exactly on budget", "100", "100", 1, true, StatusOK},
		{"ahead of pace", "60", "100", 0.5, true, StatusAhead},
		{"behind pace", "40", "100", 0.5, true, StatusOK},
		{"no pace for day", "90", "100", 0, false, StatusOK},
		{"a cent over a huge budget", "1000000000000000.01", "1000000000000000", 1, true, StatusOver},
		{"exactly on a huge budget", "1000000000000000", "1000000000000000", 1, true, StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(dec(tc.spent), dec(tc.budget), tc.elapsed, tc.hasElapsed)
			if got != tc.want {
				t.Fatalf("ratio %v: expected %s, got %s", Ratio(dec(tc.spent), dec(tc.budget)), tc.want, got)
			}
		})
	}
	if r := Ratio(dec("50"), decimal.Zero); r != OverSentinel {
		t.Fatalf("expected sentinel, got %v", r)
	}
}

func TestEvaluate(t *testing.T) {
	l := ledger.New()
	for _, d := range []struct {
		kind     core.Kind
		amount   string
		category string
	}{
		{core.Debit, "60", "Food"},
		{core.Debit, "15", ""},
		{core.Credit, "900", "Salary"},
	} {
		kind, amount, cat, date := d.kind, dec(d.amount), d.category, core.NewDate(2024, 4, 3)
		if _, err := l.Create(ledger.Draft{Kind: &kind, Amount: &amount, Category: &cat, Date: &date}); err != nil {
			t.Fatal(err)
		}
	}
	budgets := map[string]decimal.Decimal{"Food": dec("100"), "Travel": dec("50")}
	r := report.Build(l, period.NewWindow(period.Month, core.NewDate(2024, 4, 1)))

	lines := Evaluate(r, budgets, core.NewDate(2024, 4, 16))
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %+v", lines)
	}
	if lines[0].Category != "" || lines[0].HasBudget || !lines[0].Spent.Equal(dec("15")) {
		t.Fatalf("unexpected uncategorized line: %+v", lines[0])
	}
	food := lines[1]
	if food.Category != "Food" || !food.HasBudget || food.Status != StatusAhead {
		t.Fatalf("unexpected food line: %+v", food)
	}
	travel := lines[2]
	if travel.Category != "Travel" || !travel.Spent.IsZero() || travel.Status != StatusOK {
		t.Fatalf("unexpected travel line: %+v", travel)
	}

	forever := Evaluate(report.Build(l, period.NewWindow(period.Forever, core.NewDate(2024, 4, 1))), budgets, core.NewDate(2024, 4, 16))
	for _, line := range forever {
		if line.HasBudget {
			t.Fatalf("forever lines must not compare budgets: %+v", line)
		}
	}
}
