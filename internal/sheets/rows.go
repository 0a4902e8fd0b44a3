package sheets

import (
	"strings"

	"finance/internal/core"
	"finance/internal/report"
)

// Header is the first row of every exported register tab.
var Header = []any{"ID", "Date", "Name", "Type", "Category", "Amount"}

// TabName returns the tab title used for a report's window. Sheets rejects a
// few characters in titles, so they are replaced.
func TabName(r report.Report) string {
	replacer := strings.NewReplacer("[", "(", "]", ")", ":", "-", "*", "", "?", "", "/", "-", "\\", "-")
	return replacer.Replace(r.Window.Label())
}

// Rows renders a report as spreadsheet rows: the header, one row per visible
// transaction, a blank separator and the summary. Amounts are plain decimal
// strings with two places.
func Rows(r report.Report) [][]any {
	rows := make([][]any, 0, len(r.Transactions)+8)
	rows = append(rows, Header)
	for _, tx := range r.Transactions {
		rows = append(rows, []any{
			tx.ID,
			tx.Date.String(),
			tx.Name,
			string(tx.Kind),
			tx.Category,
			core.FormatAmount(tx.Amount),
		})
	}

	s := r.Summary
	rows = append(rows,
		[]any{},
		[]any{"Starting balance", core.FormatAmount(s.StartingBalance)},
		[]any{"Credits", s.CreditCount, core.FormatAmount(s.CreditTotal)},
		[]any{"Debits", s.DebitCount, core.FormatAmount(s.DebitTotal)},
		[]any{"Net", core.FormatAmount(s.Net())},
		[]any{"Ending balance", core.FormatAmount(s.EndingBalance)},
	)
	return rows
}
