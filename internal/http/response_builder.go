// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for JSON responses and the
// wire shapes of the API.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finance/internal/budget"
	"finance/internal/colors"
	"finance/internal/core"
	"finance/internal/ledger"
	"finance/internal/period"
	"finance/internal/report"
	"finance/internal/services"

	"github.com/shopspring/decimal"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

func (b *JSONResponseBuilder) Header(key, value string) *JSONResponseBuilder {
	b.headers[key] = value
	return b
}

// Error sets the status derived from err and an {"error": ...} body.
func (b *JSONResponseBuilder) Error(err error) *JSONResponseBuilder {
	b.statusCode = statusFor(err)
	msg := err.Error()
	if b.statusCode == http.StatusInternalServerError {
		msg = "internal error"
	}
	b.body = errorResponse{Error: msg}
	return b
}

// Write sends the response. A nil body writes no content.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) error {
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	return json.NewEncoder(w).Encode(b.body)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidDate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrMalformedDocument), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidPeriod),
		errors.Is(err, ledger.ErrNothingToUndo),
		errors.Is(err, ledger.ErrNothingToRedo):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type transactionResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Amount   string `json:"amount"`
	Date     string `json:"date"`
	Category string `json:"category"`
}

func newTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:       tx.ID,
		Name:     tx.Name,
		Type:     string(tx.Kind),
		Amount:   core.FormatAmount(tx.Amount),
		Date:     tx.Date.String(),
		Category: tx.Category,
	}
}

func newTransactionList(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, newTransactionResponse(tx))
	}
	return out
}

type periodResponse struct {
	Granularity string   `json:"granularity"`
	Start       string   `json:"start"`
	End         string   `json:"end,omitempty"`
	Label       string   `json:"label"`
	Elapsed     *float64 `json:"elapsed,omitempty"`
	Navigable   bool     `json:"navigable"`
}

func newPeriodResponse(w period.Window, today core.Date) periodResponse {
	p := periodResponse{
		Granularity: w.Granularity.String(),
		Start:       w.Start.String(),
		Label:       w.Label(),
		Navigable:   w.Granularity.Navigable(),
	}
	if end, ok := w.End(); ok {
		p.End = end.String()
	}
	if ratio, ok := w.ElapsedRatio(today); ok {
		p.Elapsed = &ratio
	}
	return p
}

type summaryResponse struct {
	CreditCount     int    `json:"credit_count"`
	CreditTotal     string `json:"credit_total"`
	DebitCount      int    `json:"debit_count"`
	DebitTotal      string `json:"debit_total"`
	Net             string `json:"net"`
	StartingBalance string `json:"starting_balance"`
	EndingBalance   string `json:"ending_balance"`
}

type reportResponse struct {
	Period       periodResponse        `json:"period"`
	Transactions []transactionResponse `json:"transactions"`
	Summary      summaryResponse       `json:"summary"`
	Credits      map[string]string     `json:"credits"`
	Debits       map[string]string     `json:"debits"`
	CreditColor  string                `json:"credit_color"`
	DebitColor   string                `json:"debit_color"`
}

func newReportResponse(r report.Report, today core.Date) reportResponse {
	s := r.Summary
	return reportResponse{
		Period:       newPeriodResponse(r.Window, today),
		Transactions: newTransactionList(r.Transactions),
		Summary: summaryResponse{
			CreditCount:     s.CreditCount,
			CreditTotal:     core.FormatAmount(s.CreditTotal),
			DebitCount:      s.DebitCount,
			DebitTotal:      core.FormatAmount(s.DebitTotal),
			Net:             core.FormatAmount(s.Net()),
			StartingBalance: core.FormatAmount(s.StartingBalance),
			EndingBalance:   core.FormatAmount(s.EndingBalance),
		},
		Credits:     formatTotals(r.Credits),
		Debits:      formatTotals(r.Debits),
		CreditColor: colors.CreditHex,
		DebitColor:  colors.DebitHex,
	}
}

func formatTotals(totals map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(totals))
	for cat, v := range totals {
		out[cat] = core.FormatAmount(v)
	}
	return out
}

// shareResponse is one chart slice. TextLight marks colours too light for
// text on a light background.
type shareResponse struct {
	Category  string  `json:"category"`
	Total     string  `json:"total"`
	Fraction  float64 `json:"fraction"`
	Color     string  `json:"color"`
	TextLight bool    `json:"text_light"`
}

func newShareList(shares []report.Share) []shareResponse {
	out := make([]shareResponse, 0, len(shares))
	for _, s := range shares {
		out = append(out, shareResponse{
			Category:  s.Category,
			Total:     core.FormatAmount(s.Total),
			Fraction:  s.Fraction,
			Color:     s.Color,
			TextLight: colors.IsTooLight(s.Color),
		})
	}
	return out
}

type budgetLineResponse struct {
	Category   string   `json:"category"`
	Spent      string   `json:"spent"`
	Color      string   `json:"color"`
	TextLight  bool     `json:"text_light"`
	Monthly    *string  `json:"monthly,omitempty"`
	Normalized *string  `json:"normalized,omitempty"`
	Ratio      *float64 `json:"ratio,omitempty"`
	Status     string   `json:"status,omitempty"`
}

func newBudgetList(lines []budget.Line) []budgetLineResponse {
	out := make([]budgetLineResponse, 0, len(lines))
	for _, l := range lines {
		line := budgetLineResponse{
			Category:  l.Category,
			Spent:     core.FormatAmount(l.Spent),
			Color:     l.Color,
			TextLight: colors.IsTooLight(l.Color),
		}
		if l.HasBudget {
			monthly := core.FormatAmount(l.Monthly)
			normalized := core.FormatAmount(l.Normalized)
			ratio := l.Ratio
			line.Monthly = &monthly
			line.Normalized = &normalized
			line.Ratio = &ratio
			line.Status = string(l.Status)
		}
		out = append(out, line)
	}
	return out
}

type suggestionsResponse struct {
	Names      []string `json:"names"`
	Categories []string `json:"categories"`
	Category   *string  `json:"category"`
}

func newSuggestionsResponse(s services.Suggestions) suggestionsResponse {
	resp := suggestionsResponse{Names: s.Names, Categories: s.Categories}
	if resp.Names == nil {
		resp.Names = []string{}
	}
	if resp.Categories == nil {
		resp.Categories = []string{}
	}
	if s.Found {
		cat := s.Category
		resp.Category = &cat
	}
	return resp
}

type historyResponse struct {
	Operation string `json:"operation"`
	CanUndo   bool   `json:"can_undo"`
	CanRedo   bool   `json:"can_redo"`
}
