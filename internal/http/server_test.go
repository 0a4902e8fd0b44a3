package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finance/internal/colors"
	"finance/internal/core"
	"finance/internal/services"
	"finance/internal/store/memory"
)

var today = core.NewDate(2024, 3, 15)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := services.NewLedgerService(memory.New(), nil, nil, services.Options{
		Clock: func() core.Date { return today },
	})
	srv := NewServer(":0", svc, nil)
	t.Cleanup(srv.rateLimiter.stop)
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func mustCreate(t *testing.T, srv *Server, body string) transactionResponse {
	t.Helper()
	rr := do(t, srv, http.MethodPost, "/transactions", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create %s: status=%d body=%s", body, rr.Code, rr.Body.String())
	}
	return decode[transactionResponse](t, rr)
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/healthz", "")
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing frame options header")
	}
	if !strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_") {
		t.Errorf("request id = %q", rr.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Header().Get("X-Request-ID") != "abc123" {
		t.Errorf("caller request id not echoed, got %q", rr.Header().Get("X-Request-ID"))
	}
}

func TestCreateTransaction(t *testing.T) {
	srv := newTestServer(t)

	tx := mustCreate(t, srv, `{"name": "Groceries", "amount": "12.50+3", "category": "Food"}`)
	if tx.ID != 0 || tx.Amount != "15.50" || tx.Type != "debit" || tx.Date != "2024-03-15" {
		t.Errorf("unexpected transaction %+v", tx)
	}

	tx = mustCreate(t, srv, `{"name": "Salary", "type": "Credit", "amount": 2000, "date": "2024-03-01"}`)
	if tx.ID != 1 || tx.Type != "credit" || tx.Amount != "2000.00" || tx.Category != "" {
		t.Errorf("unexpected transaction %+v", tx)
	}

	tx = mustCreate(t, srv, `{"name": "Bread", "amount": "2,40"}`)
	if tx.Amount != "2.40" {
		t.Errorf("decimal comma amount = %s, want 2.40", tx.Amount)
	}
	tx = mustCreate(t, srv, `{"name": "Split", "amount": "12.340"}`)
	if tx.Amount != "12.34" {
		t.Errorf("trailing zero amount = %s, want 12.34", tx.Amount)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"name":`, http.StatusBadRequest},
		{"trailing data", `{"name": "a"} {}`, http.StatusBadRequest},
		{"bad expression", `{"amount": "12+"}`, http.StatusUnprocessableEntity},
		{"division by zero", `{"amount": "1/0"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"amount": -5}`, http.StatusUnprocessableEntity},
		{"unknown type", `{"type": "transfer"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"date": "2024-13-01"}`, http.StatusUnprocessableEntity},
		{"too many decimals", `{"amount": "12.345"}`, http.StatusUnprocessableEntity},
		{"too many decimals number", `{"amount": 12.345}`, http.StatusUnprocessableEntity},
		{"inexact expression", `{"amount": "10/3"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			rr := do(t, srv, http.MethodPost, "/transactions", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
			if resp := decode[errorResponse](t, rr); resp.Error == "" {
				t.Error("expected error message")
			}
			list := decode[[]transactionResponse](t, do(t, srv, http.MethodGet, "/transactions", ""))
			if len(list) != 0 {
				t.Errorf("failed create left %d transactions", len(list))
			}
		})
	}
}

func TestListTransactionsByWindow(t *testing.T) {
	srv := newTestServer(t)
	mustCreate(t, srv, `{"name": "Rent", "amount": 400, "date": "2024-02-01"}`)
	mustCreate(t, srv, `{"name": "Coffee", "amount": 3, "date": "2024-03-02"}`)
	mustCreate(t, srv, `{"name": "Lunch", "amount": 9, "date": "2024-03-01"}`)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Lunch", "Coffee"}},
		{"?period=month&start=2024-02-10", []string{"Rent"}},
		{"?period=forever", []string{"Rent", "Lunch", "Coffee"}},
		{"?period=day&start=2024-03-02", []string{"Coffee"}},
	}
	for _, tt := range tests {
		rr := do(t, srv, http.MethodGet, "/transactions"+tt.query, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", tt.query, rr.Code)
		}
		list := decode[[]transactionResponse](t, rr)
		if len(list) != len(tt.want) {
			t.Fatalf("%s: got %d transactions, want %d", tt.query, len(list), len(tt.want))
		}
		for i, name := range tt.want {
			if list[i].Name != name {
				t.Errorf("%s: transaction %d = %q, want %q", tt.query, i, list[i].Name, name)
			}
		}
	}

	rr := do(t, srv, http.MethodGet, "/transactions?period=decade", "")
	if rr.Code != http.StatusConflict {
		t.Errorf("unknown period status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodGet, "/transactions?start=yesterday", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad start status=%d", rr.Code)
	}
}

func TestUpdateAndDeleteTransaction(t *testing.T) {
	srv := newTestServer(t)
	mustCreate(t, srv, `{"name": "Coffee", "amount": 3, "category": "Food"}`)

	rr := do(t, srv, http.MethodPatch, "/transactions/0", `{"amount": "3*2", "category": "Drinks"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status=%d body=%s", rr.Code, rr.Body.String())
	}
	tx := decode[transactionResponse](t, rr)
	if tx.Amount != "6.00" || tx.Category != "Drinks" || tx.Name != "Coffee" {
		t.Errorf("unexpected patched transaction %+v", tx)
	}

	for _, path := range []string{"/transactions/7", "/transactions/abc"} {
		if rr := do(t, srv, http.MethodPatch, path, `{"name": "x"}`); rr.Code != http.StatusNotFound {
			t.Errorf("patch %s status=%d", path, rr.Code)
		}
	}

	if rr := do(t, srv, http.MethodDelete, "/transactions/0", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/transactions/0", ""); rr.Code != http.StatusNotFound {
		t.Errorf("second delete status=%d", rr.Code)
	}

	// ids are never reused
	if tx := mustCreate(t, srv, `{"name": "Tea"}`); tx.ID != 1 {
		t.Errorf("new id = %d, want 1", tx.ID)
	}
}

func TestReport(t *testing.T) {
	srv := newTestServer(t)
	mustCreate(t, srv, `{"name": "Salary", "type": "credit", "amount": 1000, "date": "2024-02-01"}`)
	mustCreate(t, srv, `{"name": "Rent", "amount": 400, "date": "2024-03-01", "category": "Home"}`)
	mustCreate(t, srv, `{"name": "Coffee", "amount": 2.75, "date": "2024-03-02", "category": "Food"}`)

	rr := do(t, srv, http.MethodGet, "/report?period=month&start=2024-03-20", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	resp := decode[reportResponse](t, rr)

	if resp.Period.Label != "March, 2024" || resp.Period.Start != "2024-03-01" || resp.Period.End != "2024-04-01" {
		t.Errorf("unexpected period %+v", resp.Period)
	}
	if resp.Period.Elapsed == nil || !resp.Period.Navigable {
		t.Errorf("month window should report elapsed ratio and be navigable: %+v", resp.Period)
	}
	if resp.CreditColor != colors.CreditHex || resp.DebitColor != colors.DebitHex {
		t.Errorf("kind colours = %s/%s", resp.CreditColor, resp.DebitColor)
	}
	s := resp.Summary
	if s.StartingBalance != "1000.00" || s.DebitCount != 2 || s.DebitTotal != "402.75" ||
		s.Net != "-402.75" || s.EndingBalance != "597.25" || s.CreditCount != 0 {
		t.Errorf("unexpected summary %+v", s)
	}
	if resp.Debits["Home"] != "400.00" || resp.Debits["Food"] != "2.75" || len(resp.Credits) != 0 {
		t.Errorf("unexpected totals debits=%v credits=%v", resp.Debits, resp.Credits)
	}

	forever := decode[reportResponse](t, do(t, srv, http.MethodGet, "/report?period=forever", ""))
	if forever.Summary.StartingBalance != "0.00" || forever.Period.End != "" || forever.Period.Label != "Forever" || forever.Period.Navigable {
		t.Errorf("unexpected forever report %+v", forever)
	}
}

func TestChart(t *testing.T) {
	srv := newTestServer(t)
	mustCreate(t, srv, `{"name": "Rent", "amount": 300, "category": "Home"}`)
	mustCreate(t, srv, `{"name": "Food", "amount": 100, "category": "Food"}`)
	mustCreate(t, srv, `{"name": "Salary", "type": "credit", "amount": 50, "category": "Job"}`)

	shares := decode[[]shareResponse](t, do(t, srv, http.MethodGet, "/chart", ""))
	if len(shares) != 2 || shares[0].Category != "Food" || shares[0].Fraction != 0.25 || shares[1].Fraction != 0.75 {
		t.Fatalf("unexpected debit shares %+v", shares)
	}
	if !strings.HasPrefix(shares[0].Color, "#") {
		t.Errorf("color = %q", shares[0].Color)
	}
	if shares[0].TextLight != colors.IsTooLight(shares[0].Color) {
		t.Errorf("text_light = %v for %s", shares[0].TextLight, shares[0].Color)
	}

	credits := decode[[]shareResponse](t, do(t, srv, http.MethodGet, "/chart?mode=credit", ""))
	if len(credits) != 1 || credits[0].Category != "Job" || credits[0].Fraction != 1 {
		t.Errorf("unexpected credit shares %+v", credits)
	}

	if rr := do(t, srv, http.MethodGet, "/chart?mode=both", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad mode status=%d", rr.Code)
	}
}

func TestBudgets(t *testing.T) {
	srv := newTestServer(t)
	mustCreate(t, srv, `{"name": "Dinner", "amount": 60, "category": "Food"}`)
	mustCreate(t, srv, `{"name": "Movie", "amount": 10, "category": "Fun"}`)

	if rr := do(t, srv, http.MethodPut, "/budgets", `{"category": "Food", "amount": "25*2"}`); rr.Code != http.StatusNoContent {
		t.Fatalf("set budget status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := do(t, srv, http.MethodPut, "/budgets", `{"category": "Home", "amount": -1}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative budget status=%d", rr.Code)
	}

	lines := decode[[]budgetLineResponse](t, do(t, srv, http.MethodGet, "/budgets", ""))
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	food, fun := lines[0], lines[1]
	if food.Category != "Food" || food.Status != "over" || food.Monthly == nil || *food.Monthly != "50.00" {
		t.Errorf("unexpected food line %+v", food)
	}
	if !food.TextLight {
		t.Errorf("palette colour %s should need dark text", food.Color)
	}
	if fun.Category != "Fun" || fun.Status != "" || fun.Monthly != nil || fun.Spent != "10.00" {
		t.Errorf("unexpected fun line %+v", fun)
	}

	yearly := decode[[]budgetLineResponse](t, do(t, srv, http.MethodGet, "/budgets?period=year", ""))
	if yearly[0].Normalized == nil || *yearly[0].Normalized != "600.00" {
		t.Errorf("yearly normalized = %v", yearly[0].Normalized)
	}

	if rr := do(t, srv, http.MethodPut, "/budgets", `{"category": "Food", "amount": null}`); rr.Code != http.StatusNoContent {
		t.Fatalf("clear budget status=%d", rr.Code)
	}
	lines = decode[[]budgetLineResponse](t, do(t, srv, http.MethodGet, "/budgets", ""))
	if lines[0].Monthly != nil {
		t.Errorf("budget not cleared: %+v", lines[0])
	}

	for _, blank := range []string{`""`, `"   "`} {
		if rr := do(t, srv, http.MethodPut, "/budgets", `{"category": "Food", "amount": 80}`); rr.Code != http.StatusNoContent {
			t.Fatalf("set budget status=%d", rr.Code)
		}
		if rr := do(t, srv, http.MethodPut, "/budgets", `{"category": "Food", "amount": `+blank+`}`); rr.Code != http.StatusNoContent {
			t.Fatalf("clear budget with %s status=%d body=%s", blank, rr.Code, rr.Body.String())
		}
		lines = decode[[]budgetLineResponse](t, do(t, srv, http.MethodGet, "/budgets", ""))
		if lines[0].Monthly != nil {
			t.Errorf("budget not cleared by %s: %+v", blank, lines[0])
		}
	}

	if rr := do(t, srv, http.MethodPut, "/budgets", `{"category": "Food", "amount": "12.345"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("three decimal budget status=%d", rr.Code)
	}
}

func TestPeriodNavigation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		query     string
		wantCode  int
		wantStart string
	}{
		{"?period=month&start=2024-01-31&step=next", http.StatusOK, "2024-02-01"},
		{"?period=month&start=2024-01-31&step=prev", http.StatusOK, "2023-12-01"},
		{"?period=week&start=2024-01-31&step=this", http.StatusOK, "2024-03-11"},
		{"?period=year&start=2024-06-01&step=next", http.StatusOK, "2025-01-01"},
		{"?period=forever&step=next", http.StatusConflict, ""},
		{"?step=sideways", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		rr := do(t, srv, http.MethodGet, "/period"+tt.query, "")
		if rr.Code != tt.wantCode {
			t.Errorf("%s status=%d want %d", tt.query, rr.Code, tt.wantCode)
			continue
		}
		if tt.wantCode != http.StatusOK {
			continue
		}
		if p := decode[periodResponse](t, rr); p.Start != tt.wantStart {
			t.Errorf("%s start=%s want %s", tt.query, p.Start, tt.wantStart)
		}
	}
}

func TestSuggestions(t *testing.T) {
	srv := newTestServer(t)
	mustCreate(t, srv, `{"name": "Coffee", "amount": 3, "category": "Food", "date": "2024-03-01"}`)
	mustCreate(t, srv, `{"name": "Coffee", "amount": 3, "category": "Drinks", "date": "2024-03-05"}`)

	resp := decode[suggestionsResponse](t, do(t, srv, http.MethodGet, "/suggestions?name=Coffee", ""))
	if len(resp.Names) != 1 || len(resp.Categories) != 2 {
		t.Errorf("unexpected suggestions %+v", resp)
	}
	if resp.Category == nil {
		t.Fatal("expected a suggested category")
	}

	resp = decode[suggestionsResponse](t, do(t, srv, http.MethodGet, "/suggestions?name=Unknown", ""))
	if resp.Category != nil {
		t.Errorf("unexpected suggestion %q", *resp.Category)
	}
}

func TestUndoRedo(t *testing.T) {
	srv := newTestServer(t)

	if rr := do(t, srv, http.MethodPost, "/undo", ""); rr.Code != http.StatusConflict {
		t.Fatalf("undo on empty history status=%d", rr.Code)
	}

	mustCreate(t, srv, `{"name": "Coffee", "amount": 3}`)

	rr := do(t, srv, http.MethodPost, "/undo", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("undo status=%d", rr.Code)
	}
	h := decode[historyResponse](t, rr)
	if h.Operation != "create" || h.CanUndo || !h.CanRedo {
		t.Errorf("unexpected history %+v", h)
	}
	if list := decode[[]transactionResponse](t, do(t, srv, http.MethodGet, "/transactions", "")); len(list) != 0 {
		t.Errorf("undo left %d transactions", len(list))
	}

	rr = do(t, srv, http.MethodPost, "/redo", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("redo status=%d", rr.Code)
	}
	list := decode[[]transactionResponse](t, do(t, srv, http.MethodGet, "/transactions", ""))
	if len(list) != 1 || list[0].ID != 0 {
		t.Errorf("redo did not restore the transaction: %+v", list)
	}

	if rr := do(t, srv, http.MethodPost, "/redo", ""); rr.Code != http.StatusConflict {
		t.Errorf("redo on empty history status=%d", rr.Code)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	mustCreate(t, srv, `{"name": "Coffee", "amount": 3, "category": "Food"}`)
	do(t, srv, http.MethodPut, "/budgets", `{"category": "Food", "amount": 100}`)

	rr := do(t, srv, http.MethodGet, "/document", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get document status=%d", rr.Code)
	}
	doc := rr.Body.String()
	if !strings.Contains(doc, `"next_id": 1`) {
		t.Errorf("document missing next_id: %s", doc)
	}

	other := newTestServer(t)
	if rr := do(t, other, http.MethodPut, "/document", doc); rr.Code != http.StatusNoContent {
		t.Fatalf("put document status=%d body=%s", rr.Code, rr.Body.String())
	}
	list := decode[[]transactionResponse](t, do(t, other, http.MethodGet, "/transactions", ""))
	if len(list) != 1 || list[0].Name != "Coffee" || list[0].Amount != "3.00" {
		t.Errorf("unexpected transactions after load %+v", list)
	}

	tests := []string{
		`not json`,
		`{"transactions": []}`,
		`{"next_id": 1, "transactions": [{"id": 4, "name": "x", "type": "debit", "amount": 1, "date": 738000}]}`,
	}
	for _, body := range tests {
		if rr := do(t, other, http.MethodPut, "/document", body); rr.Code != http.StatusBadRequest {
			t.Errorf("malformed %q status=%d", body, rr.Code)
		}
	}
	if list := decode[[]transactionResponse](t, do(t, other, http.MethodGet, "/transactions", "")); len(list) != 1 {
		t.Errorf("failed load changed the ledger: %+v", list)
	}
}

func TestRateLimitMutations(t *testing.T) {
	srv := newTestServer(t)
	fixed := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	srv.rateLimiter.now = func() time.Time { return fixed }

	for i := 0; i < mutationLimit; i++ {
		if rr := do(t, srv, http.MethodPost, "/undo", ""); rr.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d limited early", i)
		}
	}
	rr := do(t, srv, http.MethodPost, "/undo", "")
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rr.Code)
	}

	// reads are never limited
	if rr := do(t, srv, http.MethodGet, "/transactions", ""); rr.Code != http.StatusOK {
		t.Errorf("read after limit status=%d", rr.Code)
	}

	fixed = fixed.Add(mutationWindow)
	if rr := do(t, srv, http.MethodPost, "/undo", ""); rr.Code == http.StatusTooManyRequests {
		t.Error("limit not reset after the window")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrNotFound, http.StatusNotFound},
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{core.ErrInvalidKind, http.StatusUnprocessableEntity},
		{core.ErrMalformedDocument, http.StatusBadRequest},
		{core.ErrInvalidPeriod, http.StatusConflict},
		{errBadRequest, http.StatusBadRequest},
		{http.ErrHandlerTimeout, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
