package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"finance/internal/core"
	"finance/internal/ledger"
	"finance/internal/log"
	"finance/internal/period"
	"finance/internal/services"
)

const (
	mutationLimit  = 60
	mutationWindow = time.Minute
)

// Server exposes the ledger as a JSON API.
type Server struct {
	http.Server
	svc         *services.LedgerService
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	logger      *log.Logger
	structured  *log.StructuredLogger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc *services.LedgerService, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		svc:         svc,
		rateLimiter: newRateLimiter(mutationLimit, mutationWindow),
		metrics:     &securityMetrics{},
		logger:      logger,
		structured:  log.NewStructuredLogger(logger),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("PATCH /transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /report", s.handleReport)
	mux.HandleFunc("GET /chart", s.handleChart)
	mux.HandleFunc("GET /budgets", s.handleBudgets)
	mux.HandleFunc("PUT /budgets", s.handleSetBudget)
	mux.HandleFunc("GET /period", s.handlePeriod)
	mux.HandleFunc("GET /suggestions", s.handleSuggestions)

	mux.HandleFunc("POST /undo", s.handleUndo)
	mux.HandleFunc("POST /redo", s.handleRedo)

	mux.HandleFunc("GET /document", s.handleGetDocument)
	mux.HandleFunc("PUT /document", s.handlePutDocument)

	s.Handler = s.withMiddleware(mux)
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// withMiddleware adds request ids, security headers, rate limiting and
// request logging.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	requestID := func(r *http.Request) string { return r.Header.Get("X-Request-ID") }
	logged := log.Middleware(s.logger, requestID)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		logger := log.FromContext(ctx)
		clientIP := extractClientIP(r)

		if detectSuspiciousRequest(r, s.metrics) {
			logger.WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}

		setSecurityHeaders(w.Header())
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		if isMutation(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			rw.Header().Set("Retry-After", "60")
			_ = NewJSONResponse().
				Status(http.StatusTooManyRequests).
				Body(errorResponse{Error: "rate limit exceeded, please try again later"}).
				Write(rw)
		} else {
			next.ServeHTTP(rw, r)
		}

		log.NewStructuredLogger(logger).LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := sanitizeInput(r.Header.Get("X-Request-ID"))
		if id == "" || len(id) > 64 {
			id = generateRequestID()
		}
		r.Header.Set("X-Request-ID", id)
		w.Header().Set("X-Request-ID", id)
		logged(inner).ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := NewJSONResponse().Error(err)
	if resp.statusCode >= http.StatusInternalServerError {
		s.structured.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, nil)
	} else {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, op, log.FieldError, err)
	}
	_ = resp.Write(w)
}

func respond(w http.ResponseWriter, status int, body any) {
	_ = NewJSONResponse().Status(status).Body(body).Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.svc.Ping(ctx); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	win, err := parseWindow(r, s.svc.Today())
	if err != nil {
		s.fail(w, r, "list", err)
		return
	}
	respond(w, http.StatusOK, newTransactionList(s.svc.Report(win).Transactions))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	draft, err := req.draft()
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	tx, err := s.svc.Create(r.Context(), draft)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	respond(w, http.StatusCreated, newTransactionResponse(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	tx, err := s.svc.Update(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	respond(w, http.StatusOK, newTransactionResponse(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	if err := s.svc.Delete(r.Context(), id); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	win, err := parseWindow(r, s.svc.Today())
	if err != nil {
		s.fail(w, r, "report", err)
		return
	}
	respond(w, http.StatusOK, newReportResponse(s.svc.Report(win), s.svc.Today()))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	win, err := parseWindow(r, s.svc.Today())
	if err != nil {
		s.fail(w, r, "chart", err)
		return
	}
	kind := core.Debit
	if v := r.URL.Query().Get("mode"); v != "" {
		if kind, err = core.ParseKind(v); err != nil {
			s.fail(w, r, "chart", err)
			return
		}
	}
	respond(w, http.StatusOK, newShareList(s.svc.Chart(win, kind)))
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	win, err := parseWindow(r, s.svc.Today())
	if err != nil {
		s.fail(w, r, "budgets", err)
		return
	}
	respond(w, http.StatusOK, newBudgetList(s.svc.Budgets(win)))
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpBudget, err)
		return
	}
	amount, err := parseBudgetAmount(req.Amount)
	if err != nil {
		s.fail(w, r, log.OpBudget, err)
		return
	}
	if err := s.svc.SetBudget(r.Context(), sanitizeInput(req.Category), amount); err != nil {
		s.fail(w, r, log.OpBudget, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePeriod steps the selected window. Forever windows cannot be stepped.
func (s *Server) handlePeriod(w http.ResponseWriter, r *http.Request) {
	today := s.svc.Today()
	win, err := parseWindow(r, today)
	if err != nil {
		s.fail(w, r, "period", err)
		return
	}

	switch strings.ToLower(r.URL.Query().Get("step")) {
	case "", "this":
		win = period.Current(win.Granularity, today)
	case "next":
		win, err = win.Next()
	case "prev":
		win, err = win.Prev()
	default:
		err = errBadRequest
	}
	if err != nil {
		s.fail(w, r, "period", err)
		return
	}
	respond(w, http.StatusOK, newPeriodResponse(win, today))
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	name := sanitizeInput(r.URL.Query().Get("name"))
	respond(w, http.StatusOK, newSuggestionsResponse(s.svc.Suggest(name)))
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.travel(w, r, log.OpUndo, s.svc.Undo)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.travel(w, r, log.OpRedo, s.svc.Redo)
}

func (s *Server) travel(w http.ResponseWriter, r *http.Request, op string, step func(context.Context) (string, error)) {
	described, err := step(r.Context())
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	respond(w, http.StatusOK, historyResponse{
		Operation: described,
		CanUndo:   s.svc.CanUndo(),
		CanRedo:   s.svc.CanRedo(),
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	data, err := s.svc.Document().Marshal()
	if err != nil {
		s.fail(w, r, "serialize", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.fail(w, r, log.OpLoad, err)
		return
	}
	doc, err := ledger.ParseDocument(body)
	if err != nil {
		s.fail(w, r, log.OpLoad, err)
		return
	}
	if err := s.svc.ReplaceDocument(r.Context(), doc); err != nil {
		s.fail(w, r, log.OpLoad, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
