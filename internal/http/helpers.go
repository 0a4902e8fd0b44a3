package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finance/internal/core"
	"finance/internal/period"
)

// parseWindow reads the period and start query parameters. The defaults are
// the month and today.
func parseWindow(r *http.Request, today core.Date) (period.Window, error) {
	q := r.URL.Query()

	g := period.Month
	if v := strings.TrimSpace(q.Get("period")); v != "" {
		parsed, err := period.ParseGranularity(v)
		if err != nil {
			return period.Window{}, err
		}
		g = parsed
	}

	ref := today
	if v := strings.TrimSpace(q.Get("start")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return period.Window{}, err
		}
		ref = d
	}
	return period.NewWindow(g, ref), nil
}

// parseID reads the {id} path value.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: id %q", core.ErrNotFound, r.PathValue("id"))
	}
	return id, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
