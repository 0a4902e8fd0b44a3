// Package http provides HTTP server and handler implementations.
//
// This file decodes and validates JSON request bodies into ledger inputs.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"finance/internal/core"
	"finance/internal/expr"
	"finance/internal/ledger"

	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// transactionRequest is the body of POST /transactions and
// PATCH /transactions/{id}. Absent fields are left to defaults or unchanged.
type transactionRequest struct {
	Name     *string         `json:"name"`
	Type     *string         `json:"type"`
	Amount   json.RawMessage `json:"amount"`
	Date     *string         `json:"date"`
	Category *string         `json:"category"`
}

type budgetRequest struct {
	Category string          `json:"category"`
	Amount   json.RawMessage `json:"amount"`
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return b, nil
}

// parseAmount accepts a JSON number, a plain decimal string ("12,50") or a
// string holding an arithmetic expression such as "12.50+3". Null or absent
// gives nil. Amounts with more than core.AmountPlaces fractional digits are
// rejected rather than rounded.
func parseAmount(raw json.RawMessage) (*decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var d decimal.Decimal
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
		}
		if v, err := core.ParseAmount(s); err == nil {
			d = v
		} else {
			v, err := expr.Evaluate(s)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
			}
			d = v
		}
	} else {
		v, err := decimal.NewFromString(string(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", core.ErrInvalidAmount, raw)
		}
		d = v
	}

	if !d.Equal(core.RoundAmount(d)) {
		return nil, fmt.Errorf("%w: %s has more than %d decimal places", core.ErrInvalidAmount, d, core.AmountPlaces)
	}
	return &d, nil
}

// parseBudgetAmount is parseAmount, except that a blank string clears the
// budget like null does.
func parseBudgetAmount(raw json.RawMessage) (*decimal.Decimal, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return parseAmount(raw)
}

func (req transactionRequest) fields() (name *string, kind *core.Kind, amount *decimal.Decimal, date *core.Date, category *string, err error) {
	if req.Name != nil {
		v := sanitizeInput(*req.Name)
		name = &v
	}
	if req.Category != nil {
		v := sanitizeInput(*req.Category)
		category = &v
	}
	if req.Type != nil {
		k, kerr := core.ParseKind(*req.Type)
		if kerr != nil {
			return nil, nil, nil, nil, nil, kerr
		}
		kind = &k
	}
	if req.Date != nil {
		d, derr := core.ParseDate(*req.Date)
		if derr != nil {
			return nil, nil, nil, nil, nil, derr
		}
		date = &d
	}
	amount, err = parseAmount(req.Amount)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	return name, kind, amount, date, category, nil
}

func (req transactionRequest) draft() (ledger.Draft, error) {
	name, kind, amount, date, category, err := req.fields()
	if err != nil {
		return ledger.Draft{}, err
	}
	return ledger.Draft{Name: name, Kind: kind, Amount: amount, Date: date, Category: category}, nil
}

func (req transactionRequest) patch() (ledger.Patch, error) {
	name, kind, amount, date, category, err := req.fields()
	if err != nil {
		return ledger.Patch{}, err
	}
	return ledger.Patch{Name: name, Kind: kind, Amount: amount, Date: date, Category: category}, nil
}
