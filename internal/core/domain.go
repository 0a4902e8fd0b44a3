package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Credit Kind = "credit"
	Debit  Kind = "debit"
)

type (
	// Kind tells whether a transaction adds to or subtracts from the balance.
	Kind string

	// Date is a calendar day in UTC with no time-of-day component.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID       int64
		Name     string
		Kind     Kind
		Amount   decimal.Decimal // magnitude, never negative
		Date     Date
		Category string // empty means uncategorized
	}

	// Budget is a monthly spending target for one category.
	Budget struct {
		Category      string
		MonthlyAmount decimal.Decimal
	}
)

var (
	ErrNotFound          = errors.New("transaction not found")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidKind       = errors.New("invalid transaction type")
	ErrInvalidDate       = errors.New("invalid date")
	ErrMalformedDocument = errors.New("malformed document")
	ErrInvalidPeriod     = errors.New("invalid period")
)

// ParseKind accepts "credit" or "debit" in any case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Credit, Debit:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

func (k Kind) Validate() error {
	if k != Credit && k != Debit {
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
	return nil
}

// Sign returns +1 for credits and -1 for debits.
func (k Kind) Sign() int64 {
	if k == Credit {
		return 1
	}
	return -1
}

// Signed returns the amount with the sign implied by the kind.
func (t Transaction) Signed() decimal.Decimal {
	return t.Amount.Mul(decimal.NewFromInt(t.Kind.Sign()))
}

func (t Transaction) Validate() error {
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if t.ID < 0 {
		return fmt.Errorf("negative id %d", t.ID)
	}
	return t.Date.Validate()
}

func (b Budget) Validate() error {
	return ValidateAmount(b.MonthlyAmount)
}

// ValidateAmount rejects negative magnitudes. Zero is allowed.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("%w: %s is negative", ErrInvalidAmount, d.String())
	}
	return nil
}
