package core

import (
	"fmt"
	"strings"
	"time"
)

// unixEpochOrdinal is the proleptic ordinal of 1970-01-01, counting
// 0001-01-01 as day 1.
const unixEpochOrdinal = 719163

const secondsPerDay = 24 * 60 * 60

// Ordinal bounds: 0001-01-01 and 9999-12-31.
const (
	MinOrdinal int64 = 1
	MaxOrdinal int64 = 3652059
)

// DateLayout is the textual form used by the HTTP API and logs.
const DateLayout = "2006-01-02"

// NewDate creates a new Date from year, month, day. Out-of-range values are
// normalised the way time.Date does it.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Today returns the current local calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// DateFromOrdinal is the inverse of Date.Ordinal. Callers bound the
// ordinal to [MinOrdinal, MaxOrdinal] first.
func DateFromOrdinal(ordinal int64) Date {
	return Date{Time: time.Unix((ordinal-unixEpochOrdinal)*secondsPerDay, 0).UTC()}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// Ordinal returns the proleptic day ordinal, with 0001-01-01 as day 1.
func (d Date) Ordinal() int64 {
	// Midnight UTC is always an exact multiple of a day, so the division
	// is exact for dates before 1970 too.
	return d.Unix()/secondsPerDay + unixEpochOrdinal
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	if d.Ordinal() < MinOrdinal {
		return fmt.Errorf("%w: %s precedes year 1", ErrInvalidDate, d.String())
	}
	if d.Ordinal() > MaxOrdinal {
		return fmt.Errorf("%w: %s is after year 9999", ErrInvalidDate, d.String())
	}
	return nil
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the number of days from d to other.
func (d Date) DaysUntil(other Date) int64 {
	return other.Ordinal() - d.Ordinal()
}

func (d Date) Before(other Date) bool { return d.Ordinal() < other.Ordinal() }

func (d Date) After(other Date) bool { return d.Ordinal() > other.Ordinal() }

func (d Date) Equal(other Date) bool { return d.Ordinal() == other.Ordinal() }

func (d Date) String() string {
	return d.Format(DateLayout)
}
