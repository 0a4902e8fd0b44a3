// Package period computes the time windows the ledger is viewed through.
package period

import (
	"fmt"
	"strings"

	"finance/internal/core"
)

const (
	Day     Granularity = "day"
	Week    Granularity = "week"
	Month   Granularity = "month"
	Year    Granularity = "year"
	Forever Granularity = "forever"
)

// Granularity is the length of a view window.
type Granularity string

// Epoch is the start of the Forever window. It precedes every real
// transaction.
var Epoch = core.NewDate(1900, 1, 1)

// Granularities lists every granularity in display order.
func Granularities() []Granularity {
	return []Granularity{Day, Week, Month, Year, Forever}
}

func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	if !g.IsValid() {
		return "", fmt.Errorf("%w: unknown granularity %q", core.ErrInvalidPeriod, s)
	}
	return g, nil
}

func (g Granularity) IsValid() bool {
	switch g {
	case Day, Week, Month, Year, Forever:
		return true
	default:
		return false
	}
}

// Navigable reports whether windows of this granularity can be stepped.
func (g Granularity) Navigable() bool {
	return g.IsValid() && g != Forever
}

func (g Granularity) String() string {
	return string(g)
}

// Start returns the first day of the window of granularity g that contains
// ref. Weeks start on Monday.
func Start(g Granularity, ref core.Date) core.Date {
	switch g {
	case Day:
		return ref
	case Week:
		// time.Weekday counts from Sunday = 0.
		back := (int(ref.Weekday()) + 6) % 7
		return ref.AddDays(-back)
	case Month:
		return core.NewDate(ref.Year(), int(ref.Month()), 1)
	case Year:
		return core.NewDate(ref.Year(), 1, 1)
	default:
		return Epoch
	}
}

// Next returns the start of the window following the one starting at start.
// Forever has no neighbours: start is returned unchanged together with
// core.ErrInvalidPeriod.
func Next(g Granularity, start core.Date) (core.Date, error) {
	return step(g, start, 1)
}

// Prev returns the start of the window preceding the one starting at start.
func Prev(g Granularity, start core.Date) (core.Date, error) {
	return step(g, start, -1)
}

func step(g Granularity, start core.Date, n int) (core.Date, error) {
	if !g.Navigable() {
		if g == Forever {
			return start, fmt.Errorf("%w: cannot navigate a forever window", core.ErrInvalidPeriod)
		}
		return start, fmt.Errorf("%w: unknown granularity %q", core.ErrInvalidPeriod, string(g))
	}
	switch g {
	case Day:
		return start.AddDays(n), nil
	case Week:
		return start.AddDays(7 * n), nil
	case Month:
		// Month arithmetic is done on day 1 so that time.Date never
		// normalises an overflowing day into the following month.
		return core.NewDate(start.Year(), int(start.Month())+n, 1), nil
	default:
		return core.NewDate(start.Year()+n, 1, 1), nil
	}
}
