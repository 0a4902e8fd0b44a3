package period

import (
	"finance/internal/core"
)

// Window is a view selection: a granularity and the first day it covers.
// For Forever the start is always Epoch and the window has no end.
type Window struct {
	Granularity Granularity
	Start       core.Date
}

// NewWindow returns the window of granularity g containing ref.
func NewWindow(g Granularity, ref core.Date) Window {
	return Window{Granularity: g, Start: Start(g, ref)}
}

// Current returns the window of granularity g containing today.
func Current(g Granularity, today core.Date) Window {
	return NewWindow(g, today)
}

// End returns the exclusive end of the window. ok is false for Forever.
func (w Window) End() (end core.Date, ok bool) {
	end, err := Next(w.Granularity, w.Start)
	if err != nil {
		return core.Date{}, false
	}
	return end, true
}

// Contains reports whether d falls in [Start, End).
func (w Window) Contains(d core.Date) bool {
	if w.Granularity == Forever {
		return true
	}
	end, ok := w.End()
	if !ok {
		return false
	}
	return !d.Before(w.Start) && d.Before(end)
}

// Next returns the following window. Forever windows return
// core.ErrInvalidPeriod and are left unchanged.
func (w Window) Next() (Window, error) {
	start, err := Next(w.Granularity, w.Start)
	return Window{Granularity: w.Granularity, Start: start}, err
}

// Prev returns the preceding window.
func (w Window) Prev() (Window, error) {
	start, err := Prev(w.Granularity, w.Start)
	return Window{Granularity: w.Granularity, Start: start}, err
}

// Days returns the window length in days, or 0 for Forever.
func (w Window) Days() int64 {
	end, ok := w.End()
	if !ok {
		return 0
	}
	return w.Start.DaysUntil(end)
}

// ElapsedRatio is the fraction of the window that has passed by today:
// (today - start) / length, in days. It is not clamped, so past windows
// give values above 1 and future ones values below 0. Day and Forever
// windows have no meaningful pace, and ok is false for them.
func (w Window) ElapsedRatio(today core.Date) (ratio float64, ok bool) {
	if w.Granularity == Day || w.Granularity == Forever {
		return 0, false
	}
	days := w.Days()
	if days <= 0 {
		return 0, false
	}
	return float64(w.Start.DaysUntil(today)) / float64(days), true
}

// Label is the English header text of the window.
func (w Window) Label() string {
	switch w.Granularity {
	case Day:
		return w.Start.Format("January 02, 2006")
	case Week:
		return "Week of " + w.Start.Format("January 02, 2006")
	case Month:
		return w.Start.Format("January, 2006")
	case Year:
		return w.Start.Format("2006")
	default:
		return "Forever"
	}
}
