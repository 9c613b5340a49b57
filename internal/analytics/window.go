// Package analytics turns snapshots of transactions into derived views:
// category totals, weekly buckets, monthly trends, budget utilization and
// filtered lists. Every function is pure and degrades to zero values on
// empty input.
package analytics

import (
	"time"

	"github.com/Veraticus/rupeeflow/internal/model"
)

// Window is an inclusive time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// MonthWindow returns the calendar month containing t, in t's location.
func MonthWindow(t time.Time) Window {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Window{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}

// YearWindow returns the calendar year in loc.
func YearWindow(year int, loc *time.Location) Window {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(1, 0, 0).Add(-time.Nanosecond)}
}

// Contains reports whether t falls inside w, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// InWindow returns the transactions dated inside w, keeping input order.
func InWindow(txns []model.Transaction, w Window) []model.Transaction {
	out := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		if w.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

// InMonth returns the transactions in the same calendar month as ref.
// Dates are compared in ref's location.
func InMonth(txns []model.Transaction, ref time.Time) []model.Transaction {
	out := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		d := t.Date.In(ref.Location())
		if d.Year() == ref.Year() && d.Month() == ref.Month() {
			out = append(out, t)
		}
	}
	return out
}

// InYear returns the transactions dated in year, compared in loc.
func InYear(txns []model.Transaction, year int, loc *time.Location) []model.Transaction {
	out := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.Date.In(loc).Year() == year {
			out = append(out, t)
		}
	}
	return out
}
