package analytics

import (
	"strings"
	"time"

	"github.com/Veraticus/rupeeflow/internal/model"
)

// Filter selects transactions by title text, type, category and date.
// Empty strings and model.FilterAll match everything; nil bounds are open.
type Filter struct {
	Start    *time.Time
	End      *time.Time
	Query    string
	Type     string
	Category string
}

// Match reports whether t satisfies every criterion of f.
func (f Filter) Match(t model.Transaction) bool {
	if f.Query != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(f.Query)) {
		return false
	}
	if !matchesAll(f.Type) && string(t.Type) != f.Type {
		return false
	}
	if !matchesAll(f.Category) && string(t.Category) != f.Category {
		return false
	}
	if f.Start != nil && t.Date.Before(startOfDay(*f.Start)) {
		return false
	}
	if f.End != nil && t.Date.After(endOfDay(*f.End)) {
		return false
	}
	return true
}

// HasDateRange reports whether either date bound is set.
func (f Filter) HasDateRange() bool {
	return f.Start != nil || f.End != nil
}

// Apply returns the matching transactions in input order.
func (f Filter) Apply(txns []model.Transaction) []model.Transaction {
	out := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

func matchesAll(v string) bool {
	return v == "" || v == model.FilterAll
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// endOfDay is 23:59:59.999 of t's day.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}
