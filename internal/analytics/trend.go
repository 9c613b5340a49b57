package analytics

import (
	"time"

	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/shopspring/decimal"
)

// MonthPoint holds income and expense totals for one calendar month.
type MonthPoint struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Label   string          `json:"label"`
	Year    int             `json:"year"`
	Month   time.Month      `json:"month"`
}

type monthKey struct {
	year  int
	month time.Month
}

// YearTrend returns all twelve months of year, January first. Dates are
// read in loc.
func YearTrend(txns []model.Transaction, year int, loc *time.Location) [12]MonthPoint {
	var keys [12]monthKey
	for i := range keys {
		keys[i] = monthKey{year: year, month: time.Month(i + 1)}
	}
	return trend(txns, keys, loc)
}

// TrailingTrend returns the twelve calendar months ending with now's month,
// oldest first.
func TrailingTrend(txns []model.Transaction, now time.Time) [12]MonthPoint {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -11, 0)
	var keys [12]monthKey
	for i := range keys {
		m := first.AddDate(0, i, 0)
		keys[i] = monthKey{year: m.Year(), month: m.Month()}
	}
	return trend(txns, keys, now.Location())
}

func trend(txns []model.Transaction, keys [12]monthKey, loc *time.Location) [12]MonthPoint {
	var points [12]MonthPoint
	slot := make(map[monthKey]int, len(keys))
	for i, k := range keys {
		slot[k] = i
		points[i] = MonthPoint{
			Year:    k.year,
			Month:   k.month,
			Label:   k.month.String()[:3],
			Income:  decimal.Zero,
			Expense: decimal.Zero,
		}
	}

	for _, t := range txns {
		d := t.Date.In(loc)
		i, ok := slot[monthKey{year: d.Year(), month: d.Month()}]
		if !ok {
			continue
		}
		switch t.Type {
		case model.TypeIncome:
			points[i].Income = points[i].Income.Add(t.Amount)
		case model.TypeExpense:
			points[i].Expense = points[i].Expense.Add(t.Amount)
		}
	}
	return points
}
