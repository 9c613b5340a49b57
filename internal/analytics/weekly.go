package analytics

import (
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/shopspring/decimal"
)

// WeeklyBucket is the expense sum for a fixed range of days of the month.
type WeeklyBucket struct {
	Amount   decimal.Decimal `json:"amount"`
	Label    string          `json:"label"`
	FirstDay int             `json:"firstDay"`
}

var weekLabels = [5]string{"Week 1", "Week 2", "Week 3", "Week 4", "Week 5+"}

// weekIndex maps a day of month to its bucket: 1-7, 8-14, 15-21, 22-28, 29+.
func weekIndex(day int) int {
	switch {
	case day <= 7:
		return 0
	case day <= 14:
		return 1
	case day <= 21:
		return 2
	case day <= 28:
		return 3
	default:
		return 4
	}
}

// WeeklyBuckets sums expenses by day of month into five buckets. Empty
// buckets are present with a zero amount.
func WeeklyBuckets(txns []model.Transaction) [5]WeeklyBucket {
	var buckets [5]WeeklyBucket
	for i := range buckets {
		buckets[i] = WeeklyBucket{Label: weekLabels[i], FirstDay: i*7 + 1, Amount: decimal.Zero}
	}
	for _, t := range txns {
		if t.Type != model.TypeExpense {
			continue
		}
		i := weekIndex(t.Date.Day())
		buckets[i].Amount = buckets[i].Amount.Add(t.Amount)
	}
	return buckets
}
