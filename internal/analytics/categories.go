package analytics

import (
	"sort"

	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/shopspring/decimal"
)

// CategoryTotal is the summed amount of one category.
type CategoryTotal struct {
	Amount   decimal.Decimal `json:"amount"`
	Category model.Category  `json:"category"`
	Color    string          `json:"color"`
	Icon     string          `json:"icon"`
	Percent  int64           `json:"percent"`
}

// CategoryTotals groups txns by category and sums their amounts. typeFilter
// restricts the rows to one type; model.FilterAll keeps every row. The result
// is sorted by amount, largest first, with ties left in first-seen order.
func CategoryTotals(txns []model.Transaction, typeFilter string) []CategoryTotal {
	index := make(map[model.Category]int)
	var totals []CategoryTotal
	grand := decimal.Zero

	for _, t := range txns {
		if typeFilter != model.FilterAll && typeFilter != "" && string(t.Type) != typeFilter {
			continue
		}
		i, ok := index[t.Category]
		if !ok {
			info := model.LookupCategory(t.Category)
			i = len(totals)
			index[t.Category] = i
			totals = append(totals, CategoryTotal{
				Category: t.Category,
				Amount:   decimal.Zero,
				Color:    info.Color,
				Icon:     info.Icon,
			})
		}
		totals[i].Amount = totals[i].Amount.Add(t.Amount)
		grand = grand.Add(t.Amount)
	}

	sort.SliceStable(totals, func(a, b int) bool {
		return totals[a].Amount.GreaterThan(totals[b].Amount)
	})

	if grand.IsPositive() {
		hundred := decimal.NewFromInt(100)
		for i := range totals {
			totals[i].Percent = totals[i].Amount.Mul(hundred).Div(grand).Round(0).IntPart()
		}
	}

	return totals
}

// ExpenseByCategory is CategoryTotals restricted to expenses.
func ExpenseByCategory(txns []model.Transaction) []CategoryTotal {
	return CategoryTotals(txns, string(model.TypeExpense))
}
