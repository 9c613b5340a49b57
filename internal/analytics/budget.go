package analytics

import (
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/shopspring/decimal"
)

// NearLimitPercent is the utilization above which a budget is flagged.
var NearLimitPercent = decimal.NewFromInt(90)

var hundred = decimal.NewFromInt(100)

// BudgetUtilization compares spending in a window against one budget.
// Percent is unclamped; Display is clamped to [0, 100] for progress bars.
type BudgetUtilization struct {
	Spent     decimal.Decimal      `json:"spent"`
	Limit     decimal.Decimal      `json:"limit"`
	Percent   decimal.Decimal      `json:"percent"`
	Display   decimal.Decimal      `json:"display"`
	Category  model.BudgetCategory `json:"category"`
	NearLimit bool                 `json:"nearLimit"`
	OverLimit bool                 `json:"overLimit"`
}

// Remaining returns limit minus spent, which may be negative.
func (u BudgetUtilization) Remaining() decimal.Decimal {
	return u.Limit.Sub(u.Spent)
}

// Utilization sums expenses in w that count against budget and computes the
// percentage used. A zero limit yields zero percent.
func Utilization(txns []model.Transaction, budget model.Budget, w Window) BudgetUtilization {
	spent := decimal.Zero
	for _, t := range txns {
		if t.Type != model.TypeExpense || !w.Contains(t.Date) {
			continue
		}
		if budget.Category.Matches(t.Category) {
			spent = spent.Add(t.Amount)
		}
	}

	percent := decimal.Zero
	if budget.Limit.IsPositive() {
		percent = spent.Div(budget.Limit).Mul(hundred)
	}

	display := percent
	if display.GreaterThan(hundred) {
		display = hundred
	}
	if display.IsNegative() {
		display = decimal.Zero
	}

	return BudgetUtilization{
		Category:  budget.Category,
		Spent:     spent,
		Limit:     budget.Limit,
		Percent:   percent,
		Display:   display,
		NearLimit: percent.GreaterThan(NearLimitPercent),
		OverLimit: percent.GreaterThan(hundred),
	}
}

// BudgetReport computes utilization for every budget, in the given order.
func BudgetReport(txns []model.Transaction, budgets []model.Budget, w Window) []BudgetUtilization {
	out := make([]BudgetUtilization, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, Utilization(txns, b, w))
	}
	return out
}
