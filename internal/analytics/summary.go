package analytics

import (
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/shopspring/decimal"
)

// Stats is the headline income, expense and balance for a set of rows.
type Stats struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
	Count   int             `json:"count"`
}

// Summarize totals income and expense. Balance is income minus expense.
func Summarize(txns []model.Transaction) Stats {
	income, expense := decimal.Zero, decimal.Zero
	for _, t := range txns {
		switch t.Type {
		case model.TypeIncome:
			income = income.Add(t.Amount)
		case model.TypeExpense:
			expense = expense.Add(t.Amount)
		}
	}
	return Stats{
		Income:  income,
		Expense: expense,
		Balance: income.Sub(expense),
		Count:   len(txns),
	}
}

// TotalExpense sums the expense amounts in txns.
func TotalExpense(txns []model.Transaction) decimal.Decimal {
	return Summarize(txns).Expense
}
