package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidBudget is returned when a budget payload fails validation.
var ErrInvalidBudget = errors.New("invalid budget")

// BudgetCategory is either a Category or the TotalBudget sentinel.
type BudgetCategory string

// TotalBudget caps spending across all categories combined.
const TotalBudget BudgetCategory = "Total"

// DefaultTotalLimit is the Total budget materialized for users with none.
var DefaultTotalLimit = decimal.NewFromInt(50000)

// IsTotal reports whether b is the aggregate sentinel.
func (b BudgetCategory) IsTotal() bool {
	return b == TotalBudget
}

// Valid reports whether b is the sentinel or a known category.
func (b BudgetCategory) Valid() bool {
	return b.IsTotal() || Category(b).Valid()
}

// Matches reports whether a transaction category counts against b.
func (b BudgetCategory) Matches(c Category) bool {
	return b.IsTotal() || Category(b) == c
}

// ParseBudgetCategory accepts "total" or anything ParseCategory accepts.
func ParseBudgetCategory(s string) (BudgetCategory, error) {
	if strings.EqualFold(strings.TrimSpace(s), string(TotalBudget)) {
		return TotalBudget, nil
	}
	c, err := ParseCategory(s)
	if err != nil {
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidBudget, s)
	}
	return BudgetCategory(c), nil
}

// Budget is a monthly spending limit for one category of one user.
type Budget struct {
	UpdatedAt time.Time       `json:"updatedAt"`
	Limit     decimal.Decimal `json:"limit"`
	UserID    string          `json:"userId"`
	Category  BudgetCategory  `json:"category"`
}

// ValidateBudget checks a category and limit before an upsert.
func ValidateBudget(category BudgetCategory, limit decimal.Decimal) error {
	if !category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidBudget, category)
	}
	if limit.IsNegative() {
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidBudget)
	}
	return nil
}

// SortBudgets orders budgets with Total first, then in category table order.
func SortBudgets(budgets []Budget) {
	rank := func(b BudgetCategory) int {
		if b.IsTotal() {
			return -1
		}
		for i, info := range categoryTable {
			if BudgetCategory(info.Name) == b {
				return i
			}
		}
		return len(categoryTable)
	}
	// insertion sort keeps equal ranks stable and the slices are tiny
	for i := 1; i < len(budgets); i++ {
		for j := i; j > 0 && rank(budgets[j].Category) < rank(budgets[j-1].Category); j-- {
			budgets[j], budgets[j-1] = budgets[j-1], budgets[j]
		}
	}
}
