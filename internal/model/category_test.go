package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCategory(t *testing.T) {
	info := LookupCategory(CategoryFood)
	assert.Equal(t, "#f87171", info.Color)
	assert.Equal(t, "🍔", info.Icon)
	assert.Equal(t, AffinityExpense, info.Affinity)

	unknown := LookupCategory("Pets")
	assert.Equal(t, DefaultCategoryColor, unknown.Color)
	assert.Equal(t, DefaultCategoryIcon, unknown.Icon)
	assert.Equal(t, AffinityBoth, unknown.Affinity)
}

func TestCategories_ReturnsCopy(t *testing.T) {
	cats := Categories()
	require.Len(t, cats, 10)
	cats[0].Color = "#000"
	assert.Equal(t, "#f87171", LookupCategory(CategoryFood).Color)
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{in: "food", want: CategoryFood},
		{in: "Food & Drinks", want: CategoryFood},
		{in: "  rent & bills ", want: CategoryRent},
		{in: "SALARY", want: CategorySalary},
		{in: "travel", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategoriesFor(t *testing.T) {
	income := CategoriesFor(TypeIncome)
	names := make([]Category, 0, len(income))
	for _, c := range income {
		names = append(names, c.Name)
	}
	assert.Equal(t, []Category{CategorySalary, CategoryFreelance, CategoryOthers}, names)

	expense := CategoriesFor(TypeExpense)
	assert.Len(t, expense, 8)
	assert.Equal(t, CategoryOthers, expense[len(expense)-1].Name)
}

func TestBudgetCategory(t *testing.T) {
	assert.True(t, TotalBudget.Matches(CategoryShopping))
	assert.True(t, BudgetCategory(CategoryShopping).Matches(CategoryShopping))
	assert.False(t, BudgetCategory(CategoryShopping).Matches(CategoryFood))

	got, err := ParseBudgetCategory("total")
	require.NoError(t, err)
	assert.Equal(t, TotalBudget, got)

	_, err = ParseBudgetCategory("nope")
	require.ErrorIs(t, err, ErrInvalidBudget)
}

func TestSortBudgets(t *testing.T) {
	budgets := []Budget{
		{Category: BudgetCategory(CategoryShopping)},
		{Category: TotalBudget},
		{Category: BudgetCategory(CategoryFood)},
	}
	SortBudgets(budgets)
	assert.Equal(t, TotalBudget, budgets[0].Category)
	assert.Equal(t, BudgetCategory(CategoryFood), budgets[1].Category)
	assert.Equal(t, BudgetCategory(CategoryShopping), budgets[2].Category)
}
