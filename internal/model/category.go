package model

import (
	"fmt"
	"strings"
)

// Category is one of the fixed spending or income classifications.
type Category string

// The closed set of categories, in display order.
const (
	CategoryFood          Category = "Food & Drinks"
	CategoryTransport     Category = "Transport"
	CategoryRent          Category = "Rent & Bills"
	CategoryShopping      Category = "Shopping"
	CategoryHealth        Category = "Healthcare"
	CategoryEntertainment Category = "Entertainment"
	CategoryInvestment    Category = "Investment"
	CategorySalary        Category = "Salary"
	CategoryFreelance     Category = "Freelance"
	CategoryOthers        Category = "Others"
)

// Affinity says which transaction types a category may be used with.
type Affinity string

const (
	// AffinityExpense categories are offered for expenses only.
	AffinityExpense Affinity = "expense"
	// AffinityIncome categories are offered for income only.
	AffinityIncome Affinity = "income"
	// AffinityBoth categories are offered for either type.
	AffinityBoth Affinity = "both"
)

// CategoryInfo is the static display metadata for a category.
type CategoryInfo struct {
	Name     Category `json:"name"`
	Key      string   `json:"key"`
	Color    string   `json:"color"`
	Icon     string   `json:"icon"`
	Affinity Affinity `json:"affinity"`
}

// DefaultCategoryColor is used for categories missing from the table.
const DefaultCategoryColor = "#ccc"

// DefaultCategoryIcon is used for categories missing from the table.
const DefaultCategoryIcon = "❓"

var categoryTable = [...]CategoryInfo{
	{Name: CategoryFood, Key: "food", Color: "#f87171", Icon: "🍔", Affinity: AffinityExpense},
	{Name: CategoryTransport, Key: "transport", Color: "#60a5fa", Icon: "🚗", Affinity: AffinityExpense},
	{Name: CategoryRent, Key: "rent", Color: "#fbbf24", Icon: "🏠", Affinity: AffinityExpense},
	{Name: CategoryShopping, Key: "shopping", Color: "#818cf8", Icon: "🛍️", Affinity: AffinityExpense},
	{Name: CategoryHealth, Key: "health", Color: "#34d399", Icon: "💊", Affinity: AffinityExpense},
	{Name: CategoryEntertainment, Key: "entertainment", Color: "#f472b6", Icon: "🎬", Affinity: AffinityExpense},
	{Name: CategoryInvestment, Key: "investment", Color: "#a78bfa", Icon: "📈", Affinity: AffinityExpense},
	{Name: CategorySalary, Key: "salary", Color: "#10b981", Icon: "💰", Affinity: AffinityIncome},
	{Name: CategoryFreelance, Key: "freelance", Color: "#3b82f6", Icon: "💻", Affinity: AffinityIncome},
	{Name: CategoryOthers, Key: "others", Color: "#94a3b8", Icon: "📦", Affinity: AffinityBoth},
}

// Categories returns the category table in display order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categoryTable))
	copy(out, categoryTable[:])
	return out
}

// LookupCategory returns the metadata for c. Unknown categories resolve to
// a neutral entry instead of failing.
func LookupCategory(c Category) CategoryInfo {
	for _, info := range categoryTable {
		if info.Name == c {
			return info
		}
	}
	return CategoryInfo{
		Name:     c,
		Key:      strings.ToLower(string(c)),
		Color:    DefaultCategoryColor,
		Icon:     DefaultCategoryIcon,
		Affinity: AffinityBoth,
	}
}

// ParseCategory accepts either the display name or the short key.
func ParseCategory(s string) (Category, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, info := range categoryTable {
		if needle == info.Key || needle == strings.ToLower(string(info.Name)) {
			return info.Name, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalidTransaction, s)
}

// CategoriesFor lists the categories that may be offered for t.
func CategoriesFor(t TransactionType) []CategoryInfo {
	var out []CategoryInfo
	for _, info := range categoryTable {
		if info.Affinity == AffinityBoth || string(info.Affinity) == string(t) {
			out = append(out, info)
		}
	}
	return out
}

// Valid reports whether c belongs to the closed set.
func (c Category) Valid() bool {
	for _, info := range categoryTable {
		if info.Name == c {
			return true
		}
	}
	return false
}

// AllowsType reports whether c may be used for a transaction of type t.
func (c Category) AllowsType(t TransactionType) bool {
	info := LookupCategory(c)
	return info.Affinity == AffinityBoth || string(info.Affinity) == string(t)
}
