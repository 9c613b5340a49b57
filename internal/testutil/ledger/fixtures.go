package ledger

import "github.com/Veraticus/rupeeflow/internal/model"

// Record is one fixture transaction.
type Record struct {
	Title    string
	Category model.Category
	Type     model.TransactionType
	Amount   int64
}

// BudgetRecord is one fixture budget.
type BudgetRecord struct {
	Category model.BudgetCategory
	Limit    int64
}

// Fixture is a named set of records.
type Fixture struct {
	Name    string
	Records []Record
	Budgets []BudgetRecord
}

// Predefined fixtures.
var (
	// FixtureStarter matches the demo data offered to new accounts.
	FixtureStarter = Fixture{
		Name: "Starter",
		Records: []Record{
			{Title: "Monthly Salary", Category: model.CategorySalary, Type: model.TypeIncome, Amount: 85000},
			{Title: "Apartment Rent", Category: model.CategoryRent, Type: model.TypeExpense, Amount: 18000},
			{Title: "Zomato Dinner", Category: model.CategoryFood, Type: model.TypeExpense, Amount: 850},
		},
	}

	// FixtureOverspent puts Food & Drinks past its limit and Total near it.
	FixtureOverspent = Fixture{
		Name: "Overspent",
		Records: []Record{
			{Title: "Freelance Project", Category: model.CategoryFreelance, Type: model.TypeIncome, Amount: 20000},
			{Title: "Groceries", Category: model.CategoryFood, Type: model.TypeExpense, Amount: 4000},
			{Title: "Team Lunch", Category: model.CategoryFood, Type: model.TypeExpense, Amount: 1000},
			{Title: "Laptop", Category: model.CategoryShopping, Type: model.TypeExpense, Amount: 4500},
		},
		Budgets: []BudgetRecord{
			{Category: model.TotalBudget, Limit: 10000},
			{Category: model.BudgetCategory(model.CategoryFood), Limit: 4000},
		},
	}
)
