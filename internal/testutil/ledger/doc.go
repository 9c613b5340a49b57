// Package ledger provides test infrastructure for seeding transactions and
// budgets. It offers a fluent API so tests state the records they need
// instead of building payloads by hand.
//
// # Basic Usage
//
//	db := testutil.SetupTestDB(t)
//	txns := ledger.NewBuilder(t).
//		On(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)).
//		WithIncome("Monthly Salary", model.CategorySalary, 85000).
//		WithExpense("Apartment Rent", model.CategoryRent, 18000).
//		MustSeed(ctx, db.Storage, "user-1")
//
// # Fixtures
//
// Fixtures are named record sets shared by related tests:
//
//	ledger.NewBuilder(t).WithFixture(ledger.FixtureStarter)
package ledger
