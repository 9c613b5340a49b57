package ledger

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/Veraticus/rupeeflow/internal/service"
	"github.com/shopspring/decimal"
)

// Builder accumulates transactions and budgets for one test.
type Builder struct {
	t       *testing.T
	date    time.Time
	txns    []model.NewTransaction
	budgets []model.Budget
}

// NewBuilder creates a builder whose records default to today in UTC.
func NewBuilder(t *testing.T) *Builder {
	t.Helper()
	now := time.Now().UTC()
	return &Builder{
		t:    t,
		date: time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, time.UTC),
	}
}

// On sets the date used by records added afterwards.
func (b *Builder) On(date time.Time) *Builder {
	b.date = date
	return b
}

// WithIncome adds an income record.
func (b *Builder) WithIncome(title string, category model.Category, amount int64) *Builder {
	return b.with(title, category, model.TypeIncome, amount)
}

// WithExpense adds an expense record.
func (b *Builder) WithExpense(title string, category model.Category, amount int64) *Builder {
	return b.with(title, category, model.TypeExpense, amount)
}

// WithBudget adds a budget limit.
func (b *Builder) WithBudget(category model.BudgetCategory, limit int64) *Builder {
	b.budgets = append(b.budgets, model.Budget{Category: category, Limit: decimal.NewFromInt(limit)})
	return b
}

// WithFixture adds every record of f, dated on the builder's current date.
func (b *Builder) WithFixture(f Fixture) *Builder {
	for _, r := range f.Records {
		b.with(r.Title, r.Category, r.Type, r.Amount)
	}
	for _, budget := range f.Budgets {
		b.WithBudget(budget.Category, budget.Limit)
	}
	return b
}

func (b *Builder) with(title string, category model.Category, typ model.TransactionType, amount int64) *Builder {
	b.txns = append(b.txns, model.NewTransaction{
		Title:    title,
		Category: category,
		Type:     typ,
		Amount:   decimal.NewFromInt(amount),
		Date:     b.date,
	})
	return b
}

// Payloads returns the accumulated create payloads.
func (b *Builder) Payloads() []model.NewTransaction {
	out := make([]model.NewTransaction, len(b.txns))
	copy(out, b.txns)
	return out
}

// Transactions builds in-memory transactions owned by userID without a store.
// IDs are "txn-1", "txn-2", and so on.
func (b *Builder) Transactions(userID string) []model.Transaction {
	out := make([]model.Transaction, 0, len(b.txns))
	for i, in := range b.txns {
		id := "txn-" + strconv.Itoa(i+1)
		out = append(out, in.Build(id, userID, b.date))
	}
	return out
}

// Budgets returns the accumulated budgets owned by userID.
func (b *Builder) Budgets(userID string) []model.Budget {
	out := make([]model.Budget, 0, len(b.budgets))
	for _, budget := range b.budgets {
		budget.UserID = userID
		out = append(out, budget)
	}
	return out
}

// MustSeed writes every record to store and fails the test on error.
func (b *Builder) MustSeed(ctx context.Context, store service.Storage, userID string) []model.Transaction {
	b.t.Helper()
	created := make([]model.Transaction, 0, len(b.txns))
	for _, in := range b.txns {
		txn, err := store.CreateTransaction(ctx, userID, in)
		if err != nil {
			b.t.Fatalf("failed to seed transaction %q: %v", in.Title, err)
		}
		created = append(created, *txn)
	}
	for _, budget := range b.budgets {
		if err := store.UpsertBudget(ctx, userID, budget.Category, budget.Limit); err != nil {
			b.t.Fatalf("failed to seed budget %q: %v", budget.Category, err)
		}
	}
	return created
}
