package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStorage_CreateTransaction(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	fixed := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	store.newID = func() string { return "txn-1" }

	in := model.NewTransaction{
		Title:    "  Zomato Dinner ",
		Amount:   decimal.RequireFromString("850.50"),
		Category: model.CategoryFood,
		Type:     model.TypeExpense,
		Date:     time.Date(2024, 3, 9, 20, 30, 0, 0, time.UTC),
		Notes:    "team dinner",
	}

	created, err := store.CreateTransaction(ctx, "user-1", in)
	require.NoError(t, err)
	assert.Equal(t, "txn-1", created.ID)
	assert.Equal(t, "user-1", created.UserID)
	assert.Equal(t, "Zomato Dinner", created.Title)
	assert.True(t, created.CreatedAt.Equal(fixed))

	got, err := store.GetTransaction(ctx, "user-1", "txn-1")
	require.NoError(t, err)
	assert.Equal(t, "Zomato Dinner", got.Title)
	assert.True(t, got.Amount.Equal(in.Amount), "amount = %s", got.Amount)
	assert.Equal(t, model.CategoryFood, got.Category)
	assert.Equal(t, model.TypeExpense, got.Type)
	assert.True(t, got.Date.Equal(in.Date))
	assert.Equal(t, "team dinner", got.Notes)
}

func TestSQLiteStorage_CreateTransaction_Validation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*model.NewTransaction)
	}{
		{name: "missing title", mutate: func(n *model.NewTransaction) { n.Title = " " }},
		{name: "negative amount", mutate: func(n *model.NewTransaction) { n.Amount = decimal.NewFromInt(-5) }},
		{name: "unknown category", mutate: func(n *model.NewTransaction) { n.Category = "Travel" }},
		{name: "income category on expense", mutate: func(n *model.NewTransaction) { n.Category = model.CategorySalary }},
		{name: "missing date", mutate: func(n *model.NewTransaction) { n.Date = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newTestTransaction("Lunch", 200, 4)
			tt.mutate(&in)
			_, err := store.CreateTransaction(ctx, "user-1", in)
			assert.ErrorIs(t, err, model.ErrInvalidTransaction)
		})
	}

	txns, err := store.ListTransactions(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestSQLiteStorage_ListTransactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	for _, in := range []model.NewTransaction{
		newTestTransaction("Older", 100, 2),
		newTestTransaction("Newest", 300, 20),
		newTestTransaction("Middle", 200, 10),
	} {
		_, err := store.CreateTransaction(ctx, "user-1", in)
		require.NoError(t, err)
	}
	_, err := store.CreateTransaction(ctx, "user-2", newTestTransaction("Other user", 999, 15))
	require.NoError(t, err)

	txns, err := store.ListTransactions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, "Newest", txns[0].Title)
	assert.Equal(t, "Middle", txns[1].Title)
	assert.Equal(t, "Older", txns[2].Title)

	_, err = store.ListTransactions(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestSQLiteStorage_UpdateTransaction(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	created, err := store.CreateTransaction(ctx, "user-1", newTestTransaction("Cab", 250, 5))
	require.NoError(t, err)

	update := model.UpdateFrom(*created)
	update.Title = "Uber to airport"
	update.Amount = decimal.NewFromInt(640)
	update.Category = model.CategoryTransport

	t.Run("updates owned row", func(t *testing.T) {
		require.NoError(t, store.UpdateTransaction(ctx, "user-1", update))

		got, err := store.GetTransaction(ctx, "user-1", created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Uber to airport", got.Title)
		assert.True(t, got.Amount.Equal(decimal.NewFromInt(640)))
		assert.Equal(t, model.CategoryTransport, got.Category)
		assert.True(t, got.CreatedAt.Equal(created.CreatedAt))
	})

	t.Run("missing id", func(t *testing.T) {
		missing := update
		missing.ID = "does-not-exist"
		err := store.UpdateTransaction(ctx, "user-1", missing)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("other user's row", func(t *testing.T) {
		err := store.UpdateTransaction(ctx, "user-2", update)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("empty id rejected", func(t *testing.T) {
		blank := update
		blank.ID = ""
		err := store.UpdateTransaction(ctx, "user-1", blank)
		assert.ErrorIs(t, err, model.ErrInvalidTransaction)
	})
}

func TestSQLiteStorage_DeleteTransaction(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	created, err := store.CreateTransaction(ctx, "user-1", newTestTransaction("Movie", 500, 7))
	require.NoError(t, err)

	// Another user cannot delete it.
	require.NoError(t, store.DeleteTransaction(ctx, "user-2", created.ID))
	_, err = store.GetTransaction(ctx, "user-1", created.ID)
	require.NoError(t, err)

	require.NoError(t, store.DeleteTransaction(ctx, "user-1", created.ID))
	_, err = store.GetTransaction(ctx, "user-1", created.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, store.DeleteTransaction(ctx, "user-1", created.ID))
}

func TestSQLiteStorage_ImportTransactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	batch := []model.NewTransaction{
		newTestTransaction("Swiggy", 320, 3),
		newTestTransaction("Metro card", 500, 4),
		newTestTransaction("swiggy ", 320, 3), // same fingerprint as the first row
	}
	batch[1].Category = model.CategoryTransport

	n, err := store.ImportTransactions(ctx, "user-1", batch)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.ImportTransactions(ctx, "user-1", batch)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "re-import should skip every row")

	n, err = store.ImportTransactions(ctx, "user-2", batch[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, n, "fingerprints are scoped per user")

	t.Run("statement rows with distinct bank ids are kept", func(t *testing.T) {
		first := newTestTransaction("Chai Point", 40, 5)
		first.Notes = "FITID A1"
		second := newTestTransaction("Chai Point", 40, 5)
		second.Notes = "FITID A2"

		n, err := store.ImportTransactions(ctx, "user-4", []model.NewTransaction{first, second})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = store.ImportTransactions(ctx, "user-4", []model.NewTransaction{second})
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("invalid row aborts whole batch", func(t *testing.T) {
		bad := []model.NewTransaction{newTestTransaction("Fine", 10, 9), newTestTransaction("", 10, 9)}
		_, err := store.ImportTransactions(ctx, "user-3", bad)
		require.ErrorIs(t, err, model.ErrInvalidTransaction)

		txns, err := store.ListTransactions(ctx, "user-3")
		require.NoError(t, err)
		assert.Empty(t, txns)
	})
}
