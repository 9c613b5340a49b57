// Package testutil provides shared helpers for tests that need a database.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/rupeeflow/internal/storage"
)

// TestDB is a migrated in-memory database owned by one test.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory database and runs migrations.
// The database is closed when the test finishes.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// MustEnsureDefaultBudget gives userID the default Total budget.
func (db *TestDB) MustEnsureDefaultBudget(userID string) {
	db.t.Helper()
	if _, err := db.Storage.EnsureDefaultBudget(context.Background(), userID); err != nil {
		db.t.Fatalf("failed to create default budget: %v", err)
	}
}
