package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/shopspring/decimal"
)

// ListBudgets returns the user's budgets, Total first.
func (s *SQLiteStorage) ListBudgets(ctx context.Context, userID string) ([]model.Budget, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, category, limit_amount, updated_at
		FROM budgets
		WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.Budget
	for rows.Next() {
		var (
			b        model.Budget
			category string
		)
		if err := rows.Scan(&b.UserID, &category, &b.Limit, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		b.Category = model.BudgetCategory(category)
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating budgets: %w", err)
	}

	model.SortBudgets(budgets)
	return budgets, nil
}

// UpsertBudget creates the (user, category) budget or overwrites its limit.
func (s *SQLiteStorage) UpsertBudget(ctx context.Context, userID string, category model.BudgetCategory, limit decimal.Decimal) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if err := model.ValidateBudget(category, limit); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, category, limit_amount, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, category) DO UPDATE SET
			limit_amount = excluded.limit_amount,
			updated_at = excluded.updated_at
	`, userID, string(category), limit, s.now())
	if err != nil {
		return fmt.Errorf("failed to upsert budget: %w", err)
	}
	return nil
}

// DeleteBudget removes one budget. Absent budgets are ignored.
func (s *SQLiteStorage) DeleteBudget(ctx context.Context, userID string, category model.BudgetCategory) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE user_id = ? AND category = ?`, userID, string(category)); err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	return nil
}

// EnsureDefaultBudget inserts the default Total budget only when the user
// has no budgets. The check and insert are a single statement, so concurrent
// callers cannot both create it.
func (s *SQLiteStorage) EnsureDefaultBudget(ctx context.Context, userID string) (bool, error) {
	if err := validateScope(ctx, userID); err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, category, limit_amount, updated_at)
		SELECT ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM budgets WHERE user_id = ?)
	`, userID, string(model.TotalBudget), model.DefaultTotalLimit, s.now(), userID)
	if err != nil {
		return false, fmt.Errorf("failed to create default budget: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check default budget result: %w", err)
	}
	return affected > 0, nil
}
