package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/model"
)

const transactionColumns = `id, user_id, title, amount, category, type, date, notes, created_at, updated_at`

// ListTransactions returns the user's transactions, most recent date first.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = ?
		ORDER BY date DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	// Stored dates keep their zone offsets, so SQL string order is only
	// approximate across zones.
	model.SortTransactions(txns)
	return txns, nil
}

// GetTransaction returns one transaction owned by userID.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, userID, id string) (*model.Transaction, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = ? AND user_id = ?
	`, id, userID)

	txn, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// CreateTransaction validates in, assigns an id and owner, and stores it.
func (s *SQLiteStorage) CreateTransaction(ctx context.Context, userID string, in model.NewTransaction) (*model.Transaction, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	txn := in.Build(s.newID(), userID, s.now())
	if err := insertTransaction(ctx, s.db, txn); err != nil {
		return nil, err
	}
	return &txn, nil
}

// UpdateTransaction replaces the mutable fields of an existing transaction.
func (s *SQLiteStorage) UpdateTransaction(ctx context.Context, userID string, in model.TransactionUpdate) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}

	var txn model.Transaction
	in.Apply(&txn, s.now())

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET title = ?, amount = ?, category = ?, type = ?, date = ?, notes = ?,
			fingerprint = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, txn.Title, txn.Amount, string(txn.Category), string(txn.Type), txn.Date, txn.Notes,
		txn.Fingerprint(), txn.UpdatedAt, in.ID, userID)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", in.ID, common.ErrNotFound)
	}
	return nil
}

// DeleteTransaction removes a transaction. Absent ids are ignored.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

// ImportTransactions stores rows in one database transaction, skipping any
// whose fingerprint the user already has. It returns how many were inserted.
func (s *SQLiteStorage) ImportTransactions(ctx context.Context, userID string, in []model.NewTransaction) (int, error) {
	if err := validateScope(ctx, userID); err != nil {
		return 0, err
	}
	for i, row := range in {
		if err := row.Validate(); err != nil {
			return 0, fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}

	inserted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := tx.PrepareContext(ctx, `SELECT 1 FROM transactions WHERE user_id = ? AND fingerprint = ? LIMIT 1`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = exists.Close() }()

		now := s.now()
		for _, row := range in {
			var one int
			switch scanErr := exists.QueryRowContext(ctx, userID, row.Fingerprint()).Scan(&one); {
			case scanErr == nil:
				continue
			case scanErr != sql.ErrNoRows:
				return fmt.Errorf("failed to check for duplicate: %w", scanErr)
			}

			if err := insertTransaction(ctx, tx, row.Build(s.newID(), userID, now)); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTransaction(ctx context.Context, db execer, txn model.Transaction) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, txn.ID, txn.UserID, txn.Title, txn.Amount, string(txn.Category), string(txn.Type),
		txn.Date, txn.Notes, txn.CreatedAt, txn.UpdatedAt, txn.Fingerprint())
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var (
		txn      model.Transaction
		category string
		typ      string
	)
	err := row.Scan(&txn.ID, &txn.UserID, &txn.Title, &txn.Amount, &category, &typ,
		&txn.Date, &txn.Notes, &txn.CreatedAt, &txn.UpdatedAt)
	if err == sql.ErrNoRows {
		return txn, err
	}
	if err != nil {
		return txn, fmt.Errorf("failed to scan transaction: %w", err)
	}
	txn.Category = model.Category(category)
	txn.Type = model.TransactionType(strings.ToLower(typ))
	return txn, nil
}
