package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/model"
)

const userColumns = `id, email, display_name, password_hash, provider, email_verified, created_at`

// CreateUser stores a new account. A taken email yields common.ErrDuplicateEntry.
func (s *SQLiteStorage) CreateUser(ctx context.Context, user *model.User) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUser(user); err != nil {
		return err
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.Email, user.DisplayName, user.PasswordHash, string(user.Provider),
		user.EmailVerified, user.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", user.Email, common.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID loads an account by id.
func (s *SQLiteStorage) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByEmail loads an account by normalized email.
func (s *SQLiteStorage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, model.NormalizeEmail(email))
}

func (s *SQLiteStorage) getUser(ctx context.Context, query string, arg string) (*model.User, error) {
	var (
		user     model.User
		provider string
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Email, &user.DisplayName,
		&user.PasswordHash, &provider, &user.EmailVerified, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", arg, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Provider = model.AuthProvider(provider)
	return &user, nil
}

// UpdateUser saves the mutable account fields.
func (s *SQLiteStorage) UpdateUser(ctx context.Context, user *model.User) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUser(user); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET display_name = ?, password_hash = ?, provider = ?, email_verified = ?
		WHERE id = ?
	`, user.DisplayName, user.PasswordHash, string(user.Provider), user.EmailVerified, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %s: %w", user.ID, common.ErrNotFound)
	}
	return nil
}

// SaveToken stores a single-use token, replacing older tokens of the same
// kind for that user.
func (s *SQLiteStorage) SaveToken(ctx context.Context, token model.AuthToken) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(token.Hash, "hash"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM auth_tokens WHERE user_id = ? AND kind = ?`,
			token.UserID, string(token.Kind)); err != nil {
			return fmt.Errorf("failed to clear old tokens: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO auth_tokens (hash, user_id, kind, expires_at) VALUES (?, ?, ?, ?)
		`, token.Hash, token.UserID, string(token.Kind), token.ExpiresAt); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		return nil
	})
}

// ConsumeToken deletes and returns a live token of the given kind.
func (s *SQLiteStorage) ConsumeToken(ctx context.Context, kind model.TokenKind, hash string) (*model.AuthToken, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var token model.AuthToken
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var k string
		err := tx.QueryRowContext(ctx, `
			SELECT hash, user_id, kind, expires_at FROM auth_tokens WHERE hash = ? AND kind = ?
		`, hash, string(kind)).Scan(&token.Hash, &token.UserID, &k, &token.ExpiresAt)
		if err == sql.ErrNoRows {
			return fmt.Errorf("token: %w", common.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load token: %w", err)
		}
		token.Kind = model.TokenKind(k)

		if _, err := tx.ExecContext(ctx, `DELETE FROM auth_tokens WHERE hash = ?`, hash); err != nil {
			return fmt.Errorf("failed to consume token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !token.ExpiresAt.After(s.now()) {
		return nil, fmt.Errorf("token expired: %w", common.ErrNotFound)
	}
	return &token, nil
}

// RevokeSession records a signed-out session id until it would have expired.
func (s *SQLiteStorage) RevokeSession(ctx context.Context, sessionID string, expiresAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM revoked_sessions WHERE expires_at < ?`, s.now()); err != nil {
			return fmt.Errorf("failed to prune revoked sessions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO revoked_sessions (id, expires_at) VALUES (?, ?)
		`, sessionID, expiresAt); err != nil {
			return fmt.Errorf("failed to revoke session: %w", err)
		}
		return nil
	})
}

// IsSessionRevoked reports whether a session id was signed out.
func (s *SQLiteStorage) IsSessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM revoked_sessions WHERE id = ?`, sessionID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return true, nil
}
