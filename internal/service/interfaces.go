// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/shopspring/decimal"
)

// CancelFunc tears down a subscription. Calling it more than once is safe.
type CancelFunc func()

// TransactionStore is the per-user record store. Every method is scoped to
// userID; rows owned by other users are invisible.
type TransactionStore interface {
	// ListTransactions returns the user's transactions, most recent date first.
	ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error)
	// CreateTransaction assigns an identifier and owner to in and stores it.
	CreateTransaction(ctx context.Context, userID string, in model.NewTransaction) (*model.Transaction, error)
	// UpdateTransaction replaces a stored row; common.ErrNotFound if absent.
	UpdateTransaction(ctx context.Context, userID string, in model.TransactionUpdate) error
	// DeleteTransaction removes a row. Deleting an absent id is not an error.
	DeleteTransaction(ctx context.Context, userID, id string) error
	// ImportTransactions stores rows in bulk, skipping ones already present.
	ImportTransactions(ctx context.Context, userID string, in []model.NewTransaction) (int, error)
}

// BudgetStore holds at most one budget per (user, category).
type BudgetStore interface {
	ListBudgets(ctx context.Context, userID string) ([]model.Budget, error)
	UpsertBudget(ctx context.Context, userID string, category model.BudgetCategory, limit decimal.Decimal) error
	DeleteBudget(ctx context.Context, userID string, category model.BudgetCategory) error
	// EnsureDefaultBudget creates the default Total budget when the user has
	// no budgets at all. It reports whether a row was created.
	EnsureDefaultBudget(ctx context.Context, userID string) (bool, error)
}

// Storage is a complete persistence backend.
type Storage interface {
	TransactionStore
	BudgetStore
	Close() error
}

// Subscriber pushes full snapshots of a user's data. fn receives the current
// snapshot first and then every later one; only the latest matters.
type Subscriber interface {
	SubscribeTransactions(ctx context.Context, userID string, fn func([]model.Transaction)) (CancelFunc, error)
	SubscribeBudgets(ctx context.Context, userID string, fn func([]model.Budget)) (CancelFunc, error)
}

// LiveStorage is a backend that also supports subscriptions.
type LiveStorage interface {
	Storage
	Subscriber
}

// UserStore persists local accounts and their single-use tokens.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	SaveToken(ctx context.Context, token model.AuthToken) error
	// ConsumeToken deletes and returns a live token; common.ErrNotFound when
	// it is missing or expired.
	ConsumeToken(ctx context.Context, kind model.TokenKind, hash string) (*model.AuthToken, error)
	RevokeSession(ctx context.Context, sessionID string, expiresAt time.Time) error
	IsSessionRevoked(ctx context.Context, sessionID string) (bool, error)
}

// IdentityProvider authenticates users.
type IdentityProvider interface {
	Register(ctx context.Context, email, password, displayName string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.Session, error)
	VerifyEmail(ctx context.Context, token string) error
	GoogleAuthURL(state string) string
	LoginWithGoogle(ctx context.Context, code string) (*model.Session, error)
	SendPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*model.User, error)
	// Watch reports identity changes: a user on sign-in, nil on sign-out.
	Watch(fn func(*model.User)) CancelFunc
}

// Advisor produces free-text financial commentary. It never fails; errors
// become canned replies.
type Advisor interface {
	Advice(ctx context.Context, txns []model.Transaction, budgets []model.Budget) string
	Chat(ctx context.Context, query string, txns []model.Transaction, history []model.ChatTurn) string
}

// Mailer delivers account emails.
type Mailer interface {
	SendVerification(ctx context.Context, to, name, link string) error
	SendPasswordReset(ctx context.Context, to, link string) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
