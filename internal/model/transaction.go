package model

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidTransaction is returned when a transaction payload fails validation.
var ErrInvalidTransaction = errors.New("invalid transaction")

// TransactionType carries the direction of a transaction.
type TransactionType string

const (
	// TypeIncome marks money coming in.
	TypeIncome TransactionType = "income"
	// TypeExpense marks money going out.
	TypeExpense TransactionType = "expense"
)

// FilterAll matches every type or category in filters.
const FilterAll = "all"

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// ParseTransactionType parses a user-supplied type, case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, s)
	}
	return t, nil
}

// Transaction is a single income or expense entry owned by one user.
// Amount is always a non-negative magnitude; Type carries the sign.
type Transaction struct {
	Date      time.Time       `json:"date"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Amount    decimal.Decimal `json:"amount"`
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Title     string          `json:"title"`
	Category  Category        `json:"category"`
	Type      TransactionType `json:"type"`
	Notes     string          `json:"notes,omitempty"`
}

// IsExpense reports whether the transaction is an expense.
func (t Transaction) IsExpense() bool {
	return t.Type == TypeExpense
}

// IsIncome reports whether the transaction is income.
func (t Transaction) IsIncome() bool {
	return t.Type == TypeIncome
}

// SignedAmount returns the amount with its direction applied.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// SortTransactions orders txns most recent date first. Rows on the same
// instant are ordered by creation time, newest first.
func SortTransactions(txns []Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.After(txns[j].Date)
		}
		return txns[i].CreatedAt.After(txns[j].CreatedAt)
	})
}

// StatementIDPrefix starts the notes of imported statement rows, followed
// by the bank's transaction id.
const StatementIDPrefix = "FITID "

// StatementID returns the bank transaction id recorded in notes, or "" for
// rows that were not imported from a statement.
func StatementID(notes string) string {
	first, _, _ := strings.Cut(notes, ";")
	id, ok := strings.CutPrefix(strings.TrimSpace(first), StatementIDPrefix)
	if !ok {
		return ""
	}
	return strings.TrimSpace(id)
}

// Fingerprint identifies a transaction for duplicate detection during
// imports. Statement rows are keyed by their bank id as well, so two
// identical purchases on one day stay distinct.
func (t Transaction) Fingerprint() string {
	return fingerprint(t.Date, t.Amount, t.Title, t.Type, t.Notes)
}

func fingerprint(date time.Time, amount decimal.Decimal, title string, typ TransactionType, notes string) string {
	data := fmt.Sprintf("%s:%s:%s:%s",
		date.Format("2006-01-02"),
		amount.StringFixed(2),
		strings.ToLower(strings.TrimSpace(title)),
		typ)
	if id := StatementID(notes); id != "" {
		data += ":" + id
	}
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// NewTransaction is the create payload. It carries no identifier or owner;
// the store assigns both.
type NewTransaction struct {
	Date     time.Time       `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Title    string          `json:"title"`
	Category Category        `json:"category"`
	Type     TransactionType `json:"type"`
	Notes    string          `json:"notes,omitempty"`
}

// Validate checks the payload before it reaches a store.
func (n NewTransaction) Validate() error {
	return validateFields(n.Title, n.Amount, n.Category, n.Type, n.Date)
}

// Fingerprint mirrors Transaction.Fingerprint for not-yet-stored rows.
func (n NewTransaction) Fingerprint() string {
	return fingerprint(n.Date, n.Amount, n.Title, n.Type, n.Notes)
}

// Build turns the payload into a transaction owned by userID.
func (n NewTransaction) Build(id, userID string, now time.Time) Transaction {
	return Transaction{
		ID:        id,
		UserID:    userID,
		Title:     strings.TrimSpace(n.Title),
		Amount:    n.Amount,
		Category:  n.Category,
		Type:      n.Type,
		Date:      n.Date,
		Notes:     strings.TrimSpace(n.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransactionUpdate is the edit payload. The identifier is required and the
// remaining fields replace the stored values.
type TransactionUpdate struct {
	Date     time.Time       `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Category Category        `json:"category"`
	Type     TransactionType `json:"type"`
	Notes    string          `json:"notes,omitempty"`
}

// Validate checks the payload before it reaches a store.
func (u TransactionUpdate) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidTransaction)
	}
	return validateFields(u.Title, u.Amount, u.Category, u.Type, u.Date)
}

// Apply overwrites the mutable fields of t in place.
func (u TransactionUpdate) Apply(t *Transaction, now time.Time) {
	t.Title = strings.TrimSpace(u.Title)
	t.Amount = u.Amount
	t.Category = u.Category
	t.Type = u.Type
	t.Date = u.Date
	t.Notes = strings.TrimSpace(u.Notes)
	t.UpdatedAt = now
}

// UpdateFrom builds an update payload that reproduces t.
func UpdateFrom(t Transaction) TransactionUpdate {
	return TransactionUpdate{
		ID:       t.ID,
		Title:    t.Title,
		Amount:   t.Amount,
		Category: t.Category,
		Type:     t.Type,
		Date:     t.Date,
		Notes:    t.Notes,
	}
}

func validateFields(title string, amount decimal.Decimal, category Category, typ TransactionType, date time.Time) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidTransaction)
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidTransaction)
	}
	if !typ.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, typ)
	}
	if !category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidTransaction, category)
	}
	if !category.AllowsType(typ) {
		return fmt.Errorf("%w: category %q is not offered for %s", ErrInvalidTransaction, category, typ)
	}
	if date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	return nil
}
