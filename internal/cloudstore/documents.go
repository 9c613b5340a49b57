package cloudstore

import (
	"time"

	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/shopspring/decimal"
)

const (
	transactionsCollection = "transactions"
	budgetsCollection      = "budgets"
)

// transactionDoc is the stored shape of a transaction. Amounts are kept as
// strings so they round-trip without float error.
type transactionDoc struct {
	Date        time.Time `firestore:"date"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
	UserID      string    `firestore:"userId"`
	Title       string    `firestore:"title"`
	Amount      string    `firestore:"amount"`
	Category    string    `firestore:"category"`
	Type        string    `firestore:"type"`
	Notes       string    `firestore:"notes,omitempty"`
	Fingerprint string    `firestore:"fingerprint"`
}

func toTransactionDoc(t model.Transaction) transactionDoc {
	return transactionDoc{
		UserID:      t.UserID,
		Title:       t.Title,
		Amount:      t.Amount.String(),
		Category:    string(t.Category),
		Type:        string(t.Type),
		Date:        t.Date,
		Notes:       t.Notes,
		Fingerprint: t.Fingerprint(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (d transactionDoc) transaction(id string) (model.Transaction, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return model.Transaction{}, err
	}
	return model.Transaction{
		ID:        id,
		UserID:    d.UserID,
		Title:     d.Title,
		Amount:    amount,
		Category:  model.Category(d.Category),
		Type:      model.TransactionType(d.Type),
		Date:      d.Date,
		Notes:     d.Notes,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

type budgetDoc struct {
	UpdatedAt time.Time `firestore:"updatedAt"`
	UserID    string    `firestore:"userId"`
	Category  string    `firestore:"category"`
	Limit     string    `firestore:"limit"`
}

func (d budgetDoc) budget() (model.Budget, error) {
	limit, err := decimal.NewFromString(d.Limit)
	if err != nil {
		return model.Budget{}, err
	}
	return model.Budget{
		UserID:    d.UserID,
		Category:  model.BudgetCategory(d.Category),
		Limit:     limit,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

// budgetDocID keys budgets by (user, category) so upserts overwrite.
func budgetDocID(userID string, category model.BudgetCategory) string {
	return userID + "__" + string(category)
}
