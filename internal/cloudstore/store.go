package cloudstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/Veraticus/rupeeflow/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Store implements service.LiveStorage on Firestore.
type Store struct {
	client *firestore.Client
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// New opens the Firestore client of app.
func New(ctx context.Context, app *firebase.App, logger *slog.Logger) (*Store, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firestore client: %w", err)
	}
	return NewWithClient(client, logger), nil
}

// NewWithClient wraps an existing Firestore client.
func NewWithClient(client *firestore.Client, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		logger: common.LoggerOrDefault(logger),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Close releases the Firestore client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) transactions() *firestore.CollectionRef {
	return s.client.Collection(transactionsCollection)
}

func (s *Store) budgets() *firestore.CollectionRef {
	return s.client.Collection(budgetsCollection)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ListTransactions returns the user's transactions, most recent date first.
func (s *Store) ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user", common.ErrUnauthorized)
	}
	docs, err := s.transactions().Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	return decodeTransactions(docs)
}

func decodeTransactions(docs []*firestore.DocumentSnapshot) ([]model.Transaction, error) {
	txns := make([]model.Transaction, 0, len(docs))
	for _, doc := range docs {
		var d transactionDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to decode transaction %s: %w", doc.Ref.ID, err)
		}
		txn, err := d.transaction(doc.Ref.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to decode transaction %s: %w", doc.Ref.ID, err)
		}
		txns = append(txns, txn)
	}
	model.SortTransactions(txns)
	return txns, nil
}

// CreateTransaction validates in and stores it under a new uuid.
func (s *Store) CreateTransaction(ctx context.Context, userID string, in model.NewTransaction) (*model.Transaction, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user", common.ErrUnauthorized)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	txn := in.Build(s.newID(), userID, s.now())
	if _, err := s.transactions().Doc(txn.ID).Create(ctx, toTransactionDoc(txn)); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return &txn, nil
}

// UpdateTransaction overwrites an owned transaction inside a Firestore
// transaction so the ownership check and the write agree.
func (s *Store) UpdateTransaction(ctx context.Context, userID string, in model.TransactionUpdate) error {
	if err := in.Validate(); err != nil {
		return err
	}
	ref := s.transactions().Doc(in.ID)

	return s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if isNotFound(err) {
			return fmt.Errorf("transaction %s: %w", in.ID, common.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load transaction: %w", err)
		}

		var d transactionDoc
		if err := snap.DataTo(&d); err != nil {
			return fmt.Errorf("failed to decode transaction: %w", err)
		}
		if d.UserID != userID {
			return fmt.Errorf("transaction %s: %w", in.ID, common.ErrNotFound)
		}

		txn, err := d.transaction(in.ID)
		if err != nil {
			return fmt.Errorf("failed to decode transaction: %w", err)
		}
		in.Apply(&txn, s.now())
		return tx.Set(ref, toTransactionDoc(txn))
	})
}

// DeleteTransaction removes an owned transaction. Absent or foreign ids are
// ignored.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	if id == "" {
		return nil
	}
	ref := s.transactions().Doc(id)

	return s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load transaction: %w", err)
		}
		owner, err := snap.DataAt("userId")
		if err != nil || owner != userID {
			return nil
		}
		return tx.Delete(ref)
	})
}

// ImportTransactions writes rows whose fingerprint the user does not have yet.
func (s *Store) ImportTransactions(ctx context.Context, userID string, in []model.NewTransaction) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: missing user", common.ErrUnauthorized)
	}
	for i, row := range in {
		if err := row.Validate(); err != nil {
			return 0, fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}

	seen := make(map[string]bool)
	iter := s.transactions().Where("userId", "==", userID).Select("fingerprint").Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to load fingerprints: %w", err)
		}
		if fp, ok := doc.Data()["fingerprint"].(string); ok {
			seen[fp] = true
		}
	}

	bw := s.client.BulkWriter(ctx)
	now := s.now()
	var jobs []*firestore.BulkWriterJob
	for _, row := range in {
		fp := row.Fingerprint()
		if seen[fp] {
			continue
		}
		seen[fp] = true

		txn := row.Build(s.newID(), userID, now)
		job, err := bw.Create(s.transactions().Doc(txn.ID), toTransactionDoc(txn))
		if err != nil {
			bw.End()
			return 0, fmt.Errorf("failed to queue transaction: %w", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	inserted := 0
	var errs []error
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, err)
			continue
		}
		inserted++
	}
	if len(errs) > 0 {
		return inserted, fmt.Errorf("failed to import %d transactions: %w", len(errs), errors.Join(errs...))
	}
	return inserted, nil
}

// ListBudgets returns the user's budgets, Total first.
func (s *Store) ListBudgets(ctx context.Context, userID string) ([]model.Budget, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user", common.ErrUnauthorized)
	}
	docs, err := s.budgets().Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	return decodeBudgets(docs)
}

func decodeBudgets(docs []*firestore.DocumentSnapshot) ([]model.Budget, error) {
	budgets := make([]model.Budget, 0, len(docs))
	for _, doc := range docs {
		var d budgetDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to decode budget %s: %w", doc.Ref.ID, err)
		}
		b, err := d.budget()
		if err != nil {
			return nil, fmt.Errorf("failed to decode budget %s: %w", doc.Ref.ID, err)
		}
		budgets = append(budgets, b)
	}
	model.SortBudgets(budgets)
	return budgets, nil
}

// UpsertBudget writes the (user, category) budget document.
func (s *Store) UpsertBudget(ctx context.Context, userID string, category model.BudgetCategory, limit decimal.Decimal) error {
	if userID == "" {
		return fmt.Errorf("%w: missing user", common.ErrUnauthorized)
	}
	if err := model.ValidateBudget(category, limit); err != nil {
		return err
	}
	doc := budgetDoc{UserID: userID, Category: string(category), Limit: limit.String(), UpdatedAt: s.now()}
	if _, err := s.budgets().Doc(budgetDocID(userID, category)).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to upsert budget: %w", err)
	}
	return nil
}

// DeleteBudget removes one budget document. Firestore deletes of missing
// documents succeed.
func (s *Store) DeleteBudget(ctx context.Context, userID string, category model.BudgetCategory) error {
	if _, err := s.budgets().Doc(budgetDocID(userID, category)).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	return nil
}

// EnsureDefaultBudget creates the Total budget inside a Firestore transaction
// when the user has none.
func (s *Store) EnsureDefaultBudget(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("%w: missing user", common.ErrUnauthorized)
	}
	query := s.budgets().Where("userId", "==", userID).Limit(1)
	ref := s.budgets().Doc(budgetDocID(userID, model.TotalBudget))

	var created bool
	err := s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		// The function may be retried, so reset per attempt.
		created = false
		existing, err := tx.Documents(query).GetAll()
		if err != nil {
			return fmt.Errorf("failed to check budgets: %w", err)
		}
		if len(existing) > 0 {
			return nil
		}
		created = true
		return tx.Create(ref, budgetDoc{
			UserID:    userID,
			Category:  string(model.TotalBudget),
			Limit:     model.DefaultTotalLimit.String(),
			UpdatedAt: s.now(),
		})
	})
	if err != nil {
		return false, fmt.Errorf("failed to create default budget: %w", err)
	}
	return created, nil
}

// SubscribeTransactions streams the user's transactions from a live query.
func (s *Store) SubscribeTransactions(ctx context.Context, userID string, fn func([]model.Transaction)) (service.CancelFunc, error) {
	query := s.transactions().Where("userId", "==", userID)
	return s.watch(ctx, query, "transactions", func(docs []*firestore.DocumentSnapshot) error {
		txns, err := decodeTransactions(docs)
		if err != nil {
			return err
		}
		fn(txns)
		return nil
	})
}

// SubscribeBudgets streams the user's budgets from a live query.
func (s *Store) SubscribeBudgets(ctx context.Context, userID string, fn func([]model.Budget)) (service.CancelFunc, error) {
	query := s.budgets().Where("userId", "==", userID)
	return s.watch(ctx, query, "budgets", func(docs []*firestore.DocumentSnapshot) error {
		budgets, err := decodeBudgets(docs)
		if err != nil {
			return err
		}
		fn(budgets)
		return nil
	})
}

func (s *Store) watch(ctx context.Context, query firestore.Query, topic string, deliver func([]*firestore.DocumentSnapshot) error) (service.CancelFunc, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := query.Snapshots(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			snap, err := it.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled && ctx.Err() == nil {
					s.logger.Warn("live query stopped", "topic", topic, "error", err)
				}
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				s.logger.Warn("failed to read live snapshot", "topic", topic, "error", err)
				continue
			}
			if err := deliver(docs); err != nil {
				s.logger.Warn("failed to decode live snapshot", "topic", topic, "error", err)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			it.Stop()
			<-done
		})
	}, nil
}
