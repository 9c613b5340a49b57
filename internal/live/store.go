package live

import (
	"context"
	"log/slog"

	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/Veraticus/rupeeflow/internal/service"
	"github.com/shopspring/decimal"
)

// Notifier tells other processes that a user's data changed.
type Notifier interface {
	Notify(ctx context.Context, userID string, topic Topic) error
}

// Store decorates a service.Storage with subscriptions. After each
// successful mutation it reloads the affected list and publishes it.
// Backends with their own live queries serve subscriptions directly.
type Store struct {
	service.Storage
	native       service.Subscriber
	transactions *Hub[[]model.Transaction]
	budgets      *Hub[[]model.Budget]
	notifier     Notifier
	logger       *slog.Logger
}

// NewStore wraps inner. notifier may be nil.
func NewStore(inner service.Storage, notifier Notifier, logger *slog.Logger) *Store {
	logger = common.LoggerOrDefault(logger)
	native, _ := inner.(service.Subscriber)
	return &Store{
		Storage:      inner,
		native:       native,
		transactions: NewHub[[]model.Transaction](logger),
		budgets:      NewHub[[]model.Budget](logger),
		notifier:     notifier,
		logger:       logger,
	}
}

// SetNotifier replaces the notifier. It must be called before the store is
// shared between goroutines.
func (s *Store) SetNotifier(n Notifier) {
	s.notifier = n
}

// CreateTransaction stores in and publishes the new list.
func (s *Store) CreateTransaction(ctx context.Context, userID string, in model.NewTransaction) (*model.Transaction, error) {
	txn, err := s.Storage.CreateTransaction(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, userID, TopicTransactions)
	return txn, nil
}

// UpdateTransaction updates a row and publishes the new list.
func (s *Store) UpdateTransaction(ctx context.Context, userID string, in model.TransactionUpdate) error {
	if err := s.Storage.UpdateTransaction(ctx, userID, in); err != nil {
		return err
	}
	s.changed(ctx, userID, TopicTransactions)
	return nil
}

// DeleteTransaction deletes a row and publishes the new list.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := s.Storage.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.changed(ctx, userID, TopicTransactions)
	return nil
}

// ImportTransactions imports rows and publishes when any were inserted.
func (s *Store) ImportTransactions(ctx context.Context, userID string, in []model.NewTransaction) (int, error) {
	n, err := s.Storage.ImportTransactions(ctx, userID, in)
	if n > 0 {
		s.changed(ctx, userID, TopicTransactions)
	}
	return n, err
}

// UpsertBudget writes a budget and publishes the new list.
func (s *Store) UpsertBudget(ctx context.Context, userID string, category model.BudgetCategory, limit decimal.Decimal) error {
	if err := s.Storage.UpsertBudget(ctx, userID, category, limit); err != nil {
		return err
	}
	s.changed(ctx, userID, TopicBudgets)
	return nil
}

// DeleteBudget removes a budget and publishes the new list.
func (s *Store) DeleteBudget(ctx context.Context, userID string, category model.BudgetCategory) error {
	if err := s.Storage.DeleteBudget(ctx, userID, category); err != nil {
		return err
	}
	s.changed(ctx, userID, TopicBudgets)
	return nil
}

// EnsureDefaultBudget publishes only when the default row was created.
func (s *Store) EnsureDefaultBudget(ctx context.Context, userID string) (bool, error) {
	created, err := s.Storage.EnsureDefaultBudget(ctx, userID)
	if err != nil {
		return false, err
	}
	if created {
		s.changed(ctx, userID, TopicBudgets)
	}
	return created, nil
}

// SubscribeTransactions delivers the current list, then every later one.
func (s *Store) SubscribeTransactions(ctx context.Context, userID string, fn func([]model.Transaction)) (service.CancelFunc, error) {
	if s.native != nil {
		return s.native.SubscribeTransactions(ctx, userID, fn)
	}
	return s.transactions.Subscribe(userID, fn, func() ([]model.Transaction, error) {
		return s.Storage.ListTransactions(ctx, userID)
	})
}

// SubscribeBudgets delivers the current budgets, then every later list.
func (s *Store) SubscribeBudgets(ctx context.Context, userID string, fn func([]model.Budget)) (service.CancelFunc, error) {
	if s.native != nil {
		return s.native.SubscribeBudgets(ctx, userID, fn)
	}
	return s.budgets.Subscribe(userID, fn, func() ([]model.Budget, error) {
		return s.Storage.ListBudgets(ctx, userID)
	})
}

// Refresh reloads topic for userID and publishes it locally without
// notifying other processes. It is a no-op when nobody here is subscribed.
// The sequence number is taken before the reload, so a slow reload never
// replaces a newer list.
func (s *Store) Refresh(ctx context.Context, userID string, topic Topic) error {
	switch topic {
	case TopicTransactions:
		if s.transactions.Subscribers(userID) == 0 {
			return nil
		}
		seq := s.transactions.Reserve(userID)
		txns, err := s.Storage.ListTransactions(ctx, userID)
		if err != nil {
			return err
		}
		s.transactions.PublishAt(userID, txns, seq)
	case TopicBudgets:
		if s.budgets.Subscribers(userID) == 0 {
			return nil
		}
		seq := s.budgets.Reserve(userID)
		budgets, err := s.Storage.ListBudgets(ctx, userID)
		if err != nil {
			return err
		}
		s.budgets.PublishAt(userID, budgets, seq)
	default:
		s.logger.Debug("ignoring refresh for unknown topic", "topic", topic)
	}
	return nil
}

// Subscribers counts the local subscriptions of userID to topic.
func (s *Store) Subscribers(userID string, topic Topic) int {
	switch topic {
	case TopicTransactions:
		return s.transactions.Subscribers(userID)
	case TopicBudgets:
		return s.budgets.Subscribers(userID)
	}
	return 0
}

// Close cancels all subscriptions and closes the wrapped store.
func (s *Store) Close() error {
	s.transactions.Close()
	s.budgets.Close()
	return s.Storage.Close()
}

func (s *Store) changed(ctx context.Context, userID string, topic Topic) {
	if err := s.Refresh(ctx, userID, topic); err != nil {
		s.logger.Warn("failed to publish live snapshot", "user_id", userID, "topic", topic, "error", err)
	}
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, topic); err != nil {
		s.logger.Warn("failed to notify peers", "user_id", userID, "topic", topic, "error", err)
	}
}

var _ service.LiveStorage = (*Store)(nil)
