// Package session holds the signed-in user's live application state.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/Veraticus/rupeeflow/internal/service"
)

// State is a consistent view of the current identity's data.
type State struct {
	User         *model.User
	Transactions []model.Transaction
	Budgets      []model.Budget
	// Loaded is true once both subscriptions delivered their first snapshot.
	Loaded bool
}

// Manager owns the subscriptions of one identity at a time. Switching
// identity tears down the previous subscriptions before opening new ones.
type Manager struct {
	store   service.LiveStorage
	logger  *slog.Logger
	changes chan State
	cancels []service.CancelFunc
	state   State
	gen     uint64
	txReady bool
	bReady  bool
	mu      sync.Mutex
	// switching serializes SetIdentity and Clear.
	switching sync.Mutex
	// emitting makes reading the state and replacing the buffered one a
	// single step, so an older state never displaces a newer one.
	emitting sync.Mutex
	closed    bool
}

// NewManager creates a manager with no identity.
func NewManager(store service.LiveStorage, logger *slog.Logger) *Manager {
	return &Manager{
		store:   store,
		logger:  common.LoggerOrDefault(logger),
		changes: make(chan State, 1),
	}
}

// SetIdentity switches to user. A nil user is the same as Clear. The
// default budget is ensured before subscribing.
func (m *Manager) SetIdentity(ctx context.Context, user *model.User) error {
	if user == nil {
		m.Clear()
		return nil
	}

	m.switching.Lock()
	defer m.switching.Unlock()

	m.teardown()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("session manager closed")
	}
	m.gen++
	gen := m.gen
	m.state = State{User: user}
	m.txReady, m.bReady = false, false
	m.mu.Unlock()
	m.emit()

	if _, err := m.store.EnsureDefaultBudget(ctx, user.ID); err != nil {
		return fmt.Errorf("ensure default budget: %w", err)
	}

	cancelTx, err := m.store.SubscribeTransactions(ctx, user.ID, func(txns []model.Transaction) {
		m.update(gen, func(s *State) {
			s.Transactions = txns
			m.txReady = true
		})
	})
	if err != nil {
		return fmt.Errorf("subscribe transactions: %w", err)
	}

	cancelBudgets, err := m.store.SubscribeBudgets(ctx, user.ID, func(budgets []model.Budget) {
		m.update(gen, func(s *State) {
			s.Budgets = budgets
			m.bReady = true
		})
	})
	if err != nil {
		cancelTx()
		return fmt.Errorf("subscribe budgets: %w", err)
	}

	m.mu.Lock()
	m.cancels = []service.CancelFunc{cancelTx, cancelBudgets}
	m.mu.Unlock()

	m.logger.Debug("session identity set", "user_id", user.ID)
	return nil
}

// Watcher reports identity changes: a user on sign-in, nil on sign-out.
type Watcher interface {
	Watch(fn func(*model.User)) service.CancelFunc
}

// Follow drives the manager from w until the returned cancel runs.
func (m *Manager) Follow(ctx context.Context, w Watcher) service.CancelFunc {
	return w.Watch(func(user *model.User) {
		if err := m.SetIdentity(ctx, user); err != nil {
			m.logger.Warn("failed to switch session identity", "error", err)
		}
	})
}

// Clear drops the identity and its subscriptions. It runs on logout.
func (m *Manager) Clear() {
	m.switching.Lock()
	defer m.switching.Unlock()

	m.teardown()
	m.mu.Lock()
	m.gen++
	m.state = State{}
	m.txReady, m.bReady = false, false
	m.mu.Unlock()
	m.emit()
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Changes carries the latest state after every change. Only the newest
// state is buffered.
func (m *Manager) Changes() <-chan State {
	return m.changes
}

// Close tears everything down. The manager cannot be reused.
func (m *Manager) Close() {
	m.switching.Lock()
	defer m.switching.Unlock()

	m.teardown()
	m.mu.Lock()
	m.closed = true
	m.gen++
	m.state = State{}
	m.mu.Unlock()
}

// teardown cancels the current subscriptions. Callers hold switching.
func (m *Manager) teardown() {
	m.mu.Lock()
	cancels := m.cancels
	m.cancels = nil
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// update applies fn when gen is still the current identity. Snapshots from
// a previous identity that race with a switch are discarded.
func (m *Manager) update(gen uint64, fn func(*State)) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	fn(&m.state)
	m.state.Loaded = m.txReady && m.bReady
	m.mu.Unlock()
	m.emit()
}

func (m *Manager) emit() {
	m.emitting.Lock()
	defer m.emitting.Unlock()

	state := m.Snapshot()
	// Replace any unread state so readers always see the newest.
	select {
	case <-m.changes:
	default:
	}
	select {
	case m.changes <- state:
	default:
	}
}
