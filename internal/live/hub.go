// Package live fans out full snapshots of a user's data to in-process
// subscribers. A slow subscriber only ever sees the newest snapshot.
package live

import (
	"log/slog"
	"sync"

	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/service"
)

// Topic names a kind of snapshot.
type Topic string

const (
	// TopicTransactions carries []model.Transaction snapshots.
	TopicTransactions Topic = "transactions"
	// TopicBudgets carries []model.Budget snapshots.
	TopicBudgets Topic = "budgets"
)

// Hub keeps per-user subscriber sets for one snapshot type.
type Hub[T any] struct {
	logger *slog.Logger
	subs   map[string]map[uint64]*subscriber[T]
	seq    map[string]uint64
	nextID uint64
	mu     sync.Mutex
	closed bool
}

// NewHub creates an empty hub.
func NewHub[T any](logger *slog.Logger) *Hub[T] {
	return &Hub[T]{
		logger: common.LoggerOrDefault(logger),
		subs:   make(map[string]map[uint64]*subscriber[T]),
		seq:    make(map[string]uint64),
	}
}

// Subscribe registers fn for userID and delivers the snapshot returned by
// load as the first value. Snapshots published after registration take
// precedence over the loaded one. fn runs on a goroutine owned by the
// subscription and must not call the returned cancel.
func (h *Hub[T]) Subscribe(userID string, fn func(T), load func() (T, error)) (service.CancelFunc, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return func() {}, nil
	}
	h.nextID++
	id := h.nextID
	sub := newSubscriber(fn)
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[uint64]*subscriber[T])
	}
	h.subs[userID][id] = sub
	seq := h.seq[userID]
	h.mu.Unlock()

	go sub.run()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[userID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(h.subs, userID)
			}
		}
		h.mu.Unlock()
		sub.stop()
	}

	if load != nil {
		initial, err := load()
		if err != nil {
			cancel()
			return nil, err
		}
		sub.offer(initial, seq)
	}

	h.logger.Debug("live subscriber added", "user_id", userID, "subscribers", h.Subscribers(userID))
	return cancel, nil
}

// Publish hands v to every subscriber of userID.
func (h *Hub[T]) Publish(userID string, v T) {
	h.PublishAt(userID, v, h.Reserve(userID))
}

// Reserve takes the next sequence number for userID. A snapshot loaded
// after Reserve and published with PublishAt under that number is never
// overtaken by one loaded earlier.
func (h *Hub[T]) Reserve(userID string) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq[userID]++
	return h.seq[userID]
}

// PublishAt hands v to every subscriber of userID unless a snapshot with a
// higher sequence number already reached them.
func (h *Hub[T]) PublishAt(userID string, v T, seq uint64) {
	h.mu.Lock()
	targets := make([]*subscriber[T], 0, len(h.subs[userID]))
	for _, sub := range h.subs[userID] {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	for _, sub := range targets {
		sub.offer(v, seq)
	}
}

// Subscribers counts the live subscriptions of userID.
func (h *Hub[T]) Subscribers(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

// Close cancels every subscription. Later subscriptions are inert.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*subscriber[T]
	for _, set := range h.subs {
		for _, sub := range set {
			all = append(all, sub)
		}
	}
	h.subs = make(map[string]map[uint64]*subscriber[T])
	h.mu.Unlock()

	for _, sub := range all {
		sub.stop()
	}
}

// subscriber owns a one-slot mailbox. offer replaces whatever is pending,
// so delivery never falls behind publication.
type subscriber[T any] struct {
	fn         func(T)
	wake       chan struct{}
	quit       chan struct{}
	done       chan struct{}
	pending    T
	pendingSeq uint64
	lastSeq    uint64
	mu         sync.Mutex
	once       sync.Once
	hasPending bool
	delivered  bool
}

func newSubscriber[T any](fn func(T)) *subscriber[T] {
	return &subscriber[T]{
		fn:   fn,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (s *subscriber[T]) offer(v T, seq uint64) {
	s.mu.Lock()
	if (s.delivered && seq < s.lastSeq) || (s.hasPending && seq < s.pendingSeq) {
		s.mu.Unlock()
		return
	}
	s.pending = v
	s.pendingSeq = seq
	s.hasPending = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber[T]) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		if !s.hasPending {
			s.mu.Unlock()
			continue
		}
		v := s.pending
		s.lastSeq = s.pendingSeq
		s.delivered = true
		s.hasPending = false
		var zero T
		s.pending = zero
		s.mu.Unlock()

		select {
		case <-s.quit:
			return
		default:
		}
		s.fn(v)
	}
}

// stop is idempotent and waits for an in-flight delivery to finish.
func (s *subscriber[T]) stop() {
	s.once.Do(func() {
		close(s.quit)
	})
	<-s.done
}
