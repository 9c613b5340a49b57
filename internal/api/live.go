package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Veraticus/rupeeflow/internal/live"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/gorilla/websocket"
)

const (
	pingPeriod = 30 * time.Second
	pongWait   = 2 * pingPeriod
	writeWait  = 10 * time.Second
)

// liveFrame is one snapshot pushed to a websocket client.
type liveFrame struct {
	Topic live.Topic `json:"topic"`
	Data  any        `json:"data"`
}

// liveConn serializes writes from the two subscription goroutines and the
// pinger onto one connection.
type liveConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *liveConn) send(frame liveFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(frame)
}

func (c *liveConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// handleLive streams transaction and budget snapshots until the client
// goes away or the server shuts down.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	lc := &liveConn{conn: conn}

	// Subscriptions must outlive the handshake request context.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	go func() {
		select {
		case <-r.Context().Done():
		case <-ctx.Done():
		}
		_ = conn.Close()
	}()

	fail := func(err error) {
		if err != nil {
			s.logger.Debug("live write failed", "user_id", user.ID, "error", err)
			cancel()
		}
	}

	cancelTxns, err := s.store.SubscribeTransactions(ctx, user.ID, func(txns []model.Transaction) {
		fail(lc.send(liveFrame{Topic: live.TopicTransactions, Data: nonNil(txns)}))
	})
	if err != nil {
		s.logger.Warn("failed to subscribe to transactions", "user_id", user.ID, "error", err)
		return
	}
	defer cancelTxns()

	cancelBudgets, err := s.store.SubscribeBudgets(ctx, user.ID, func(budgets []model.Budget) {
		fail(lc.send(liveFrame{Topic: live.TopicBudgets, Data: nonNil(budgets)}))
	})
	if err != nil {
		s.logger.Warn("failed to subscribe to budgets", "user_id", user.ID, "error", err)
		return
	}
	defer cancelBudgets()

	s.logger.Info("live client connected", "user_id", user.ID)
	defer s.logger.Info("live client disconnected", "user_id", user.ID)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lc.ping(); err != nil {
					fail(err)
					return
				}
			}
		}
	}()

	// The read loop only services control frames; client messages are ignored.
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
