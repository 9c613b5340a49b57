package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/rupeeflow/internal/live"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawFrame struct {
	Topic live.Topic      `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) rawFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f rawFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestLiveStreamsSnapshots(t *testing.T) {
	app := newTestApp(t)
	token := app.signUp(t, "asha@example.com")

	srv := httptest.NewServer(app.handler)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/live?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })

	initial := map[live.Topic]json.RawMessage{}
	for len(initial) < 2 {
		f := readFrame(t, conn)
		initial[f.Topic] = f.Data
	}
	assert.JSONEq(t, "[]", string(initial[live.TopicTransactions]))
	var budgets []model.Budget
	require.NoError(t, json.Unmarshal(initial[live.TopicBudgets], &budgets))
	require.Len(t, budgets, 1)
	assert.Equal(t, model.TotalBudget, budgets[0].Category)

	rec := app.do(t, http.MethodPost, "/api/transactions", token, map[string]any{
		"title": "Chai", "amount": "40", "category": "food", "type": "expense", "date": "2024-05-20",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	f := readFrame(t, conn)
	require.Equal(t, live.TopicTransactions, f.Topic)
	var txns []model.Transaction
	require.NoError(t, json.Unmarshal(f.Data, &txns))
	require.Len(t, txns, 1)
	assert.Equal(t, "Chai", txns[0].Title)

	require.NoError(t, conn.Close())
	userID := txns[0].UserID
	assert.Eventually(t, func() bool {
		return app.store.Subscribers(userID, live.TopicTransactions) == 0 &&
			app.store.Subscribers(userID, live.TopicBudgets) == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestLiveRejectsMissingToken(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.handler)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/live"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLiveRejectsForeignOrigin(t *testing.T) {
	app := newTestApp(t)
	token := app.signUp(t, "asha@example.com")
	srv := httptest.NewServer(app.handler)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/live?token=" + token
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"http://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
