package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/rupeeflow/internal/auth"
	"github.com/Veraticus/rupeeflow/internal/config"
	"github.com/Veraticus/rupeeflow/internal/live"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/Veraticus/rupeeflow/internal/ofx"
	"github.com/Veraticus/rupeeflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.May, 20, 10, 0, 0, 0, time.UTC)

type linkMailer struct {
	links []string
	mu    sync.Mutex
}

func (m *linkMailer) SendVerification(_ context.Context, _, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, link)
	return nil
}

func (m *linkMailer) SendPasswordReset(_ context.Context, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, link)
	return nil
}

func (m *linkMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.links)
	u, err := url.Parse(m.links[len(m.links)-1])
	require.NoError(t, err)
	return u.Query().Get("token")
}

type mockAdvisor struct {
	mock.Mock
}

func (m *mockAdvisor) Advice(ctx context.Context, txns []model.Transaction, budgets []model.Budget) string {
	return m.Called(ctx, txns, budgets).String(0)
}

func (m *mockAdvisor) Chat(ctx context.Context, query string, txns []model.Transaction, history []model.ChatTurn) string {
	return m.Called(ctx, query, txns, history).String(0)
}

type testApp struct {
	server  *Server
	handler http.Handler
	store   *live.Store
	mailer  *linkMailer
	advisor *mockAdvisor
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db := testutil.SetupTestDB(t)
	mailer := &linkMailer{}
	identity := auth.NewService(db.Storage, mailer, auth.Options{
		BaseURL:    "http://localhost:8080",
		JWTSecret:  "0123456789abcdef",
		SessionTTL: time.Hour,
	})
	store := live.NewStore(db.Storage, nil, nil)
	advisor := &mockAdvisor{}
	srv := New(config.ServerConfig{Addr: ":0", AllowedOrigins: []string{"http://app.example.com"}},
		identity, store, advisor, Options{
			Importer: ofx.NewParser(nil),
			Now:      func() time.Time { return fixedNow },
			Location: time.UTC,
		})
	return &testApp{server: srv, handler: srv.Handler(), store: store, mailer: mailer, advisor: advisor}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// signUp registers, verifies and signs in a user, returning the bearer token.
func (a *testApp) signUp(t *testing.T, email string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "secret123", "displayName": "Asha",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/auth/verify", "", map[string]string{"token": a.mailer.lastToken(t)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sess sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	require.NotEmpty(t, sess.Token)
	return sess.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "asha@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, decode[map[string]any](t, rec)["needsVerification"].(bool))

	rec = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "asha@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, decode[errorResponse](t, rec).NeedsVerification)

	rec = app.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "asha@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/auth/verify", "", map[string]string{"token": app.mailer.lastToken(t)})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "asha@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "asha@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[sessionResponse](t, rec).Token

	rec = app.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[model.User](t, rec)
	assert.Equal(t, "asha@example.com", me.Email)
	assert.True(t, me.EmailVerified)
	assert.NotContains(t, rec.Body.String(), "secret123")

	rec = app.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthValidationErrors(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name string
		path string
		body map[string]string
		want int
	}{
		{"bad email", "/api/auth/register", map[string]string{"email": "nope", "password": "secret123"}, http.StatusBadRequest},
		{"weak password", "/api/auth/register", map[string]string{"email": "a@example.com", "password": "123"}, http.StatusBadRequest},
		{"unknown account", "/api/auth/login", map[string]string{"email": "ghost@example.com", "password": "secret123"}, http.StatusUnauthorized},
		{"bogus verify token", "/api/auth/verify", map[string]string{"token": "bogus"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}
}

func TestPasswordResetFlow(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "asha@example.com")

	rec := app.do(t, http.MethodPost, "/api/auth/password-reset", "", map[string]string{"email": "asha@example.com"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/auth/password-reset/confirm", "", map[string]string{
		"token": app.mailer.lastToken(t), "password": "newsecret456",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "asha@example.com", "password": "newsecret456",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/auth/password-reset", "", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestGoogleRedirectDisabled(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/api/auth/google", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/auth/google/callback?state=x&code=y", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireUser(t *testing.T) {
	app := newTestApp(t)

	for _, header := range []string{"", "Bearer", "Bearer not-a-jwt", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		app.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestTransactionsCRUD(t *testing.T) {
	app := newTestApp(t)
	token := app.signUp(t, "asha@example.com")

	rec := app.do(t, http.MethodPost, "/api/transactions", token, map[string]any{
		"title": "Salary", "amount": "85000", "category": "salary", "type": "income", "date": "2024-05-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	salary := decode[model.Transaction](t, rec)
	assert.NotEmpty(t, salary.ID)
	assert.Equal(t, model.CategorySalary, salary.Category)

	rec = app.do(t, http.MethodPost, "/api/transactions", token, map[string]any{
		"title": "Dinner", "amount": 1200.5, "category": "Food & Drinks", "type": "expense", "date": "2024-05-18",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dinner := decode[model.Transaction](t, rec)

	rec = app.do(t, http.MethodPost, "/api/transactions", token, map[string]any{
		"title": "Old rent", "amount": 20000, "category": "rent", "type": "expense", "date": "2024-04-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/transactions?month=2024-05", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[listResponse](t, rec)
	require.Len(t, list.Transactions, 2)
	assert.Equal(t, "Dinner", list.Transactions[0].Title)
	assert.Equal(t, "85000", list.Stats.Income.String())
	assert.Equal(t, "1200.5", list.Stats.Expense.String())
	assert.Equal(t, 2, list.Stats.Count)

	rec = app.do(t, http.MethodGet, "/api/transactions?q=dIN&type=expense", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[listResponse](t, rec).Transactions, 1)

	rec = app.do(t, http.MethodPut, "/api/transactions/"+dinner.ID, token, map[string]any{
		"title": "Team dinner", "amount": "1500", "category": "food", "type": "expense", "date": "2024-05-18",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPut, "/api/transactions/missing", token, map[string]any{
		"title": "Ghost", "amount": "1", "category": "food", "type": "expense", "date": "2024-05-18",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodDelete, "/api/transactions/"+salary.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(t, http.MethodDelete, "/api/transactions/"+salary.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/transactions", token, nil)
	list = decode[listResponse](t, rec)
	require.Len(t, list.Transactions, 2)
	assert.Equal(t, "Team dinner", list.Transactions[0].Title)
}

func TestTransactionsAreScopedToUser(t *testing.T) {
	app := newTestApp(t)
	asha := app.signUp(t, "asha@example.com")
	ravi := app.signUp(t, "ravi@example.com")

	rec := app.do(t, http.MethodPost, "/api/transactions", asha, map[string]any{
		"title": "Cab", "amount": "300", "category": "transport", "type": "expense", "date": "2024-05-02",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	cab := decode[model.Transaction](t, rec)

	rec = app.do(t, http.MethodGet, "/api/transactions", ravi, nil)
	assert.Empty(t, decode[listResponse](t, rec).Transactions)

	rec = app.do(t, http.MethodPut, "/api/transactions/"+cab.ID, ravi, map[string]any{
		"title": "Mine now", "amount": "1", "category": "transport", "type": "expense", "date": "2024-05-02",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransactionValidation(t *testing.T) {
	app := newTestApp(t)
	token := app.signUp(t, "asha@example.com")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing title", map[string]any{"amount": "1", "category": "food", "type": "expense"}},
		{"negative amount", map[string]any{"title": "x", "amount": "-5", "category": "food", "type": "expense"}},
		{"unknown type", map[string]any{"title": "x", "amount": "5", "category": "food", "type": "gift"}},
		{"unknown category", map[string]any{"title": "x", "amount": "5", "category": "pets", "type": "expense"}},
		{"income in expense category", map[string]any{"title": "x", "amount": "5", "category": "food", "type": "income"}},
		{"bad date", map[string]any{"title": "x", "amount": "5", "category": "food", "type": "expense", "date": "May 5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodPost, "/api/transactions", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/transactions?month=May", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBudgets(t *testing.T) {
	app := newTestApp(t)
	token := app.signUp(t, "asha@example.com")

	rec := app.do(t, http.MethodPost, "/api/transactions", token, map[string]any{
		"title": "Groceries", "amount": "4600", "category": "food", "type": "expense", "date": "2024-05-03",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = app.do(t, http.MethodPut, "/api/budgets/food", token, map[string]any{"limit": "5000"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPut, "/api/budgets/pets", token, map[string]any{"limit": "5000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = app.do(t, http.MethodPut, "/api/budgets/food", token, map[string]any{"limit": "-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = app.do(t, http.MethodPut, "/api/budgets/food", token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/budgets?month=2024-05", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[budgetsResponse](t, rec)
	assert.Equal(t, "2024-05", resp.Month)
	require.Len(t, resp.Budgets, 2)
	assert.Equal(t, model.TotalBudget, resp.Budgets[0].Category)

	require.Len(t, resp.Utilization, 2)
	food := resp.Utilization[1]
	assert.Equal(t, model.BudgetCategory(model.CategoryFood), food.Category)
	assert.Equal(t, "92", food.Percent.String())
	assert.True(t, food.NearLimit)
	assert.False(t, food.OverLimit)

	rec = app.do(t, http.MethodDelete, "/api/budgets/Food%20%26%20Drinks", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/budgets", token, nil)
	assert.Len(t, decode[budgetsResponse](t, rec).Budgets, 1)
}

func TestReports(t *testing.T) {
	app := newTestApp(t)
	token := app.signUp(t, "asha@example.com")

	for _, body := range []map[string]any{
		{"title": "Salary", "amount": "50000", "category": "salary", "type": "income", "date": "2024-05-01"},
		{"title": "Rent", "amount": "15000", "category": "rent", "type": "expense", "date": "2024-05-02"},
		{"title": "Movie", "amount": "5000", "category": "entertainment", "type": "expense", "date": "2024-05-16"},
		{"title": "Cab", "amount": "700", "category": "transport", "type": "expense", "date": "2024-03-09"},
	} {
		rec := app.do(t, http.MethodPost, "/api/transactions", token, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := app.do(t, http.MethodGet, "/api/reports/summary?month=2024-05", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[struct {
		Stats struct {
			Balance string `json:"balance"`
			Count   int    `json:"count"`
		} `json:"stats"`
	}](t, rec)
	assert.Equal(t, "30000", summary.Stats.Balance)
	assert.Equal(t, 3, summary.Stats.Count)

	rec = app.do(t, http.MethodGet, "/api/reports/categories?type=expense", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[struct {
		Categories []struct {
			Category string `json:"category"`
			Percent  int64  `json:"percent"`
		} `json:"categories"`
	}](t, rec)
	require.Len(t, cats.Categories, 2)
	assert.Equal(t, "Rent & Bills", cats.Categories[0].Category)
	assert.Equal(t, int64(75), cats.Categories[0].Percent)

	rec = app.do(t, http.MethodGet, "/api/reports/weekly", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	weekly := decode[struct {
		Weeks []struct {
			Amount string `json:"amount"`
			Label  string `json:"label"`
		} `json:"weeks"`
	}](t, rec)
	require.Len(t, weekly.Weeks, 5)
	assert.Equal(t, "15000", weekly.Weeks[0].Amount)
	assert.Equal(t, "5000", weekly.Weeks[2].Amount)

	rec = app.do(t, http.MethodGet, "/api/reports/categories?type=expense&category=rent", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cats = decode[struct {
		Categories []struct {
			Category string `json:"category"`
			Percent  int64  `json:"percent"`
		} `json:"categories"`
	}](t, rec)
	require.Len(t, cats.Categories, 1)
	assert.Equal(t, "Rent & Bills", cats.Categories[0].Category)
	assert.Equal(t, int64(100), cats.Categories[0].Percent)

	rec = app.do(t, http.MethodGet, "/api/reports/weekly?category=entertainment", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	weekly = decode[struct {
		Weeks []struct {
			Amount string `json:"amount"`
			Label  string `json:"label"`
		} `json:"weeks"`
	}](t, rec)
	require.Len(t, weekly.Weeks, 5)
	assert.Equal(t, "0", weekly.Weeks[0].Amount)
	assert.Equal(t, "5000", weekly.Weeks[2].Amount)

	rec = app.do(t, http.MethodGet, "/api/reports/weekly?category=gold", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/reports/annual?year=2024", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	annual := decode[struct {
		Months []struct {
			Expense string `json:"expense"`
			Label   string `json:"label"`
		} `json:"months"`
	}](t, rec)
	require.Len(t, annual.Months, 12)
	assert.Equal(t, "Mar", annual.Months[2].Label)
	assert.Equal(t, "700", annual.Months[2].Expense)

	rec = app.do(t, http.MethodGet, "/api/reports/annual?trailing=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	annual = decode[struct {
		Months []struct {
			Expense string `json:"expense"`
			Label   string `json:"label"`
		} `json:"months"`
	}](t, rec)
	assert.Equal(t, "May", annual.Months[11].Label)

	rec = app.do(t, http.MethodGet, "/api/reports/annual?year=twenty", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdviceAndChat(t *testing.T) {
	app := newTestApp(t)
	token := app.signUp(t, "asha@example.com")

	rec := app.do(t, http.MethodPost, "/api/transactions", token, map[string]any{
		"title": "Dinner", "amount": "900", "category": "food", "type": "expense", "date": "2024-05-05",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = app.do(t, http.MethodPost, "/api/transactions", token, map[string]any{
		"title": "Dinner", "amount": "900", "category": "food", "type": "expense", "date": "2024-04-05",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	app.advisor.On("Advice", mock.Anything, mock.MatchedBy(func(txns []model.Transaction) bool {
		return len(txns) == 1 && txns[0].Date.Month() == time.May
	}), mock.Anything).Return("Cook at home more.").Once()

	rec = app.do(t, http.MethodPost, "/api/advice", token, map[string]string{"month": "2024-05"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cook at home more.", decode[map[string]string](t, rec)["advice"])

	history := []model.ChatTurn{{Role: model.RoleUser, Text: "hi"}, {Role: model.RoleModel, Text: "hello"}}
	app.advisor.On("Chat", mock.Anything, "Where does my money go?", mock.MatchedBy(func(txns []model.Transaction) bool {
		return len(txns) == 2
	}), history).Return("Mostly food.").Once()

	rec = app.do(t, http.MethodPost, "/api/chat", token, chatRequest{Query: "Where does my money go?", History: history})
	require.Equal(t, http.StatusOK, rec.Code)
	turn := decode[model.ChatTurn](t, rec)
	assert.Equal(t, model.RoleModel, turn.Role)
	assert.Equal(t, "Mostly food.", turn.Text)

	rec = app.do(t, http.MethodPost, "/api/chat", token, chatRequest{Query: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	app.advisor.AssertExpectations(t)
}

func TestAdvisorNotConfigured(t *testing.T) {
	app := newTestApp(t)
	app.server.advisor = nil
	app.handler = app.server.Handler()
	token := app.signUp(t, "asha@example.com")

	rec := app.do(t, http.MethodPost, "/api/advice", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestExportCSV(t *testing.T) {
	app := newTestApp(t)
	token := app.signUp(t, "asha@example.com")

	rec := app.do(t, http.MethodPost, "/api/transactions", token, map[string]any{
		"title": "Dinner", "amount": "900", "category": "food", "type": "expense", "date": "2024-05-05",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/export.csv?month=2024-05", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "RupeeFlow_Export_2024-05-20.csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Date,Description"))
	assert.Contains(t, lines[1], "-900.00")

	rec = app.do(t, http.MethodGet, "/api/export.csv?month=2024-04", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, strings.Split(strings.TrimSpace(rec.Body.String()), "\n"), 1)
}

const importOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240520120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>INR
<BANKACCTFROM>
<BANKID>HDFC0001
<ACCTID>50100012345
<ACCTTYPE>SAVINGS
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240501120000[0:GMT]
<DTEND>20240520120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240510120000[0:GMT]
<TRNAMT>-450.00
<FITID>T1
<NAME>UPI/SWIGGY
</STMTTRN>
<STMTTRN>
<TRNTYPE>DIRECTDEP
<DTPOSTED>20240501120000[0:GMT]
<TRNAMT>85000.00
<FITID>T2
<NAME>ACME TECH PVT LTD
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>84550.00
<DTASOF>20240520120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>
`

func TestImportOFX(t *testing.T) {
	app := newTestApp(t)
	token := app.signUp(t, "asha@example.com")

	upload := func() *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", "may.ofx")
		require.NoError(t, err)
		_, err = part.Write([]byte(importOFX))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/transactions/import", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		app.handler.ServeHTTP(rec, req)
		return rec
	}

	rec := upload()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[importResponse](t, rec)
	assert.Equal(t, importResponse{Files: 1, Parsed: 2, Imported: 2}, first)

	rec = upload()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[importResponse](t, rec).Imported)

	rec = app.do(t, http.MethodGet, "/api/transactions", token, nil)
	assert.Len(t, decode[listResponse](t, rec).Transactions, 2)
}

func TestCORS(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
	req.Header.Set("Origin", "http://app.example.com")
	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	app.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
