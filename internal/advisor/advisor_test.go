package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/rupeeflow/internal/llm"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func txn(typ model.TransactionType, amount int64, category model.Category, title string) model.Transaction {
	return model.Transaction{
		Type:     typ,
		Amount:   decimal.NewFromInt(amount),
		Category: category,
		Title:    title,
		Date:     time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
	}
}

func sampleLedger() []model.Transaction {
	return []model.Transaction{
		txn(model.TypeIncome, 85000, model.CategorySalary, "Monthly Salary"),
		txn(model.TypeExpense, 18000, model.CategoryRent, "Apartment Rent"),
		txn(model.TypeExpense, 850, model.CategoryFood, "Zomato Dinner"),
	}
}

func TestSummary(t *testing.T) {
	got := Summary(sampleLedger())
	assert.Equal(t,
		"income: ₹85000 (Salary - Monthly Salary), expense: ₹18000 (Rent & Bills - Apartment Rent), expense: ₹850 (Food & Drinks - Zomato Dinner)",
		got)

	var many []model.Transaction
	for i := 0; i < 60; i++ {
		many = append(many, txn(model.TypeExpense, int64(i+1), model.CategoryOthers, fmt.Sprintf("t%d", i)))
	}
	got = Summary(many)
	assert.Equal(t, 50, strings.Count(got, "expense: "))
	assert.Contains(t, got, "(Others - t49)")
	assert.NotContains(t, got, "(Others - t50)")

	assert.Empty(t, Summary(nil))
}

func TestAdvisor_Advice(t *testing.T) {
	budgets := []model.Budget{{Category: model.TotalBudget, Limit: decimal.NewFromInt(50000)}}

	t.Run("empty ledger skips the call", func(t *testing.T) {
		client := &mockClient{}
		a := New(client, time.Second, nil)
		assert.Equal(t, MsgNoTransactions, a.Advice(context.Background(), nil, budgets))
		client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	})

	t.Run("success", func(t *testing.T) {
		client := &mockClient{}
		client.On("Complete", mock.Anything, mock.MatchedBy(func(req llm.CompletionRequest) bool {
			return req.Temperature == 0.7 &&
				strings.Contains(req.Prompt, "expense: ₹850 (Food & Drinks - Zomato Dinner)") &&
				strings.Contains(req.Prompt, "Budgets: Total limit ₹50000") &&
				strings.Contains(req.Prompt, "3 high-impact")
		})).Return("- **Rent** is 21% of income", nil).Once()

		a := New(client, time.Second, nil)
		assert.Equal(t, "- **Rent** is 21% of income", a.Advice(context.Background(), sampleLedger(), budgets))
		client.AssertExpectations(t)
	})

	t.Run("failure", func(t *testing.T) {
		client := &mockClient{}
		client.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("boom")).Once()
		a := New(client, time.Second, nil)
		assert.Equal(t, MsgAdviceFailed, a.Advice(context.Background(), sampleLedger(), nil))
	})

	t.Run("blank reply", func(t *testing.T) {
		client := &mockClient{}
		client.On("Complete", mock.Anything, mock.Anything).Return("  \n", nil).Once()
		a := New(client, time.Second, nil)
		assert.Equal(t, MsgAdviceEmpty, a.Advice(context.Background(), sampleLedger(), nil))
	})
}

func TestAdvisor_Chat(t *testing.T) {
	t.Run("blank query skips the call", func(t *testing.T) {
		client := &mockClient{}
		a := New(client, time.Second, nil)
		assert.Equal(t, MsgChatEmpty, a.Chat(context.Background(), "   ", sampleLedger(), nil))
		client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	})

	t.Run("keeps the last five turns", func(t *testing.T) {
		var history []model.ChatTurn
		for i := 0; i < 7; i++ {
			history = append(history, model.ChatTurn{Role: model.RoleUser, Text: fmt.Sprintf("turn-%d", i)})
		}

		var prompt string
		client := &mockClient{}
		client.On("Complete", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				prompt = args.Get(1).(llm.CompletionRequest).Prompt
			}).
			Return("Try a **SIP**.", nil).Once()

		a := New(client, time.Second, nil)
		got := a.Chat(context.Background(), "How do I save?", sampleLedger(), history)
		require.Equal(t, "Try a **SIP**.", got)

		assert.NotContains(t, prompt, "turn-1")
		assert.Contains(t, prompt, `{"role":"user","text":"turn-2"}`)
		assert.Contains(t, prompt, "turn-6")
		assert.Contains(t, prompt, "User's Message: How do I save?")
		assert.Contains(t, prompt, "RupeeFlow AI")
	})

	t.Run("empty history encodes as empty list", func(t *testing.T) {
		var prompt string
		client := &mockClient{}
		client.On("Complete", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				prompt = args.Get(1).(llm.CompletionRequest).Prompt
			}).
			Return("ok", nil).Once()

		New(client, time.Second, nil).Chat(context.Background(), "hi", nil, nil)
		assert.Contains(t, prompt, "Recent History: []")
	})

	t.Run("failure and blank reply", func(t *testing.T) {
		client := &mockClient{}
		client.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("down")).Once()
		client.On("Complete", mock.Anything, mock.Anything).Return("", nil).Once()

		a := New(client, time.Second, nil)
		assert.Equal(t, MsgChatFailed, a.Chat(context.Background(), "hi", nil, nil))
		assert.Equal(t, MsgChatEmpty, a.Chat(context.Background(), "hi", nil, nil))
	})
}

// blockingClient waits for its context, like an endpoint that never answers.
type blockingClient struct{}

func (blockingClient) Complete(ctx context.Context, _ llm.CompletionRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestAdvisor_Timeout(t *testing.T) {
	a := New(blockingClient{}, 20*time.Millisecond, nil)

	start := time.Now()
	got := a.Advice(context.Background(), sampleLedger(), nil)
	assert.Equal(t, MsgAdviceFailed, got)
	assert.Less(t, time.Since(start), 5*time.Second)
}
