package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureServer replies with reply to every request and records the last
// request body and headers.
func captureServer(t *testing.T, path string, status int, reply any) (*httptest.Server, *map[string]any, *http.Header) {
	t.Helper()
	body := map[string]any{}
	headers := http.Header{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, path, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		for k, v := range r.Header {
			headers[k] = v
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &body, &headers
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"gemini default", Config{APIKey: "k"}, false},
		{"gemini", Config{Provider: "Gemini", APIKey: "k"}, false},
		{"openai", Config{Provider: "openai", APIKey: "k"}, false},
		{"anthropic", Config{Provider: "anthropic", APIKey: "k"}, false},
		{"missing key", Config{Provider: "openai"}, true},
		{"unknown provider", Config{Provider: "mystery", APIKey: "k"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			client.Close()
		})
	}
}

func TestGeminiClient_Complete(t *testing.T) {
	reply := map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{
				map[string]any{"text": "Spend "},
				map[string]any{"text": "less."},
			}}},
		},
	}
	srv, body, headers := captureServer(t, "/models/gemini-2.0-flash:generateContent", http.StatusOK, reply)

	client, err := newGeminiClient(Config{APIKey: "g-key", BaseURL: srv.URL})
	require.NoError(t, err)

	got, err := client.Complete(context.Background(), CompletionRequest{Prompt: "advise me", Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "Spend less.", got)

	assert.Equal(t, "g-key", headers.Get("x-goog-api-key"))
	genCfg := (*body)["generationConfig"].(map[string]any)
	assert.InDelta(t, 0.7, genCfg["temperature"], 0.0001)
	contents := (*body)["contents"].([]any)
	require.Len(t, contents, 1)
}

func TestGeminiClient_EmptyCandidates(t *testing.T) {
	srv, _, _ := captureServer(t, "/models/gemini-2.0-flash:generateContent", http.StatusOK, map[string]any{})
	client, err := newGeminiClient(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	got, err := client.Complete(context.Background(), CompletionRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenAIClient_Complete(t *testing.T) {
	reply := map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": "Save more."}}},
	}
	srv, body, headers := captureServer(t, "/chat/completions", http.StatusOK, reply)

	client, err := newOpenAIClient(Config{APIKey: "o-key", BaseURL: srv.URL, Model: "gpt-test"})
	require.NoError(t, err)

	got, err := client.Complete(context.Background(), CompletionRequest{Prompt: "hi", Temperature: 0.7, MaxTokens: 50})
	require.NoError(t, err)
	assert.Equal(t, "Save more.", got)
	assert.Equal(t, "Bearer o-key", headers.Get("Authorization"))
	assert.Equal(t, "gpt-test", (*body)["model"])
	assert.InDelta(t, 50, (*body)["max_tokens"], 0)
}

func TestAnthropicClient_Complete(t *testing.T) {
	reply := map[string]any{
		"content": []any{map[string]any{"type": "text", "text": "Invest early."}},
	}
	srv, body, headers := captureServer(t, "/messages", http.StatusOK, reply)

	client, err := newAnthropicClient(Config{APIKey: "a-key", BaseURL: srv.URL})
	require.NoError(t, err)

	got, err := client.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Invest early.", got)
	assert.Equal(t, "a-key", headers.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, headers.Get("anthropic-version"))
	assert.InDelta(t, anthropicDefaultMaxTokens, (*body)["max_tokens"], 0)
}

func TestClients_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		path string
		build func(Config) (Client, error)
	}{
		{"gemini", "/models/gemini-2.0-flash:generateContent", newGeminiClient},
		{"openai", "/chat/completions", newOpenAIClient},
		{"anthropic", "/messages", newAnthropicClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := captureServer(t, tt.path, http.StatusTooManyRequests, map[string]any{"error": "slow down"})
			client, err := tt.build(Config{APIKey: "k", BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), CompletionRequest{Prompt: "x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "status 429")
			assert.Contains(t, err.Error(), "slow down")
		})
	}
}

func TestLimitedClient_Complete(t *testing.T) {
	reply := map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": "ok"}}},
	}
	srv, _, _ := captureServer(t, "/chat/completions", http.StatusOK, reply)

	client, err := NewClient(Config{Provider: ProviderOpenAI, APIKey: "k", BaseURL: srv.URL, RateLimit: 1})
	require.NoError(t, err)
	defer client.Close()

	got, err := client.Complete(context.Background(), CompletionRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)

	// The single token is spent; a canceled context fails fast.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Complete(ctx, CompletionRequest{Prompt: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}
