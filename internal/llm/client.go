package llm

import (
	"context"
	"time"
)

// Client produces one completion per call.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest is a single-turn prompt.
type CompletionRequest struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	// BaseURL overrides the provider endpoint; used by tests and proxies.
	BaseURL   string
	Timeout   time.Duration
	RateLimit int
	MaxTokens int
}

// Provider names.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)
