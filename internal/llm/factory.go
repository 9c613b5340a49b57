package llm

import (
	"context"
	"fmt"
	"strings"
)

// NewClient creates the configured provider client, wrapped in a rate
// limiter. Close the returned client to stop the limiter.
func NewClient(cfg Config) (*LimitedClient, error) {
	var (
		client Client
		err    error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGemini:
		client, err = newGeminiClient(cfg)
	case ProviderOpenAI:
		client, err = newOpenAIClient(cfg)
	case ProviderAnthropic:
		client, err = newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return &LimitedClient{client: client, limiter: newRateLimiter(cfg.RateLimit)}, nil
}

// LimitedClient waits for a rate-limit token before each completion.
type LimitedClient struct {
	client  Client
	limiter *rateLimiter
}

// Complete implements Client.
func (c *LimitedClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return "", err
	}
	return c.client.Complete(ctx, req)
}

// Close stops the limiter's refill goroutine.
func (c *LimitedClient) Close() {
	c.limiter.Close()
}
