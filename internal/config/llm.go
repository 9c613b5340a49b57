package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/llm"
	"github.com/spf13/viper"
)

// apiKeyEnv names the conventional environment variable for each provider.
var apiKeyEnv = map[string]string{
	llm.ProviderGemini:    "GEMINI_API_KEY",
	llm.ProviderOpenAI:    "OPENAI_API_KEY",
	llm.ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// LoadLLMConfig reads the llm section. The key is taken from
// llm.<provider>_api_key, then from the provider's usual env var.
// A missing key yields ErrMissingConfig; callers treat the advisor as off.
func LoadLLMConfig(v *viper.Viper) (llm.Config, error) {
	provider := strings.ToLower(v.GetString("llm.provider"))
	cfg := llm.Config{
		Provider:  provider,
		Model:     v.GetString("llm.model"),
		MaxTokens: v.GetInt("llm.max_tokens"),
		RateLimit: v.GetInt("llm.rate_limit"),
		Timeout:   v.GetDuration("advisor.timeout"),
		APIKey:    v.GetString("llm." + provider + "_api_key"),
	}

	env, ok := apiKeyEnv[provider]
	if !ok {
		return cfg, fmt.Errorf("%w: unknown llm.provider %q", common.ErrInvalidConfig, provider)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(env)
	}
	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("%w: llm.%s_api_key or %s", common.ErrMissingConfig, provider, env)
	}
	return cfg, nil
}
