package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// NewProvider creates a Provider from configuration.
// It returns the provider wrapped with retry and logging middleware.
func NewProvider(ctx context.Context, cfg Config, logger *zap.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// Wrap with middleware: caller → retry → logging → base
	logged := WithLogging(base, logger)
	retried := WithRetry(logged, cfg.Retry)

	return retried, nil
}

// NewProviderFromEnv builds a provider from TUTORD_* env vars, falling
// back to probing the standard provider API key vars.
func NewProviderFromEnv(ctx context.Context, logger *zap.Logger) (Provider, error) {
	cfg := ConfigFromEnv()
	if err := cfg.Validate(); err == nil && hasKey(cfg) {
		return NewProvider(ctx, cfg, logger)
	}
	discovered, ok := DiscoverConfig()
	if !ok {
		return nil, fmt.Errorf("no LLM API key configured")
	}
	return NewProvider(ctx, discovered, logger)
}

func hasKey(cfg Config) bool {
	switch cfg.Provider {
	case "anthropic":
		return cfg.Anthropic.APIKey != ""
	case "openai":
		return cfg.OpenAI.APIKey != ""
	case "gemini":
		return cfg.Gemini.APIKey != ""
	case "mock":
		return true
	}
	return false
}
