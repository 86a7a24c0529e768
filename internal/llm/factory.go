package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/satprep/satprep/internal/store"
)

// NewProvider builds the configured provider. Real vendors are wrapped so
// each call is logged to events and transient failures are retried:
//
//	caller -> retry -> logging -> vendor
//
// Retries therefore show up as separate analysis events. The mock provider
// is returned bare with nothing queued.
func NewProvider(ctx context.Context, cfg Config, events store.EventRepo, log *zap.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		vendor Provider
		err    error
	)
	switch cfg.Provider {
	case ProviderMock:
		return NewMockProvider(), nil
	case ProviderAnthropic:
		vendor, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		vendor, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderOpenRouter:
		vendor, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderGemini:
		vendor, err = NewGeminiProvider(ctx, cfg.Gemini)
	}
	if err != nil {
		return nil, fmt.Errorf("%s provider: %w", cfg.Provider, err)
	}
	return WithRetry(WithLogging(vendor, cfg.Provider, events, log), cfg.Retry, log), nil
}
