package llm

import (
	"fmt"
	"time"

	"github.com/satprep/satprep/internal/config"
)

// Provider names accepted by NewProvider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
	// ProviderAuto picks the first provider with an API key.
	ProviderAuto = "auto"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	Provider string

	Anthropic  ProviderConfig
	OpenAI     ProviderConfig
	Gemini     ProviderConfig
	OpenRouter ProviderConfig
	Retry      RetryConfig

	// Timeout is the maximum duration for a single LLM request
	// (including retries). Default: 30s.
	Timeout time.Duration
}

// ProviderConfig holds one provider's credentials and model.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string // Optional. Overrides the provider's API endpoint.
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderMock,
		Anthropic:  ProviderConfig{Model: "claude-haiku"},
		OpenAI:     ProviderConfig{Model: "gpt-4o-mini"},
		Gemini:     ProviderConfig{Model: "gemini-flash"},
		OpenRouter: ProviderConfig{Model: "google/gemini-2.0-flash-exp", BaseURL: defaultOpenRouterBaseURL},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// FromConfig converts the application's llm section, keeping defaults for
// zero values. The "auto" provider resolves to the first provider with a
// key, in order gemini, openai, anthropic, openrouter.
func FromConfig(c config.LLM) Config {
	cfg := DefaultConfig()
	if c.Provider != "" {
		cfg.Provider = c.Provider
	}
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}
	merge(&cfg.Anthropic, c.Anthropic)
	merge(&cfg.OpenAI, c.OpenAI)
	merge(&cfg.Gemini, c.Gemini)
	merge(&cfg.OpenRouter, c.OpenRouter)

	if c.Retry.MaxAttempts > 0 {
		cfg.Retry.MaxAttempts = c.Retry.MaxAttempts
	}
	if c.Retry.InitialWait > 0 {
		cfg.Retry.InitialWait = c.Retry.InitialWait
	}
	if c.Retry.MaxWait > 0 {
		cfg.Retry.MaxWait = c.Retry.MaxWait
	}
	if c.Retry.Multiplier > 0 {
		cfg.Retry.Multiplier = c.Retry.Multiplier
	}

	if cfg.Provider == ProviderAuto {
		cfg.Provider = cfg.discover()
	}
	return cfg
}

func merge(dst *ProviderConfig, src config.Provider) {
	if src.APIKey != "" {
		dst.APIKey = src.APIKey
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
}

// discover returns the first provider with a key, or mock when none has one.
func (c Config) discover() string {
	switch {
	case c.Gemini.APIKey != "":
		return ProviderGemini
	case c.OpenAI.APIKey != "":
		return ProviderOpenAI
	case c.Anthropic.APIKey != "":
		return ProviderAnthropic
	case c.OpenRouter.APIKey != "":
		return ProviderOpenRouter
	}
	return ProviderMock
}

// Selected returns the configuration of the chosen provider.
func (c Config) Selected() ProviderConfig {
	switch c.Provider {
	case ProviderAnthropic:
		return c.Anthropic
	case ProviderOpenAI:
		return c.OpenAI
	case ProviderGemini:
		return c.Gemini
	case ProviderOpenRouter:
		return c.OpenRouter
	}
	return ProviderConfig{Model: ProviderMock}
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderOpenRouter:
		if c.Selected().APIKey == "" {
			return fmt.Errorf("llm.%s.api_key is required for the %s provider", c.Provider, c.Provider)
		}
	case ProviderMock:
		// No API key needed.
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
