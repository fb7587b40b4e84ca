package llm

import (
	"context"
	"fmt"
	"strings"
)

// ProviderConfig selects and configures a backend.
type ProviderConfig struct {
	Name    string // gemini, openai, ollama or none
	APIKey  string
	BaseURL string
}

// NewProvider builds the configured backend. It returns (nil, nil) for
// "none" or an empty name: the oracle then runs on deterministic fallbacks.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "", "none":
		return nil, nil
	case "gemini":
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.BaseURL)
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
		}
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL), nil
	case "ollama":
		return NewOllamaProvider(cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Name)
	}
}

// ProviderUsesAPIKey reports whether the named provider requires an API key.
func ProviderUsesAPIKey(name string) bool {
	switch strings.ToLower(name) {
	case "gemini", "openai":
		return true
	default:
		return false
	}
}
