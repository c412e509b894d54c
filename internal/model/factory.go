package model

import (
	"errors"
	"fmt"

	"github.com/opsdesk/fncall/internal/dispatch"
)

// ErrMissingAPIKey is returned by New when no credentials are configured.
var ErrMissingAPIKey = errors.New("model: API key is required")

// New builds the client for cfg.Provider. When cfg.MaxRetries is positive the
// client retries transient failures.
func New(cfg Config) (dispatch.ModelClient, error) {
	cfg = cfg.withDefaults()
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	var client dispatch.ModelClient
	switch cfg.Provider {
	case ProviderDashScope, ProviderOpenAI:
		client = NewOpenAIClient(cfg)
	case ProviderAnthropic:
		client = NewAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}

	if cfg.MaxRetries > 0 {
		client = WithRetry(client, RetryPolicy{MaxAttempts: cfg.MaxRetries + 1})
	}
	return client, nil
}
