// Package model adapts hosted chat-completion APIs to dispatch.ModelClient.
package model

import (
	"fmt"
	"time"
)

// Provider names a supported model API.
type Provider string

const (
	// ProviderDashScope is Alibaba's DashScope, spoken through its
	// OpenAI-compatible endpoint.
	ProviderDashScope Provider = "dashscope"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// DashScopeBaseURL is the OpenAI-compatible DashScope endpoint.
const DashScopeBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

const defaultMaxTokens = 4096

// Config selects and configures a model client.
type Config struct {
	Provider   Provider      `json:"provider"`
	APIKey     string        `json:"-"`
	Model      string        `json:"model"`
	BaseURL    string        `json:"base_url"`
	MaxTokens  int           `json:"max_tokens"`
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(p Provider) string {
	switch p {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderAnthropic:
		return "claude-sonnet-4-6"
	default:
		return "qwen-plus"
	}
}

// ParseProvider maps a configuration string to a Provider.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case ProviderDashScope, ProviderOpenAI, ProviderAnthropic:
		return p, nil
	case "":
		return ProviderDashScope, nil
	case "qwen":
		return ProviderDashScope, nil
	}
	return "", fmt.Errorf("unknown model provider %q", s)
}

func (c Config) withDefaults() Config {
	if c.Provider == "" {
		c.Provider = ProviderDashScope
	}
	if c.Model == "" {
		c.Model = DefaultModel(c.Provider)
	}
	if c.BaseURL == "" && c.Provider == ProviderDashScope {
		c.BaseURL = DashScopeBaseURL
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	return c
}
