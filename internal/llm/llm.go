// Package llm talks to hosted text-completion APIs.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/datasamory/datasamorybot/internal/config"
)

// Request is a single-turn completion request
type Request struct {
	Prompt    string
	MaxTokens int
}

// Completer sends one user message and returns the generated text
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// New creates the completer selected by provider. A non-empty baseURL replaces the
// provider's public endpoint.
func New(provider, apiKey, model, baseURL string) (Completer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("completion API key is empty")
	}

	switch provider {
	case config.ProviderAnthropic:
		client := NewAnthropicClient(apiKey, model)
		if baseURL != "" {
			client.baseURL = strings.TrimRight(baseURL, "/")
		}
		return client, nil
	case config.ProviderOpenAI:
		if baseURL != "" {
			return NewOpenAIClientWithBaseURL(apiKey, model, baseURL), nil
		}
		return NewOpenAIClient(apiKey, model), nil
	default:
		return nil, fmt.Errorf("unknown completion provider: %q (valid: anthropic, openai)", provider)
	}
}
