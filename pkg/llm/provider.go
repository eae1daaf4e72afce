// Package llm defines the interfaces and factories for the narrator's
// language model backends.
package llm

import (
	"context"
	"fmt"

	"sloscope/internal/config"
)

// Provider establishes the common contract for all supported LLM integrations.
type Provider interface {
	Summarize(ctx context.Context, prompt string) (string, error)
	Name() string
}

// ProviderType represents a supported backend LLM provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// NewProvider evaluates the configuration to instantiate the correct LLM backend.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	providerType := ProviderType(cfg.ProviderType())

	switch providerType {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.Temperature, cfg.MaxTokens)
	case ProviderOllama:
		return NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
