// Package llm abstracts text generation behind a closed set of providers
// selected per use case through a static route table.
package llm

import (
	"context"

	"github.com/zero-day-ai/cortex/internal/types"
)

// LLMProvider is implemented by every generation backend.
type LLMProvider interface {
	// Name returns the configured provider name (e.g. "openai", "local-ollama").
	Name() string

	// Complete blocks until the whole response is available.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Stream emits chunks as they are generated and closes the channel when
	// generation ends, fails, or ctx is cancelled.
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)

	Health(ctx context.Context) types.HealthStatus
}

// ProviderType is the closed set of supported backends.
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderGoogle    ProviderType = "google"
	ProviderOllama    ProviderType = "ollama"
	ProviderGroq      ProviderType = "groq"
	ProviderMock      ProviderType = "mock"
)

// ProviderConfig configures one named provider instance.
type ProviderConfig struct {
	Name string       `mapstructure:"name" yaml:"name" validate:"required"`
	Type ProviderType `mapstructure:"type" yaml:"type" validate:"required,oneof=openai anthropic google ollama groq mock"`

	// APIKey falls back to the provider's conventional environment variable.
	APIKey       string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL      string `mapstructure:"base_url" yaml:"base_url"`
	DefaultModel string `mapstructure:"default_model" yaml:"default_model"`

	// Responses are canned replies for the mock provider.
	Responses []string `mapstructure:"responses" yaml:"responses,omitempty"`
}
