// Package embedder turns text into vectors for similarity search and
// caches the results.
package embedder

import (
	"context"

	"github.com/zero-day-ai/cortex/internal/types"
)

// Embedder generates embedding vectors from text.
// Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)

	// Dimensions is the vector length, or 0 when not known until first use.
	Dimensions() int

	Model() string

	Health(ctx context.Context) types.HealthStatus
}

// Config selects and configures the embedding provider.
type Config struct {
	// Provider is one of "openai", "ollama" or "mock".
	Provider string `mapstructure:"provider" yaml:"provider" validate:"required,oneof=openai ollama mock"`
	Model    string `mapstructure:"model" yaml:"model" validate:"required"`

	// APIKey falls back to OPENAI_API_KEY for the openai provider.
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	Dimensions int `mapstructure:"dimensions" yaml:"dimensions" validate:"gte=0"`

	// TimeoutSeconds bounds a single embedding call.
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds" validate:"gte=0"`
}

// DefaultConfig matches the vector indexes built with text-embedding-3-large.
func DefaultConfig() Config {
	return Config{
		Provider:       "openai",
		Model:          "text-embedding-3-large",
		Dimensions:     3072,
		TimeoutSeconds: 30,
	}
}
