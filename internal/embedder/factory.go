package embedder

import (
	"fmt"

	"github.com/zero-day-ai/cortex/internal/types"
)

// New creates the Embedder named by cfg.Provider.
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbedder(cfg)
	case "ollama":
		return NewOllamaEmbedder(cfg)
	case "mock":
		return NewMockEmbedder(cfg.Dimensions), nil
	default:
		return nil, types.NewError(ErrCodeInvalidConfig, fmt.Sprintf("unknown embedder provider: %s", cfg.Provider))
	}
}
