package providers

import (
	"context"
	"fmt"

	"github.com/zero-day-ai/cortex/internal/llm"
	"github.com/zero-day-ai/cortex/internal/types"
)

// NewProvider creates the provider named by cfg.Type.
func NewProvider(ctx context.Context, cfg llm.ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Type {
	case llm.ProviderOpenAI:
		return NewOpenAIProvider(cfg)
	case llm.ProviderGroq:
		return NewGroqProvider(cfg)
	case llm.ProviderAnthropic:
		return NewAnthropicProvider(cfg)
	case llm.ProviderGoogle:
		return NewGoogleProvider(ctx, cfg)
	case llm.ProviderOllama:
		return NewOllamaProvider(cfg)
	case llm.ProviderMock:
		p := NewMockProvider(cfg.Responses...)
		if cfg.Name != "" {
			p.name = cfg.Name
		}
		return p, nil
	default:
		return nil, types.NewError(llm.ErrProviderInitFailed, fmt.Sprintf("unknown provider type: %s", cfg.Type))
	}
}

// NewProviders builds every configured provider, failing on the first error.
func NewProviders(ctx context.Context, cfgs []llm.ProviderConfig) ([]llm.LLMProvider, error) {
	out := make([]llm.LLMProvider, 0, len(cfgs))
	for _, cfg := range cfgs {
		p, err := NewProvider(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", cfg.Name, err)
		}
		out = append(out, p)
	}
	return out, nil
}
