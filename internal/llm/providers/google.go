package providers

import (
	"context"
	"os"

	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/zero-day-ai/cortex/internal/llm"
)

// NewGoogleProvider creates a provider for Gemini models.
func NewGoogleProvider(ctx context.Context, cfg llm.ProviderConfig) (*LangChainProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, llm.NewAuthError("google", nil)
	}

	opts := []googleai.Option{googleai.WithAPIKey(apiKey)}
	if cfg.DefaultModel != "" {
		opts = append(opts, googleai.WithDefaultModel(cfg.DefaultModel))
	}

	client, err := googleai.New(ctx, opts...)
	if err != nil {
		return nil, llm.TranslateError("google", err)
	}
	return newLangChainProvider(cfg, llm.ProviderGoogle, client), nil
}
