package providers

import (
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/zero-day-ai/cortex/internal/llm"
)

// NewOllamaProvider creates a provider for a local Ollama server.
func NewOllamaProvider(cfg llm.ProviderConfig) (*LangChainProvider, error) {
	opts := []ollama.Option{}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	if cfg.DefaultModel != "" {
		opts = append(opts, ollama.WithModel(cfg.DefaultModel))
	}

	client, err := ollama.New(opts...)
	if err != nil {
		return nil, llm.TranslateError("ollama", err)
	}
	return newLangChainProvider(cfg, llm.ProviderOllama, client), nil
}
