package providers

import (
	"os"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/zero-day-ai/cortex/internal/llm"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// NewOpenAIProvider creates a provider for OpenAI chat models.
func NewOpenAIProvider(cfg llm.ProviderConfig) (*LangChainProvider, error) {
	return newOpenAICompatible(cfg, llm.ProviderOpenAI, "OPENAI_API_KEY", "")
}

// NewGroqProvider creates a provider for Groq's OpenAI-compatible endpoint.
func NewGroqProvider(cfg llm.ProviderConfig) (*LangChainProvider, error) {
	return newOpenAICompatible(cfg, llm.ProviderGroq, "GROQ_API_KEY", groqBaseURL)
}

func newOpenAICompatible(cfg llm.ProviderConfig, kind llm.ProviderType, keyEnv, defaultBaseURL string) (*LangChainProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(keyEnv)
	}
	if apiKey == "" {
		return nil, llm.NewAuthError(string(kind), nil)
	}

	opts := []openai.Option{openai.WithToken(apiKey)}
	if cfg.DefaultModel != "" {
		opts = append(opts, openai.WithModel(cfg.DefaultModel))
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, llm.TranslateError(string(kind), err)
	}
	return newLangChainProvider(cfg, kind, client), nil
}
