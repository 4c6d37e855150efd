package embedder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/zero-day-ai/cortex/internal/types"
)

// LangChainEmbedder adapts a langchaingo embedder to Embedder.
type LangChainEmbedder struct {
	inner      embeddings.Embedder
	model      string
	dimensions int
	timeout    time.Duration
}

// NewOpenAIEmbedder builds an embedder over the OpenAI embeddings endpoint.
func NewOpenAIEmbedder(cfg Config) (*LangChainEmbedder, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, types.NewError(ErrCodeInvalidConfig,
			"openai embedder requires api_key (or OPENAI_API_KEY environment variable)")
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, types.WrapError(ErrCodeInvalidConfig, "failed to create openai client", err)
	}
	return newLangChainEmbedder(client, cfg)
}

// NewOllamaEmbedder builds an embedder over a local Ollama server.
func NewOllamaEmbedder(cfg Config) (*LangChainEmbedder, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}

	client, err := ollama.New(opts...)
	if err != nil {
		return nil, types.WrapError(ErrCodeInvalidConfig, "failed to create ollama client", err)
	}
	return newLangChainEmbedder(client, cfg)
}

func newLangChainEmbedder(client embeddings.EmbedderClient, cfg Config) (*LangChainEmbedder, error) {
	inner, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, types.WrapError(ErrCodeInvalidConfig, "failed to create embedder", err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LangChainEmbedder{
		inner:      inner,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		timeout:    timeout,
	}, nil
}

// Embed returns the embedding of text. Each call is bounded by the configured timeout.
func (e *LangChainEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, types.NewError(ErrCodeEmptyInput, "cannot embed empty text")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vec, err := e.inner.EmbedQuery(ctx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, types.WrapRetryableError(ErrCodeEmbeddingTimeout,
				fmt.Sprintf("embedding with %s timed out", e.model), err)
		}
		return nil, types.WrapRetryableError(ErrCodeEmbeddingFailed,
			fmt.Sprintf("embedding with %s failed", e.model), err)
	}
	if e.dimensions > 0 && len(vec) != e.dimensions {
		return nil, types.NewError(ErrCodeEmbeddingFailed,
			fmt.Sprintf("expected %d dimensions, got %d", e.dimensions, len(vec)))
	}

	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out, nil
}

func (e *LangChainEmbedder) Dimensions() int { return e.dimensions }

func (e *LangChainEmbedder) Model() string { return e.model }

// Health embeds a probe string.
func (e *LangChainEmbedder) Health(ctx context.Context) types.HealthStatus {
	if _, err := e.Embed(ctx, "health check"); err != nil {
		return types.Unhealthy(err.Error())
	}
	return types.Healthy(e.model)
}
