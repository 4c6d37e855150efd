// Package providers implements llm.LLMProvider for each supported backend.
package providers

import (
	"context"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/zero-day-ai/cortex/internal/llm"
	"github.com/zero-day-ai/cortex/internal/types"
)

// LangChainProvider adapts any langchaingo model to llm.LLMProvider.
// Backend constructors differ only in how the client is built.
type LangChainProvider struct {
	name   string
	kind   llm.ProviderType
	model  string
	client llms.Model
}

func newLangChainProvider(cfg llm.ProviderConfig, kind llm.ProviderType, client llms.Model) *LangChainProvider {
	name := cfg.Name
	if name == "" {
		name = string(kind)
	}
	return &LangChainProvider{name: name, kind: kind, model: cfg.DefaultModel, client: client}
}

func (p *LangChainProvider) Name() string { return p.name }

// Type reports which backend the provider talks to.
func (p *LangChainProvider) Type() llm.ProviderType { return p.kind }

// Complete runs one non-streamed generation.
func (p *LangChainProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	resp, err := p.client.GenerateContent(ctx, toSchemaMessages(req.Messages), buildCallOptions(p.kind, req)...)
	if err != nil {
		return nil, llm.TranslateError(p.name, err)
	}
	return fromLangchainResponse(resp, req.Model), nil
}

// Stream runs a streamed generation. Errors after the call returns arrive
// as the final chunk.
func (p *LangChainProvider) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	chunks := make(chan llm.StreamChunk, 10)

	opts := append(buildCallOptions(p.kind, req), llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunks <- llm.StreamChunk{Delta: llm.StreamDelta{Content: string(chunk)}}:
			return nil
		}
	}))
	messages := toSchemaMessages(req.Messages)

	go func() {
		defer close(chunks)
		if _, err := p.client.GenerateContent(ctx, messages, opts...); err != nil {
			select {
			case chunks <- llm.StreamChunk{FinishReason: llm.FinishReasonError, Error: llm.TranslateError(p.name, err)}:
			case <-ctx.Done():
			}
			return
		}
		select {
		case chunks <- llm.StreamChunk{FinishReason: llm.FinishReasonStop}:
		case <-ctx.Done():
		}
	}()

	return chunks, nil
}

// Health issues a one-token completion.
func (p *LangChainProvider) Health(ctx context.Context) types.HealthStatus {
	_, err := p.Complete(ctx, llm.CompletionRequest{
		Model:     p.model,
		Messages:  []llm.Message{llm.NewUserMessage("ping")},
		MaxTokens: 1,
	})
	if err != nil {
		return types.Unhealthy(err.Error())
	}
	return types.Healthy(p.name)
}

var _ llm.LLMProvider = (*LangChainProvider)(nil)

func newResponseID() string {
	return uuid.New().String()
}
