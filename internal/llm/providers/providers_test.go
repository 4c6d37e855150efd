package providers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/zero-day-ai/cortex/internal/llm"
	"github.com/zero-day-ai/cortex/internal/types"
)

func collect(t *testing.T, ch <-chan llm.StreamChunk) (string, error) {
	t.Helper()
	var sb strings.Builder
	for c := range ch {
		if c.Error != nil {
			return sb.String(), c.Error
		}
		sb.WriteString(c.Delta.Content)
	}
	return sb.String(), nil
}

func TestMockProvider_StreamsInChunks(t *testing.T) {
	p := NewMockProvider("Hello, streaming world")

	ch, err := p.Stream(context.Background(), llm.CompletionRequest{Model: "m"})
	require.NoError(t, err)

	var parts []string
	for c := range ch {
		require.NoError(t, c.Error)
		if c.Delta.Content != "" {
			parts = append(parts, c.Delta.Content)
		}
	}
	assert.Equal(t, "Hello, streaming world", strings.Join(parts, ""))
	assert.Equal(t, "Hello", parts[0])
	assert.Len(t, p.Calls(), 1)
}

func TestMockProvider_CyclesResponses(t *testing.T) {
	p := NewMockProvider("a", "b")
	ctx := context.Background()

	var got []string
	for i := 0; i < 3; i++ {
		resp, err := p.Complete(ctx, llm.CompletionRequest{})
		require.NoError(t, err)
		got = append(got, resp.Content)
	}
	assert.Equal(t, []string{"a", "b", "a"}, got)
}

func TestMockProvider_FailStreamAfter(t *testing.T) {
	p := NewMockProvider("0123456789abcdef").FailStreamAfter(2)

	ch, err := p.Stream(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)

	text, err := collect(t, ch)
	require.Error(t, err)
	assert.Equal(t, "0123456789", text)
	assert.True(t, types.IsRetryable(err))
}

func TestMockProviderFunc_Error(t *testing.T) {
	boom := errors.New("boom")
	p := NewMockProviderFunc("scripted", func(llm.CompletionRequest) (string, error) { return "", boom })

	_, err := p.Stream(context.Background(), llm.CompletionRequest{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "scripted", p.Name())
}

func TestNewProvider_MissingCredentials(t *testing.T) {
	for _, env := range []string{"OPENAI_API_KEY", "GROQ_API_KEY", "ANTHROPIC_API_KEY", "GOOGLE_API_KEY"} {
		t.Setenv(env, "")
	}

	for _, kind := range []llm.ProviderType{llm.ProviderOpenAI, llm.ProviderGroq, llm.ProviderAnthropic, llm.ProviderGoogle} {
		t.Run(string(kind), func(t *testing.T) {
			_, err := NewProvider(context.Background(), llm.ProviderConfig{Name: string(kind), Type: kind})
			require.Error(t, err)
			assert.Equal(t, llm.ErrProviderUnauthorized, types.CodeOf(err))
		})
	}
}

func TestNewProvider_Constructs(t *testing.T) {
	p, err := NewProvider(context.Background(), llm.ProviderConfig{Name: "primary", Type: llm.ProviderOpenAI, APIKey: "sk-test", DefaultModel: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "primary", p.Name())

	g, err := NewProvider(context.Background(), llm.ProviderConfig{Type: llm.ProviderGroq, APIKey: "gsk-test"})
	require.NoError(t, err)
	assert.Equal(t, "groq", g.Name())
	assert.Equal(t, llm.ProviderGroq, g.(*LangChainProvider).Type())

	m, err := NewProvider(context.Background(), llm.ProviderConfig{Name: "offline", Type: llm.ProviderMock, Responses: []string{"hi"}})
	require.NoError(t, err)
	assert.Equal(t, "offline", m.Name())

	_, err = NewProvider(context.Background(), llm.ProviderConfig{Type: "cohere"})
	require.Error(t, err)
	assert.Equal(t, llm.ErrProviderInitFailed, types.CodeOf(err))
}

func TestBuildCallOptions(t *testing.T) {
	temp := 0.1
	req := llm.CompletionRequest{Model: "gpt-4o", Temperature: &temp, MaxTokens: 3000, JSONMode: true}

	var opts llms.CallOptions
	for _, o := range buildCallOptions(llm.ProviderOpenAI, req) {
		o(&opts)
	}
	assert.Equal(t, "gpt-4o", opts.Model)
	assert.Equal(t, 0.1, opts.Temperature)
	assert.Equal(t, 3000, opts.MaxTokens)
	assert.True(t, opts.JSONMode)

	var anth llms.CallOptions
	for _, o := range buildCallOptions(llm.ProviderAnthropic, req) {
		o(&anth)
	}
	assert.False(t, anth.JSONMode)
}

func TestToSchemaMessages(t *testing.T) {
	out := toSchemaMessages([]llm.Message{llm.NewSystemMessage("sys"), llm.NewUserMessage("hi"), {Role: llm.RoleAssistant, Content: "yo"}})
	require.Len(t, out, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, out[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, out[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, out[2].Role)
}
