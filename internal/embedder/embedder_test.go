package embedder

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/cortex/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder(16)

	a, err := m.Embed(context.Background(), "alpha")
	require.NoError(t, err)
	b, err := m.Embed(context.Background(), "alpha")
	require.NoError(t, err)
	c, err := m.Embed(context.Background(), "beta")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var norm float64
	for _, v := range a {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestNew_Factory(t *testing.T) {
	e, err := New(Config{Provider: "mock", Model: "m", Dimensions: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, e.Dimensions())

	_, err = New(Config{Provider: "word2vec", Model: "m"})
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidConfig, types.CodeOf(err))
}

func TestNewOpenAIEmbedder_RequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewOpenAIEmbedder(DefaultConfig())
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidConfig, types.CodeOf(err))
}

func TestLangChainEmbedder_RejectsEmptyText(t *testing.T) {
	e, err := NewOpenAIEmbedder(Config{Provider: "openai", Model: "text-embedding-3-large", APIKey: "sk-test"})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, ErrCodeEmptyInput, types.CodeOf(err))
}
