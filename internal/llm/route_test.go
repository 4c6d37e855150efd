package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/cortex/internal/types"
)

func TestNewRouteTable_RequiresDefault(t *testing.T) {
	_, err := NewRouteTable(map[UseCase]Route{
		UseCasePlanning: {Provider: "openai", Model: "gpt-4o-mini"},
	})
	require.Error(t, err)
	assert.Equal(t, ErrInvalidRoute, types.CodeOf(err))

	_, err = NewRouteTable(map[UseCase]Route{
		UseCaseDefault: {Provider: "openai", Model: "gpt-4o"},
		UseCaseDiagram: {Provider: "anthropic"},
	})
	assert.Error(t, err)
}

func TestRouteTable_LookupFallsBackToDefault(t *testing.T) {
	routes := map[UseCase]Route{
		UseCaseDefault:  {Provider: "openai", Model: "gpt-4o"},
		UseCasePlanning: {Provider: "groq", Model: "llama-3.1-8b-instant"},
	}
	table, err := NewRouteTable(routes)
	require.NoError(t, err)

	// later edits to the source map do not leak into the table
	routes[UseCaseDefault] = Route{Provider: "changed", Model: "changed"}

	assert.Equal(t, "groq", table.Lookup(UseCasePlanning).Provider)
	assert.Equal(t, "gpt-4o", table.Lookup(UseCaseDiagram).Model)
	assert.Equal(t, "gpt-4o", table.Lookup(UseCase("unknown")).Model)
	assert.Equal(t, []string{"groq", "openai"}, table.Providers())
}
