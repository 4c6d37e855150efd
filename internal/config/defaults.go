package config

import (
	"time"

	"github.com/zero-day-ai/cortex/internal/conversation"
	"github.com/zero-day-ai/cortex/internal/embedder"
	"github.com/zero-day-ai/cortex/internal/graph"
	"github.com/zero-day-ai/cortex/internal/llm"
	"github.com/zero-day-ai/cortex/internal/observability"
	"github.com/zero-day-ai/cortex/internal/planning"
	"github.com/zero-day-ai/cortex/internal/prompt"
	"github.com/zero-day-ai/cortex/internal/reasoning"
	"github.com/zero-day-ai/cortex/internal/retrieval"
	"github.com/zero-day-ai/cortex/internal/server"
	"github.com/zero-day-ai/cortex/internal/turn"
)

const defaultModel = "gpt-4o-mini"

// DefaultConfig returns a Config with sensible default values. Provider
// credentials default to the providers' conventional environment variables.
func DefaultConfig() *Config {
	return &Config{
		Server:    server.DefaultConfig(),
		Logging:   observability.DefaultLoggingConfig(),
		Tracing:   observability.DefaultTracingConfig(),
		Metrics:   observability.DefaultMetricsConfig(),
		Neo4j:     graph.DefaultConfig(),
		Embedder:  embedder.DefaultConfig(),
		Cache:     embedder.DefaultCacheConfig(),
		Planning:  planning.DefaultLimiterConfig(),
		Retrieval: retrieval.DefaultConfig(),
		Reasoning: reasoning.DefaultConfig(),
		LLM: LLMConfig{
			Providers: []llm.ProviderConfig{{
				Name: "openai",
				Type: llm.ProviderOpenAI,
			}},
			Routes: map[llm.UseCase]llm.Route{
				llm.UseCaseDefault:  {Provider: "openai", Model: defaultModel},
				llm.UseCasePlanning: {Provider: "openai", Model: defaultModel},
				llm.UseCaseDiagram:  {Provider: "openai", Model: defaultModel},
			},
			Timeout: 2 * time.Minute,
		},
		Prompt: PromptConfig{
			MaxChars: prompt.DefaultAssemblerConfig().MaxChars,
		},
		Conversation: conversation.DefaultStoreConfig(DefaultDataDir()),
		Turn:         turn.DefaultConfig(),
	}
}
