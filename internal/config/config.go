// Package config loads cortex settings from YAML, .env files and CORTEX_
// environment variables.
package config

import (
	"time"

	"github.com/zero-day-ai/cortex/internal/conversation"
	"github.com/zero-day-ai/cortex/internal/embedder"
	"github.com/zero-day-ai/cortex/internal/graph"
	"github.com/zero-day-ai/cortex/internal/llm"
	"github.com/zero-day-ai/cortex/internal/observability"
	"github.com/zero-day-ai/cortex/internal/planning"
	"github.com/zero-day-ai/cortex/internal/reasoning"
	"github.com/zero-day-ai/cortex/internal/retrieval"
	"github.com/zero-day-ai/cortex/internal/server"
	"github.com/zero-day-ai/cortex/internal/turn"
)

// Config is the root configuration.
type Config struct {
	Server       server.Config               `mapstructure:"server" yaml:"server"`
	Logging      observability.LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Tracing      observability.TracingConfig `mapstructure:"tracing" yaml:"tracing"`
	Metrics      observability.MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Neo4j        graph.Config                `mapstructure:"neo4j" yaml:"neo4j"`
	Embedder     embedder.Config             `mapstructure:"embedder" yaml:"embedder"`
	Cache        embedder.CacheConfig        `mapstructure:"cache" yaml:"cache"`
	LLM          LLMConfig                   `mapstructure:"llm" yaml:"llm"`
	Planning     planning.LimiterConfig      `mapstructure:"planning" yaml:"planning"`
	Retrieval    retrieval.Config            `mapstructure:"retrieval" yaml:"retrieval"`
	Reasoning    reasoning.Config            `mapstructure:"reasoning" yaml:"reasoning"`
	Prompt       PromptConfig                `mapstructure:"prompt" yaml:"prompt"`
	Conversation conversation.StoreConfig    `mapstructure:"conversation" yaml:"conversation"`
	Turn         turn.Config                 `mapstructure:"turn" yaml:"turn"`
}

// LLMConfig lists the provider instances and the use-case routing table.
type LLMConfig struct {
	Providers []llm.ProviderConfig `mapstructure:"providers" yaml:"providers" validate:"min=1,dive"`

	// Routes maps each use case to a provider name and model. A default
	// route is required.
	Routes map[llm.UseCase]llm.Route `mapstructure:"routes" yaml:"routes" validate:"required,dive,keys,oneof=planning diagram default code large_context,endkeys"`

	// Timeout bounds a single generation call.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
}

// PromptConfig locates the prompt library and bounds the final prompt.
type PromptConfig struct {
	// Library is an optional YAML file whose prompts override the built-in ones.
	Library  string `mapstructure:"library" yaml:"library,omitempty"`
	MaxChars int    `mapstructure:"max_chars" yaml:"max_chars" validate:"gte=1000"`
}
