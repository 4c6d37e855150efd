// Package graph is the read path into the knowledge graph store.
package graph

import (
	"context"
	"time"

	"github.com/zero-day-ai/cortex/internal/types"
)

// Client is the graph store surface the retrieval engine depends on.
// Implementations must be safe for concurrent use.
type Client interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	Health(ctx context.Context) types.HealthStatus

	// Query runs a parameterized Cypher statement in a read transaction.
	Query(ctx context.Context, cypher string, params map[string]any) (QueryResult, error)

	// Execute runs a parameterized Cypher statement in a write transaction.
	// Only maintenance commands (index bootstrap) use it.
	Execute(ctx context.Context, cypher string, params map[string]any) (QueryResult, error)
}

// QueryResult is a fully collected result set.
type QueryResult struct {
	Records []map[string]any
	Columns []string
	Summary QuerySummary
}

// QuerySummary carries execution metadata.
type QuerySummary struct {
	ExecutionTime time.Duration
	IndexesAdded  int
}

// Config holds connection settings for the graph store.
type Config struct {
	// URI uses bolt://, bolt+s://, neo4j:// or neo4j+s:// schemes.
	URI      string `mapstructure:"uri" yaml:"uri" validate:"required"`
	Username string `mapstructure:"username" yaml:"username" validate:"required"`
	Password string `mapstructure:"password" yaml:"password" validate:"required"`

	// Database is empty for the server default.
	Database string `mapstructure:"database" yaml:"database"`

	MaxConnectionPoolSize   int           `mapstructure:"max_connection_pool_size" yaml:"max_connection_pool_size" validate:"gte=0"`
	ConnectionTimeout       time.Duration `mapstructure:"connection_timeout" yaml:"connection_timeout" validate:"gt=0"`
	MaxTransactionRetryTime time.Duration `mapstructure:"max_transaction_retry_time" yaml:"max_transaction_retry_time" validate:"gte=0"`
	ConnectRetries          int           `mapstructure:"connect_retries" yaml:"connect_retries" validate:"gte=1"`
}

// DefaultConfig returns settings for a local Neo4j instance.
func DefaultConfig() Config {
	return Config{
		URI:                     "bolt://localhost:7687",
		Username:                "neo4j",
		Password:                "password",
		MaxConnectionPoolSize:   50,
		ConnectionTimeout:       30 * time.Second,
		MaxTransactionRetryTime: 30 * time.Second,
		ConnectRetries:          5,
	}
}

// Validate checks the fields the driver cannot default.
func (c Config) Validate() error {
	if c.URI == "" {
		return types.NewError(ErrCodeGraphInvalidConfig, "URI cannot be empty")
	}
	if c.Username == "" {
		return types.NewError(ErrCodeGraphInvalidConfig, "username cannot be empty")
	}
	if c.Password == "" {
		return types.NewError(ErrCodeGraphInvalidConfig, "password cannot be empty")
	}
	if c.ConnectionTimeout <= 0 {
		return types.NewError(ErrCodeGraphInvalidConfig, "connection timeout must be positive")
	}
	return nil
}
