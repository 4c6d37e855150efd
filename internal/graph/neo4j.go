package graph

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/zero-day-ai/cortex/internal/types"
)

// Neo4jClient implements Client over the pooled Neo4j driver.
// Every call opens its own session and closes it before returning.
type Neo4jClient struct {
	config Config
	driver neo4j.DriverWithContext
}

// NewNeo4jClient validates config. Call Connect before use.
func NewNeo4jClient(config Config) (*Neo4jClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.ConnectRetries <= 0 {
		config.ConnectRetries = 1
	}
	return &Neo4jClient{config: config}, nil
}

// Connect creates the driver and verifies connectivity with exponential backoff.
func (c *Neo4jClient) Connect(ctx context.Context) error {
	auth := neo4j.BasicAuth(c.config.Username, c.config.Password, "")
	configure := func(cfg *neo4j.Config) {
		if c.config.MaxConnectionPoolSize > 0 {
			cfg.MaxConnectionPoolSize = c.config.MaxConnectionPoolSize
		}
		cfg.ConnectionAcquisitionTimeout = c.config.ConnectionTimeout
		cfg.MaxTransactionRetryTime = c.config.MaxTransactionRetryTime
	}

	var lastErr error
	baseDelay := 100 * time.Millisecond

	for attempt := 0; attempt < c.config.ConnectRetries; attempt++ {
		driver, err := neo4j.NewDriverWithContext(c.config.URI, auth, configure)
		if err == nil {
			if err = driver.VerifyConnectivity(ctx); err == nil {
				c.driver = driver
				return nil
			}
			_ = driver.Close(ctx)
		}
		lastErr = err

		delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if delay > c.config.ConnectionTimeout {
			delay = c.config.ConnectionTimeout
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return types.WrapError(ErrCodeGraphConnectionFailed, "connection attempt cancelled", ctx.Err())
		}
	}

	return types.WrapRetryableError(ErrCodeGraphConnectionFailed,
		fmt.Sprintf("failed to connect after %d attempts", c.config.ConnectRetries), lastErr)
}

// Close releases the driver and its pool.
func (c *Neo4jClient) Close(ctx context.Context) error {
	if c.driver == nil {
		return nil
	}
	if err := c.driver.Close(ctx); err != nil {
		return types.WrapError(ErrCodeGraphConnectionClosed, "failed to close driver", err)
	}
	c.driver = nil
	return nil
}

// Health verifies connectivity with a short timeout.
func (c *Neo4jClient) Health(ctx context.Context) types.HealthStatus {
	if c.driver == nil {
		return types.Unhealthy("driver not initialized")
	}

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.driver.VerifyConnectivity(healthCtx); err != nil {
		return types.Unhealthy(fmt.Sprintf("connectivity check failed: %v", err))
	}
	return types.Healthy("connected to Neo4j")
}

// Query runs a read transaction.
func (c *Neo4jClient) Query(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	return c.run(ctx, neo4j.AccessModeRead, cypher, params)
}

// Execute runs a write transaction.
func (c *Neo4jClient) Execute(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	return c.run(ctx, neo4j.AccessModeWrite, cypher, params)
}

func (c *Neo4jClient) run(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) (QueryResult, error) {
	if c.driver == nil {
		return QueryResult{}, types.NewError(ErrCodeGraphConnectionClosed, "driver not connected")
	}

	start := time.Now()
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.config.Database,
		AccessMode:   mode,
	})
	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return convertNeo4jResult(records, summary), nil
	}

	var (
		out any
		err error
	)
	if mode == neo4j.AccessModeWrite {
		out, err = session.ExecuteWrite(ctx, work)
	} else {
		out, err = session.ExecuteRead(ctx, work)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return QueryResult{}, types.WrapRetryableError(ErrCodeGraphQueryTimeout, "query timed out", err)
		}
		return QueryResult{}, types.WrapError(ErrCodeGraphQueryFailed, "query execution failed", err)
	}

	result := out.(QueryResult)
	result.Summary.ExecutionTime = time.Since(start)
	return result, nil
}

func convertNeo4jResult(records []*neo4j.Record, summary neo4j.ResultSummary) QueryResult {
	result := QueryResult{
		Records: make([]map[string]any, 0, len(records)),
		Columns: []string{},
	}
	if len(records) > 0 {
		result.Columns = records[0].Keys
	}
	for _, record := range records {
		row := make(map[string]any, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = record.Values[i]
		}
		result.Records = append(result.Records, row)
	}
	if summary != nil && summary.Counters() != nil {
		result.Summary.IndexesAdded = summary.Counters().IndexesAdded()
	}
	return result
}
