package graph

import "github.com/zero-day-ai/cortex/internal/types"

// Graph store error codes
const (
	ErrCodeGraphConnectionFailed types.ErrorCode = "GRAPH_CONNECTION_FAILED"
	ErrCodeGraphConnectionClosed types.ErrorCode = "GRAPH_CONNECTION_CLOSED"
	ErrCodeGraphInvalidConfig    types.ErrorCode = "GRAPH_INVALID_CONFIG"
	ErrCodeGraphQueryFailed      types.ErrorCode = "GRAPH_QUERY_FAILED"
	ErrCodeGraphQueryTimeout     types.ErrorCode = "GRAPH_QUERY_TIMEOUT"
)
