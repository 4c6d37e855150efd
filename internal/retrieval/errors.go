package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/zero-day-ai/cortex/internal/graph"
	"github.com/zero-day-ai/cortex/internal/types"
)

const (
	ErrCodeQueryFailed     types.ErrorCode = "RETRIEVAL_QUERY_FAILED"
	ErrCodeTimeout         types.ErrorCode = "RETRIEVAL_TIMEOUT"
	ErrCodeResultParsing   types.ErrorCode = "RETRIEVAL_RESULT_PARSING"
	ErrCodeEmbeddingFailed types.ErrorCode = "RETRIEVAL_EMBEDDING_FAILED"
	ErrCodeInvalidInput    types.ErrorCode = "RETRIEVAL_INVALID_INPUT"
)

// RetrievalError is a failed graph or embedding call. Retrieval never
// degrades to empty results on failure; the turn aborts instead.
type RetrievalError struct {
	Op  string
	Err *types.CortexError
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval %s: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// Code returns the retrieval error code.
func (e *RetrievalError) Code() types.ErrorCode {
	return e.Err.Code
}

func newRetrievalError(op string, code types.ErrorCode, msg string, cause error) *RetrievalError {
	return &RetrievalError{Op: op, Err: types.WrapError(code, msg, cause)}
}

// wrapQueryError classifies a graph client failure.
func wrapQueryError(ctx context.Context, op string, err error) *RetrievalError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		types.CodeOf(err) == graph.ErrCodeGraphQueryTimeout {
		return &RetrievalError{Op: op, Err: types.WrapRetryableError(ErrCodeTimeout, "graph query timed out", err)}
	}
	return newRetrievalError(op, ErrCodeQueryFailed, "graph query failed", err)
}

// NewEmbeddingError wraps an embedding failure so callers see one error
// family for everything that feeds retrieval.
func NewEmbeddingError(text string, err error) *RetrievalError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &RetrievalError{Op: "embed", Err: types.WrapRetryableError(ErrCodeTimeout, "embedding timed out", err)}
	}
	return newRetrievalError("embed", ErrCodeEmbeddingFailed,
		fmt.Sprintf("failed to embed %d characters", len(text)), err)
}
