package embedder

import "github.com/zero-day-ai/cortex/internal/types"

const (
	ErrCodeInvalidConfig    types.ErrorCode = "EMBEDDER_INVALID_CONFIG"
	ErrCodeEmbeddingFailed  types.ErrorCode = "EMBEDDER_EMBEDDING_FAILED"
	ErrCodeEmbeddingTimeout types.ErrorCode = "EMBEDDER_TIMEOUT"
	ErrCodeEmptyInput       types.ErrorCode = "EMBEDDER_EMPTY_INPUT"
	ErrCodeCacheFailed      types.ErrorCode = "EMBEDDER_CACHE_FAILED"
)
