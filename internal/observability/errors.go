package observability

import "github.com/zero-day-ai/cortex/internal/types"

const (
	ErrExporterConnection types.ErrorCode = "OBSERVABILITY_EXPORTER_CONNECTION"
	ErrInvalidLogConfig   types.ErrorCode = "OBSERVABILITY_INVALID_LOG_CONFIG"
	ErrShutdownTimeout    types.ErrorCode = "OBSERVABILITY_SHUTDOWN_TIMEOUT"
)
