package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestHandler_RedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "json", slog.LevelDebug, true))

	logger.Info("calling provider", "prompt", "tell me everything", "api_key", "sk-123", "use_case", "planning")

	rec := decode(t, &buf)
	assert.Equal(t, redacted, rec["prompt"])
	assert.Equal(t, redacted, rec["api_key"])
	assert.Equal(t, "planning", rec["use_case"])
}

func TestHandler_NoRedactionWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "json", slog.LevelDebug, false))

	logger.Debug("x", "prompt", "visible")
	assert.Equal(t, "visible", decode(t, &buf)["prompt"])
}

func TestHandler_AddsTraceCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "json", slog.LevelInfo, true))

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(tracetest.NewSpanRecorder()))
	ctx, span := tp.Tracer("test").Start(context.Background(), "turn")
	defer span.End()

	logger.InfoContext(ctx, "inside span")

	rec := decode(t, &buf)
	assert.Equal(t, span.SpanContext().TraceID().String(), rec["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), rec["span_id"])
}

func TestHandler_RespectsLevelAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "text", slog.LevelWarn, true)).With("component", "retrieval").WithGroup("g")

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept", "token", "abc")
	assert.Contains(t, buf.String(), "component=retrieval")
	assert.Contains(t, buf.String(), "g.token="+redacted)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := t.TempDir() + "/cortex.log"
	cfg := DefaultLoggingConfig()
	cfg.Output = path

	logger, closeFn, err := NewLogger(cfg)
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, closeFn())
	assert.FileExists(t, path)
}
