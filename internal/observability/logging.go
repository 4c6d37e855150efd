package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/cortex/internal/types"
)

const redacted = "[REDACTED]"

var sensitiveKeys = map[string]bool{
	"prompt":     true,
	"prompts":    true,
	"apikey":     true,
	"secret":     true,
	"password":   true,
	"token":      true,
	"credential": true,
	"secretkey":  true,
}

// NewLogger builds a logger from cfg. The returned close func releases the
// output file, if any, and is never nil.
func NewLogger(cfg LoggingConfig) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		w       io.Writer
		closeFn = func() error { return nil }
	)
	switch cfg.Output {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, types.WrapError(ErrInvalidLogConfig, "failed to open log file", err)
		}
		w, closeFn = f, f.Close
	}

	return slog.New(NewHandler(w, cfg.Format, level, cfg.RedactSensitive)), closeFn, nil
}

// NewHandler returns a JSON or text handler that correlates records with
// the active span and optionally redacts sensitive attributes.
func NewHandler(w io.Writer, format string, level slog.Level, redact bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if redact {
		opts.ReplaceAttr = redactAttr
	}

	var inner slog.Handler
	if format == "text" {
		inner = slog.NewTextHandler(w, opts)
	} else {
		inner = slog.NewJSONHandler(w, opts)
	}
	return &traceHandler{inner: inner}
}

// ParseLevel maps a config level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, types.NewError(ErrInvalidLogConfig, fmt.Sprintf("unknown log level %q", s))
	}
}

func redactAttr(groups []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(strings.ReplaceAll(a.Key, "_", ""))
	if sensitiveKeys[key] {
		return slog.String(a.Key, redacted)
	}
	return a
}

// traceHandler adds trace_id and span_id from the record's context.
type traceHandler struct {
	inner slog.Handler
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r = r.Clone()
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.inner.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{inner: h.inner.WithGroup(name)}
}
