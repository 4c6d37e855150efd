// Package observability builds the process logger, tracer provider and
// meter provider.
//
// Logs are written through log/slog. Every record emitted with a context
// that carries a recording span gets trace_id and span_id attributes, and
// values under sensitive keys (prompt, api_key, password, token, ...) are
// replaced with [REDACTED] before they reach the handler.
//
// Tracing uses the OpenTelemetry SDK. When tracing is disabled InitTracing
// returns a provider without exporters so instrumented code never checks
// for nil.
//
// Metrics follow the same rule: InitMetrics always returns a meter provider,
// exporting over OTLP only when enabled. The pipeline records turn duration
// and outcome, failed retrievals and failed generations under the Metric*
// names.
package observability
