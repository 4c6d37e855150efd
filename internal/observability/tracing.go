package observability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc/credentials"

	"github.com/zero-day-ai/cortex/internal/types"
	"github.com/zero-day-ai/cortex/pkg/version"
)

const (
	defaultBatchTimeout = 5 * time.Second
	defaultServiceName  = "cortex"
)

// InitTracing builds and installs the global tracer provider.
// A disabled or noop configuration yields a provider with no exporter.
func InitTracing(ctx context.Context, cfg TracingConfig) (*sdktrace.TracerProvider, error) {
	if !cfg.Enabled || strings.EqualFold(cfg.Provider, "noop") {
		return sdktrace.NewTracerProvider(), nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, types.WrapError(ErrExporterConnection, "invalid tracing configuration", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version.Version),
		),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, types.WrapError(ErrExporterConnection, "failed to create resource", err)
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.InsecureMode {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(nil)))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, types.WrapError(ErrExporterConnection,
			fmt.Sprintf("failed to connect to OTLP endpoint %s", cfg.Endpoint), err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(defaultBatchTimeout)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// ShutdownTracing flushes pending spans. ctx bounds how long to wait.
func ShutdownTracing(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	if err := tp.Shutdown(ctx); err != nil {
		return types.WrapError(ErrShutdownTimeout, "failed to shut down tracer provider", err)
	}
	return nil
}
