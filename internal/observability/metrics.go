package observability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc/credentials"

	"github.com/zero-day-ai/cortex/internal/types"
	"github.com/zero-day-ai/cortex/pkg/version"
)

// Metric names recorded by the pipeline.
const (
	MetricTurnDuration     = "cortex.turn.duration"
	MetricTurns            = "cortex.turn.count"
	MetricRetrievalErrors  = "cortex.retrieval.errors"
	MetricGenerationErrors = "cortex.llm.generation.errors"
)

const defaultMetricsInterval = 30 * time.Second

// MetricsConfig configures metric export.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Provider is "otlp" or "noop".
	Provider     string        `mapstructure:"provider" yaml:"provider" validate:"omitempty,oneof=otlp noop"`
	Endpoint     string        `mapstructure:"endpoint" yaml:"endpoint"`
	ServiceName  string        `mapstructure:"service_name" yaml:"service_name"`
	Interval     time.Duration `mapstructure:"interval" yaml:"interval" validate:"gte=0"`
	InsecureMode bool          `mapstructure:"insecure" yaml:"insecure"`
}

// DefaultMetricsConfig returns a disabled OTLP configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:     false,
		Provider:    "otlp",
		Endpoint:    "localhost:4317",
		ServiceName: "cortex",
		Interval:    defaultMetricsInterval,
	}
}

// Validate checks the fields that only matter when metrics are enabled.
func (c MetricsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Provider == "otlp" && c.Endpoint == "" {
		return fmt.Errorf("metrics endpoint is required for the otlp provider")
	}
	return nil
}

// InitMetrics builds and installs the global meter provider. A disabled
// or noop configuration yields a provider without readers, so instruments
// record nothing. Extra readers are attached in every case.
func InitMetrics(ctx context.Context, cfg MetricsConfig, readers ...sdkmetric.Reader) (*sdkmetric.MeterProvider, error) {
	var opts []sdkmetric.Option
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}

	if cfg.Enabled && !strings.EqualFold(cfg.Provider, "noop") {
		if err := cfg.Validate(); err != nil {
			return nil, types.WrapError(ErrExporterConnection, "invalid metrics configuration", err)
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

		expOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.InsecureMode {
			expOpts = append(expOpts, otlpmetricgrpc.WithInsecure())
		} else {
			expOpts = append(expOpts, otlpmetricgrpc.WithTLSCredentials(credentials.NewTLS(nil)))
		}
		exporter, err := otlpmetricgrpc.New(ctx, expOpts...)
		if err != nil {
			return nil, types.WrapError(ErrExporterConnection,
				fmt.Sprintf("failed to connect to OTLP endpoint %s", cfg.Endpoint), err)
		}

		interval := cfg.Interval
		if interval <= 0 {
			interval = defaultMetricsInterval
		}
		opts = append(opts,
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
			sdkmetric.WithResource(res),
		)
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// ShutdownMetrics flushes pending measurements. ctx bounds how long to wait.
func ShutdownMetrics(ctx context.Context, mp *sdkmetric.MeterProvider) error {
	if mp == nil {
		return nil
	}
	if err := mp.Shutdown(ctx); err != nil {
		return types.WrapError(ErrShutdownTimeout, "failed to shut down meter provider", err)
	}
	return nil
}
