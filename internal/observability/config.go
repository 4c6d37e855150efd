package observability

import (
	"fmt"
)

// LoggingConfig selects the log level, format and destination.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json text"`

	// Output is "stderr", "stdout" or a file path.
	Output string `mapstructure:"output" yaml:"output"`

	// RedactSensitive masks prompt and credential attributes.
	RedactSensitive bool `mapstructure:"redact_sensitive" yaml:"redact_sensitive"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Provider is "otlp" or "noop".
	Provider     string  `mapstructure:"provider" yaml:"provider" validate:"omitempty,oneof=otlp noop"`
	Endpoint     string  `mapstructure:"endpoint" yaml:"endpoint"`
	ServiceName  string  `mapstructure:"service_name" yaml:"service_name"`
	SampleRate   float64 `mapstructure:"sample_rate" yaml:"sample_rate" validate:"gte=0,lte=1"`
	InsecureMode bool    `mapstructure:"insecure" yaml:"insecure"`
}

// DefaultLoggingConfig logs JSON at info level to stderr with redaction on.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:           "info",
		Format:          "json",
		Output:          "stderr",
		RedactSensitive: true,
	}
}

// DefaultTracingConfig returns a disabled OTLP configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		Enabled:     false,
		Provider:    "otlp",
		Endpoint:    "localhost:4317",
		ServiceName: "cortex",
		SampleRate:  1.0,
	}
}

// Validate checks the fields that only matter when tracing is enabled.
func (c TracingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Provider == "otlp" && c.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required for the otlp provider")
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("tracing sample_rate must be between 0 and 1 (got: %v)", c.SampleRate)
	}
	return nil
}
