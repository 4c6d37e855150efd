package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/zero-day-ai/cortex/internal/llm"
)

// ConfigValidator validates configuration values.
type ConfigValidator interface {
	Validate(cfg *Config) error
}

// validatorImpl implements ConfigValidator using go-playground/validator.
type validatorImpl struct {
	validate *validator.Validate
}

// NewValidator creates a new ConfigValidator instance. Field paths in
// messages use the config file keys.
func NewValidator() ConfigValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &validatorImpl{validate: v}
}

// Validate validates the configuration and returns detailed error messages.
func (v *validatorImpl) Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errorMessages []string
	if err := v.validate.Struct(cfg); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("validation error: %w", err)
		}
		for _, e := range validationErrs {
			errorMessages = append(errorMessages, formatValidationError(e))
		}
	}

	errorMessages = append(errorMessages, validateLLM(cfg.LLM)...)
	if err := cfg.Tracing.Validate(); err != nil {
		errorMessages = append(errorMessages, err.Error())
	}
	if err := cfg.Metrics.Validate(); err != nil {
		errorMessages = append(errorMessages, err.Error())
	}

	if len(errorMessages) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errorMessages, "\n  - "))
	}
	return nil
}

// validateLLM checks what struct tags cannot: unique provider names and
// routes that point at configured providers.
func validateLLM(c LLMConfig) []string {
	var msgs []string

	names := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if names[p.Name] {
			msgs = append(msgs, fmt.Sprintf("llm.providers: duplicate provider name %q", p.Name))
		}
		names[p.Name] = true
	}

	if _, ok := c.Routes[llm.UseCaseDefault]; !ok {
		msgs = append(msgs, "llm.routes.default is required")
	}
	for _, uc := range llm.KnownUseCases {
		r, ok := c.Routes[uc]
		if !ok {
			continue
		}
		if !names[r.Provider] {
			msgs = append(msgs, fmt.Sprintf("llm.routes.%s.provider references unknown provider %q", uc, r.Provider))
		}
	}
	return msgs
}

// formatValidationError formats a single validation error with field path and details.
func formatValidationError(e validator.FieldError) string {
	fieldPath := formatFieldPath(e.Namespace())

	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", fieldPath)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s (got: %v)", fieldPath, e.Param(), e.Value())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s (got: %v)", fieldPath, e.Param(), e.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s (got: %v)", fieldPath, e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", fieldPath, e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed validation '%s' (got: %v)", fieldPath, e.Tag(), e.Value())
	}
}

// formatFieldPath drops the root struct name from a validator namespace.
// Example: "Config.llm.providers[0].name" -> "llm.providers[0].name"
func formatFieldPath(namespace string) string {
	_, rest, ok := strings.Cut(namespace, ".")
	if !ok {
		return namespace
	}
	return rest
}
