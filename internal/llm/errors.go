package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zero-day-ai/cortex/internal/types"
)

const (
	ErrProviderNotFound     types.ErrorCode = "LLM_PROVIDER_NOT_FOUND"
	ErrProviderInitFailed   types.ErrorCode = "LLM_PROVIDER_INIT_FAILED"
	ErrProviderUnavailable  types.ErrorCode = "LLM_PROVIDER_UNAVAILABLE"
	ErrProviderUnauthorized types.ErrorCode = "LLM_PROVIDER_UNAUTHORIZED"
	ErrProviderRateLimited  types.ErrorCode = "LLM_PROVIDER_RATE_LIMITED"
	ErrInvalidRoute         types.ErrorCode = "LLM_INVALID_ROUTE"
	ErrModelNotFound        types.ErrorCode = "LLM_MODEL_NOT_FOUND"
	ErrContextExceeded      types.ErrorCode = "LLM_MODEL_CONTEXT_EXCEEDED"
	ErrCompletionFailed     types.ErrorCode = "LLM_COMPLETION_FAILED"
	ErrResponseParseFailed  types.ErrorCode = "LLM_RESPONSE_PARSE_FAILED"
	ErrTimeoutExceeded      types.ErrorCode = "LLM_TIMEOUT_EXCEEDED"
	ErrContextCanceled      types.ErrorCode = "LLM_CONTEXT_CANCELED"
	ErrNetworkFailed        types.ErrorCode = "LLM_NETWORK_FAILED"
)

// GenerationError reports a failed generation for a use case. The cause is
// usually a CortexError produced by TranslateError.
type GenerationError struct {
	UseCase  UseCase
	Provider string
	Model    string
	Cause    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for use case %q (%s/%s): %v", e.UseCase, e.Provider, e.Model, e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the cause is a transient provider failure.
func (e *GenerationError) Retryable() bool {
	return types.IsRetryable(e.Cause)
}

// NewAuthError creates the error for a provider missing credentials.
func NewAuthError(provider string, cause error) *types.CortexError {
	return types.WrapError(ErrProviderUnauthorized,
		fmt.Sprintf("provider '%s' authentication failed", provider), cause)
}

// TranslateError classifies a raw provider error into a CortexError.
// langchaingo does not expose typed errors across backends, so the
// message text is inspected.
func TranslateError(provider string, err error) error {
	if err == nil {
		return nil
	}

	var ce *types.CortexError
	if errors.As(err, &ce) {
		return err
	}

	if errors.Is(err, context.Canceled) {
		return types.WrapError(ErrContextCanceled, "request cancelled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.WrapRetryableError(ErrTimeoutExceeded, "request timed out", err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "authentication") || strings.Contains(msg, "api key"):
		return NewAuthError(provider, err)
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return types.WrapRetryableError(ErrProviderRateLimited, "rate limit exceeded for provider: "+provider, err)
	case strings.Contains(msg, "context length") || strings.Contains(msg, "maximum context"):
		return types.WrapError(ErrContextExceeded, "prompt exceeds model context window", err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return types.WrapRetryableError(ErrTimeoutExceeded, "request timed out", err)
	case strings.Contains(msg, "network") || strings.Contains(msg, "connection"):
		return types.WrapRetryableError(ErrNetworkFailed, "network failure talking to "+provider, err)
	case strings.Contains(msg, "model") && strings.Contains(msg, "not found"):
		return types.WrapError(ErrModelNotFound, "model not found", err)
	default:
		return types.WrapRetryableError(ErrProviderUnavailable, "provider temporarily unavailable: "+provider, err)
	}
}
