package types

import (
	"errors"
	"fmt"
)

// ErrorCode is a namespaced error code shared by every cortex package.
// Packages declare their own codes next to the code that raises them.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
	CONFIG_NOT_FOUND         ErrorCode = "CONFIG_NOT_FOUND"
)

// Input error codes
const (
	INVALID_ARGUMENT ErrorCode = "INVALID_ARGUMENT"
	NOT_FOUND        ErrorCode = "NOT_FOUND"
)

// CortexError is a structured error with a code, a message and an optional cause.
// Retryable is a hint for callers deciding whether to try the operation again.
type CortexError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error formats as "[CODE] message" or "[CODE] message: cause".
func (e *CortexError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CortexError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a CortexError with the same Code.
func (e *CortexError) Is(target error) bool {
	var other *CortexError
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// NewError creates a non-retryable CortexError.
func NewError(code ErrorCode, message string) *CortexError {
	return &CortexError{Code: code, Message: message}
}

// NewRetryableError creates a retryable CortexError for transient failures.
func NewRetryableError(code ErrorCode, message string) *CortexError {
	return &CortexError{Code: code, Message: message, Retryable: true}
}

// WrapError creates a non-retryable CortexError around cause.
func WrapError(code ErrorCode, message string, cause error) *CortexError {
	return &CortexError{Code: code, Message: message, Cause: cause}
}

// WrapRetryableError creates a retryable CortexError around cause.
func WrapRetryableError(code ErrorCode, message string, cause error) *CortexError {
	return &CortexError{Code: code, Message: message, Retryable: true, Cause: cause}
}

// CodeOf returns the code of the first CortexError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ce *CortexError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsRetryable reports whether any CortexError in err's chain is marked retryable.
func IsRetryable(err error) bool {
	var ce *CortexError
	for err != nil {
		if !errors.As(err, &ce) {
			return false
		}
		if ce.Retryable {
			return true
		}
		err = ce.Cause
	}
	return false
}
