package internal

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/cortex/internal/conversation"
	"github.com/zero-day-ai/cortex/internal/graph"
	"github.com/zero-day-ai/cortex/internal/llm"
	"github.com/zero-day-ai/cortex/internal/types"
)

// Exit code constants for the CLI
const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitError indicates a general error
	ExitError = 1
	// ExitTurnFailed indicates a turn ended with an error event
	ExitTurnFailed = 2
	// ExitTimeout indicates the operation timed out
	ExitTimeout = 3
	// ExitCancelled indicates the operation was cancelled
	ExitCancelled = 4
	// ExitUnhealthy indicates a dependency failed its health check
	ExitUnhealthy = 5
	// ExitConfigError indicates a configuration error
	ExitConfigError = 10
	// ExitGraphError indicates the graph store could not be reached
	ExitGraphError = 11
	// ExitStorageError indicates a conversation storage error
	ExitStorageError = 12
	// ExitProviderError indicates a generation provider error
	ExitProviderError = 13
)

// CLIError represents a CLI-specific error with an exit code
type CLIError struct {
	Code    int
	Message string
	Cause   error
}

// Error implements the error interface
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// WrapError creates a new CLIError wrapping an existing error
func WrapError(code int, message string, err error) *CLIError {
	return &CLIError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// NewCLIError creates a new CLIError with the given code and message
func NewCLIError(code int, message string) *CLIError {
	return &CLIError{
		Code:    code,
		Message: message,
	}
}

// HandleError handles an error and returns the appropriate exit code
// It also prints the error message to the command's error output
func HandleError(cmd *cobra.Command, err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, context.Canceled) {
		cmd.PrintErrln("Operation cancelled")
		return ExitCancelled
	}

	if errors.Is(err, context.DeadlineExceeded) {
		cmd.PrintErrln("Operation timed out")
		return ExitTimeout
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		cmd.PrintErrln("Error:", cliErr.Message)
		if cliErr.Cause != nil && verboseFlagSet(cmd) {
			cmd.PrintErrln("Cause:", cliErr.Cause)
		}
		return cliErr.Code
	}

	var ce *types.CortexError
	if errors.As(err, &ce) {
		cmd.PrintErrln("Error:", err)
		return mapCortexErrorToExitCode(ce)
	}

	cmd.PrintErrln("Error:", err)
	return ExitError
}

func verboseFlagSet(cmd *cobra.Command) bool {
	f := cmd.Flag("verbose")
	return f != nil && f.Changed
}

// mapCortexErrorToExitCode maps error codes to CLI exit codes
func mapCortexErrorToExitCode(err *types.CortexError) int {
	switch err.Code {
	case graph.ErrCodeGraphConnectionFailed,
		graph.ErrCodeGraphInvalidConfig:
		return ExitGraphError
	case conversation.ErrCodeNotFound,
		conversation.ErrCodeInvalidID,
		conversation.ErrCodePersistence:
		return ExitStorageError
	case llm.ErrProviderNotFound,
		llm.ErrProviderInitFailed,
		llm.ErrProviderUnauthorized,
		llm.ErrInvalidRoute:
		return ExitProviderError
	case llm.ErrTimeoutExceeded:
		return ExitTimeout
	default:
		return ExitError
	}
}

// IsVerbose checks if verbose mode is enabled via environment variable or flag
// This is used for panic recovery to determine if stack traces should be shown
func IsVerbose() bool {
	if os.Getenv("CORTEX_VERBOSE") != "" {
		return true
	}
	for _, arg := range os.Args {
		if arg == "-v" || arg == "--verbose" {
			return true
		}
	}
	return false
}
