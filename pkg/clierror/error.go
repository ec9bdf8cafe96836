// Package clierror provides structured errors for CLI output with codes,
// exit codes, and remediation hints.
//
// CLI errors separate internal error details from what gets displayed to
// users, and map the trust-state error taxonomy onto stable exit codes so
// scripts can branch on outcomes.
package clierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Rage-cmd/ockam/pkg/state"
	"github.com/Rage-cmd/ockam/pkg/store"
)

// Exit codes.
const (
	ExitSuccess  = 0 // Operation completed successfully
	ExitGeneral  = 1 // Unknown/unhandled error
	ExitConflict = 2 // Resource already exists
	ExitNotFound = 4 // Resource doesn't exist
	ExitState    = 5 // Local state invalid or unreadable
)

// Error codes (strings) for programmatic error handling.
const (
	CodeAlreadyExists    = "ALREADY_EXISTS"
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidPath      = "INVALID_PATH"
	CodeInvalidData      = "INVALID_DATA"
	CodeInvalidOperation = "INVALID_OPERATION"
	CodeInvalidVersion   = "INVALID_VERSION"
	CodeInternalError    = "INTERNAL_ERROR"
)

// CLIError represents a structured error for CLI output.
type CLIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Hint      string `json:"hint,omitempty"`
	Retryable bool   `json:"retryable"`
	ExitCode  int    `json:"-"` // Not serialized, used for os.Exit
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// AlreadyExists creates an error for a name collision.
func AlreadyExists(resource, name string) *CLIError {
	return &CLIError{
		Code:     CodeAlreadyExists,
		Message:  fmt.Sprintf("a %s named '%s' already exists", resource, name),
		Hint:     "Use a different name or delete the existing resource first",
		ExitCode: ExitConflict,
	}
}

// NotFound creates an error for a missing resource.
func NotFound(resource, name string) *CLIError {
	message := fmt.Sprintf("unable to find %s named '%s'", resource, name)
	if name == "" {
		message = fmt.Sprintf("no default %s found", resource)
	}
	return &CLIError{
		Code:     CodeNotFound,
		Message:  message,
		Hint:     "Check the name with the matching 'list' command",
		ExitCode: ExitNotFound,
	}
}

// InvalidVersion creates an error for an unrecognized on-disk state version.
func InvalidVersion(err error) *CLIError {
	return &CLIError{
		Code:     CodeInvalidVersion,
		Message:  err.Error(),
		Hint:     "Run 'ockam reset' to reset your local state",
		ExitCode: ExitState,
	}
}

// InvalidState creates an error for malformed local state or paths.
func InvalidState(code string, err error) *CLIError {
	return &CLIError{
		Code:     code,
		Message:  err.Error(),
		ExitCode: ExitState,
	}
}

// InternalError creates an error for unexpected internal errors.
func InternalError(err error) *CLIError {
	msg := "an unexpected internal error occurred"
	if err != nil {
		msg = fmt.Sprintf("internal error: %s", err.Error())
	}
	return &CLIError{
		Code:     CodeInternalError,
		Message:  msg,
		ExitCode: ExitGeneral,
	}
}

// FromError maps any error onto a structured CLI error, preserving the
// typed taxonomy where one applies.
func FromError(err error) *CLIError {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	var exists *store.AlreadyExistsError
	if errors.As(err, &exists) {
		return AlreadyExists(exists.Resource, exists.Name)
	}
	var notFound *store.NotFoundError
	if errors.As(err, &notFound) {
		return NotFound(notFound.Resource, notFound.Name)
	}
	var badVersion *store.InvalidVersionError
	if errors.As(err, &badVersion) {
		return InvalidVersion(badVersion)
	}
	var badPath *state.InvalidPathError
	if errors.As(err, &badPath) {
		return InvalidState(CodeInvalidPath, badPath)
	}
	if errors.Is(err, state.ErrEmptyPath) {
		return InvalidState(CodeInvalidPath, err)
	}
	var badData *state.InvalidDataError
	if errors.As(err, &badData) {
		return InvalidState(CodeInvalidData, badData)
	}
	var badOp *state.InvalidOperationError
	if errors.As(err, &badOp) {
		return InvalidState(CodeInvalidOperation, badOp)
	}
	return InternalError(err)
}

// FormatError returns the error formatted for the given output format.
// Supported formats: "json" for JSON output, anything else for a
// human-readable format.
func FormatError(err *CLIError, outputFormat string) string {
	if outputFormat == "json" {
		data, jsonErr := json.MarshalIndent(err, "", "  ")
		if jsonErr != nil {
			return fmt.Sprintf(`{"code":%q,"message":%q}`, err.Code, err.Message)
		}
		return string(data)
	}

	output := fmt.Sprintf("Error [%s]: %s", err.Code, err.Message)
	if err.Hint != "" {
		output += fmt.Sprintf("\nHint: %s", err.Hint)
	}
	return output
}

// PrintError prints the error to stderr in the appropriate format.
func PrintError(err *CLIError, outputFormat string) {
	fmt.Fprintln(os.Stderr, FormatError(err, outputFormat))
}
