package svcmgr

import (
	"fmt"
	"strings"
)

// ManagerError represents an orchestration failure with additional context
// for troubleshooting. Failures are reported as data; the orchestrator
// process never terminates on a per-service failure.
type ManagerError struct {
	// Code identifies the error type
	Code ErrorCode

	// Message is the primary error message
	Message string

	// Context provides additional details
	Context map[string]interface{}

	// Cause is the underlying error (if any)
	Cause error

	// Suggestion provides actionable guidance for resolving the error
	Suggestion string
}

// ErrorCode identifies categories of errors
type ErrorCode string

const (
	ErrorCodeServiceNotFound     ErrorCode = "SERVICE_NOT_FOUND"
	ErrorCodeAlreadyRunning      ErrorCode = "ALREADY_RUNNING"
	ErrorCodeAdmissionDenied     ErrorCode = "ADMISSION_DENIED"
	ErrorCodeLaunchFailed        ErrorCode = "LAUNCH_FAILED"
	ErrorCodeTerminationFailed   ErrorCode = "TERMINATION_FAILED"
	ErrorCodeMaxRestartsExceeded ErrorCode = "MAX_RESTARTS_EXCEEDED"
	ErrorCodeInvalidConfig       ErrorCode = "INVALID_CONFIG"
	ErrorCodeSnapshotFailed      ErrorCode = "SNAPSHOT_FAILED"
)

// Error implements the error interface
func (e *ManagerError) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		var contextParts []string
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("Context: %s", strings.Join(contextParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause: %v", e.Cause))
	}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("Suggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, "; ")
}

// Unwrap returns the underlying error for errors.Is/As compatibility
func (e *ManagerError) Unwrap() error {
	return e.Cause
}

// NewError creates a new ManagerError with the given code and message
func NewError(code ErrorCode, message string) *ManagerError {
	return &ManagerError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *ManagerError) WithContext(key string, value interface{}) *ManagerError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause adds the underlying cause to the error
func (e *ManagerError) WithCause(cause error) *ManagerError {
	e.Cause = cause
	return e
}

// WithSuggestion adds an actionable suggestion to the error
func (e *ManagerError) WithSuggestion(suggestion string) *ManagerError {
	e.Suggestion = suggestion
	return e
}

// Common error constructors

// ErrServiceNotFound creates an error for an unregistered service name
func ErrServiceNotFound(name string) *ManagerError {
	return NewError(ErrorCodeServiceNotFound,
		fmt.Sprintf("Service '%s' is not registered", name)).
		WithContext("service", name).
		WithSuggestion("List registered services with the status command, then register the service first")
}

// ErrAlreadyRunning creates an error for a start on a live service
func ErrAlreadyRunning(name string, pid int) *ManagerError {
	return NewError(ErrorCodeAlreadyRunning,
		fmt.Sprintf("Service '%s' is already running", name)).
		WithContext("service", name).
		WithContext("pid", pid).
		WithSuggestion(fmt.Sprintf("Stop it first or use restart: sentineld restart %s", name))
}

// ErrAdmissionDenied creates an error for a start refused by the resource
// check. Distinguishable from a launch failure so the operator can retry
// once memory frees up.
func ErrAdmissionDenied(name string, availableMB, requiredMB uint64) *ManagerError {
	return NewError(ErrorCodeAdmissionDenied,
		fmt.Sprintf("Insufficient memory to start service '%s'", name)).
		WithContext("service", name).
		WithContext("available_mb", availableMB).
		WithContext("required_mb", requiredMB).
		WithSuggestion("Free memory by stopping another service, then retry the start")
}

// ErrLaunchFailed creates an error for a backend process that failed to come up
func ErrLaunchFailed(name, stderr string, cause error) *ManagerError {
	e := NewError(ErrorCodeLaunchFailed,
		fmt.Sprintf("Failed to launch backend for service '%s'", name)).
		WithContext("service", name).
		WithCause(cause).
		WithSuggestion("Check the backend binary is installed and the config artifact is valid")
	if stderr != "" {
		e = e.WithContext("stderr", stderr)
	}
	return e
}

// ErrTerminationFailed creates an error for a stop that could not bring the
// process down
func ErrTerminationFailed(name string, pid int, cause error) *ManagerError {
	return NewError(ErrorCodeTerminationFailed,
		fmt.Sprintf("Failed to terminate service '%s'", name)).
		WithContext("service", name).
		WithContext("pid", pid).
		WithCause(cause).
		WithSuggestion(fmt.Sprintf("Inspect the process manually: ps -p %d; kill -9 %d", pid, pid))
}

// ErrMaxRestartsExceeded creates the terminal error the monitor reports
// after exhausting automatic restarts
func ErrMaxRestartsExceeded(name string, count int) *ManagerError {
	return NewError(ErrorCodeMaxRestartsExceeded,
		fmt.Sprintf("Service '%s': %s", name, maxRestartsMessage)).
		WithContext("service", name).
		WithContext("restart_count", count).
		WithSuggestion("Investigate why the backend keeps dying, then start the service explicitly to clear the error")
}

// ErrInvalidConfig creates an error for a registration or launch attempt
// with an unusable config
func ErrInvalidConfig(name, reason string) *ManagerError {
	return NewError(ErrorCodeInvalidConfig,
		fmt.Sprintf("Service '%s' has an invalid configuration: %s", name, reason)).
		WithContext("service", name).
		WithSuggestion("Re-parse the source configuration and check its diagnostics")
}

// ErrSnapshotFailed creates an error for an unreadable host resource state.
// This is the one condition allowed to fail the calling command outright.
func ErrSnapshotFailed(cause error) *ManagerError {
	return NewError(ErrorCodeSnapshotFailed,
		"Unable to read host resource counters").
		WithCause(cause).
		WithSuggestion("Verify /proc and /sys are mounted and readable")
}

// IsErrorCode checks if an error has the specified error code
func IsErrorCode(err error, code ErrorCode) bool {
	if mgrErr, ok := err.(*ManagerError); ok {
		return mgrErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or empty string if not
// a ManagerError
func GetErrorCode(err error) ErrorCode {
	if mgrErr, ok := err.(*ManagerError); ok {
		return mgrErr.Code
	}
	return ""
}
