package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// SAESError is the structured error type used across the service.
// It carries enough context to log, classify, and present an error.
type SAESError struct {
	// Code is the unique error code (e.g., "ERR_301_GENERATION_FAILED").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable hint for operators.
	Suggestion string
}

// Error implements the error interface.
func (e *SAESError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SAESError) Unwrap() error {
	return e.Cause
}

// Is matches another SAESError by code, so errors.Is works against sentinels
// built with New.
func (e *SAESError) Is(target error) bool {
	if t, ok := target.(*SAESError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *SAESError) WithDetail(key, value string) *SAESError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion.
func (e *SAESError) WithSuggestion(suggestion string) *SAESError {
	e.Suggestion = suggestion
	return e
}

// New creates a SAESError. Category, severity and the retryable flag are
// derived from the code.
func New(code string, message string, cause error) *SAESError {
	return &SAESError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a SAESError whose message is taken from err.
func Wrap(code string, err error) *SAESError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration error.
func ConfigError(message string, cause error) *SAESError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates an input validation error.
func ValidationError(message string, cause error) *SAESError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *SAESError {
	return New(ErrCodeInternal, message, cause)
}

// as finds the first SAESError in err's chain.
func as(err error) (*SAESError, bool) {
	var se *SAESError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsRetryable reports whether err carries a retryable SAESError.
func IsRetryable(err error) bool {
	se, ok := as(err)
	return ok && se.Retryable
}

// IsFatal reports whether err carries a fatal SAESError.
func IsFatal(err error) bool {
	se, ok := as(err)
	return ok && se.Severity == SeverityFatal
}

// GetCode returns the code of the first SAESError in err's chain, or "".
func GetCode(err error) string {
	if se, ok := as(err); ok {
		return se.Code
	}
	return ""
}

// FormatForCLI formats an error for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	se, ok := as(err)
	if !ok {
		se = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", se.Message)
	if se.Suggestion != "" {
		fmt.Fprintf(&sb, "  Suggestion: %s\n", se.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", se.Code)
	return sb.String()
}
