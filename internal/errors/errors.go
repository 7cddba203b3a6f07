// Package errors provides a lightweight structured error type (TexBuilderError)
// for category-based classification and exit code mapping in the CLI.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCategory represents the category of a TexBuilder error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Host environment (missing or outdated external tools)
	CategoryEnvironment ErrorCategory = "environment"

	// External tool and filesystem errors
	CategoryCompile    ErrorCategory = "compile"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryGit        ErrorCategory = "git"
	CategoryRelease    ErrorCategory = "release"

	// Runtime and infrastructure errors
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// TexBuilderError is a structured error with category, severity and context.
type TexBuilderError struct {
	Category    ErrorCategory `json:"category"`
	Severity    ErrorSeverity `json:"severity"`
	Message     string        `json:"message"`
	Cause       error         `json:"cause,omitempty"`
	Remediation string        `json:"remediation,omitempty"`
	Output      string        `json:"output,omitempty"` // verbatim tool output, if any
	Context     ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for TexBuilderError
type ContextFields map[string]any

// Error implements the error interface
func (e *TexBuilderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *TexBuilderError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *TexBuilderError) WithContext(key string, value any) *TexBuilderError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// WithRemediation attaches actionable advice shown to the user.
func (e *TexBuilderError) WithRemediation(text string) *TexBuilderError {
	e.Remediation = text
	return e
}

// WithOutput attaches captured tool output, surfaced verbatim.
func (e *TexBuilderError) WithOutput(output string) *TexBuilderError {
	e.Output = output
	return e
}

// New creates a new TexBuilderError
func New(category ErrorCategory, severity ErrorSeverity, message string) *TexBuilderError {
	return &TexBuilderError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new TexBuilderError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *TexBuilderError {
	return &TexBuilderError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As finds the first TexBuilderError in err's chain.
func As(err error) (*TexBuilderError, bool) {
	var tbe *TexBuilderError
	if stdErrors.As(err, &tbe) {
		return tbe, true
	}
	return nil, false
}

// IsCategory checks if an error (or anything it wraps) belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if tbe, ok := As(err); ok {
		return tbe.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a TexBuilderError
func GetCategory(err error) ErrorCategory {
	if tbe, ok := As(err); ok {
		return tbe.Category
	}
	return CategoryInternal
}
