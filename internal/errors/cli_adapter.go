package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
		out:     os.Stderr,
	}
}

// WithOutput redirects user-facing messages (stderr by default).
func (a *CLIErrorAdapter) WithOutput(w io.Writer) *CLIErrorAdapter {
	if w != nil {
		a.out = w
	}
	return a
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	if tbe, ok := As(err); ok {
		return a.exitCodeFromTexBuilder(tbe)
	}

	return 1
}

// exitCodeFromTexBuilder maps TexBuilderError to exit codes.
func (a *CLIErrorAdapter) exitCodeFromTexBuilder(err *TexBuilderError) int {
	switch err.Category {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryEnvironment:
		return 3 // Host is missing tools
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryGit, CategoryRelease:
		return 8 // External system error
	case CategoryCompile, CategoryFileSystem:
		return 11 // Build error
	case CategoryRuntime:
		return 12 // Runtime error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 1 // General error
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	if tbe, ok := As(err); ok {
		return a.formatTexBuilder(tbe)
	}

	return fmt.Sprintf("Error: %v", err)
}

// formatTexBuilder formats a TexBuilderError for display.
func (a *CLIErrorAdapter) formatTexBuilder(err *TexBuilderError) string {
	var b strings.Builder
	if a.verbose {
		b.WriteString(err.Error())
	} else {
		switch err.Category {
		case CategoryConfig, CategoryValidation, CategoryEnvironment:
			b.WriteString(err.Message)
		default:
			fmt.Fprintf(&b, "%s: %s", err.Category, err.Message)
			if err.Cause != nil {
				fmt.Fprintf(&b, ": %v", err.Cause)
			}
		}
	}
	if err.Remediation != "" {
		fmt.Fprintf(&b, "\nHint: %s", err.Remediation)
	}
	if out := strings.TrimSpace(err.Output); out != "" {
		fmt.Fprintf(&b, "\n--- tool output ---\n%s", out)
	}
	return b.String()
}

// HandleError reports an error and returns the exit code the process should use.
func (a *CLIErrorAdapter) HandleError(err error) int {
	if err == nil {
		return 0
	}

	if a.shouldLog(err) {
		a.logError(err)
	}

	_, _ = fmt.Fprintf(a.out, "%s\n", a.FormatError(err))
	return a.ExitCodeFor(err)
}

// shouldLog determines if an error should be logged.
func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}

	if tbe, ok := As(err); ok {
		return tbe.Category == CategoryInternal ||
			tbe.Category == CategoryRuntime
	}

	return true
}

// logError logs an error with appropriate level and context.
func (a *CLIErrorAdapter) logError(err error) {
	if tbe, ok := As(err); ok {
		level := a.slogLevelFromSeverity(tbe.Severity)
		attrs := []slog.Attr{
			slog.String("category", string(tbe.Category)),
		}
		for k, v := range tbe.Context {
			attrs = append(attrs, slog.Any(k, v))
		}
		if tbe.Cause != nil {
			attrs = append(attrs, slog.String("cause", tbe.Cause.Error()))
		}

		a.logger.LogAttrs(context.Background(), level, tbe.Message, attrs...)
		return
	}

	a.logger.Error("Unclassified error", "error", err)
}

// slogLevelFromSeverity converts TexBuilderError severity to slog level.
func (a *CLIErrorAdapter) slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
