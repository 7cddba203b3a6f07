package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *TexBuilderError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigInvalid(cause error) *TexBuilderError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "configuration invalid")
}

func ValidationFailed(field, reason string) *TexBuilderError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// ValidationError creates a validation error with a user-facing message.
func ValidationError(message string) *TexBuilderError {
	return New(CategoryValidation, SeverityFatal, message)
}

// Environment errors

func ToolMissing(tool, remediation string) *TexBuilderError {
	return New(CategoryEnvironment, SeverityFatal, "required tool not found: "+tool).
		WithContext("tool", tool).
		WithRemediation(remediation)
}

func EnvironmentUnsatisfied(summary, remediation string) *TexBuilderError {
	return New(CategoryEnvironment, SeverityFatal, summary).
		WithRemediation(remediation)
}

// Compile errors

func PassFailed(pass string, index int, cause error, output string) *TexBuilderError {
	return Wrap(cause, CategoryCompile, SeverityFatal, "compilation pass failed").
		WithContext("pass", pass).
		WithContext("index", index).
		WithOutput(output)
}

func ArtifactMissing(path string) *TexBuilderError {
	return New(CategoryCompile, SeverityFatal, "engine reported success but produced no artifact").
		WithContext("path", path)
}

// Filesystem errors

func FileSystemError(operation, path string, cause error) *TexBuilderError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "filesystem operation failed").
		WithContext("operation", operation).
		WithContext("path", path)
}

// Git and release errors

func GitError(operation string, cause error) *TexBuilderError {
	return Wrap(cause, CategoryGit, SeverityFatal, "git operation failed").
		WithContext("operation", operation)
}

func ReleaseFailed(stage string, cause error) *TexBuilderError {
	return Wrap(cause, CategoryRelease, SeverityFatal, "release failed").
		WithContext("stage", stage)
}

// Runtime errors

func Canceled(cause error) *TexBuilderError {
	return Wrap(cause, CategoryRuntime, SeverityError, "operation canceled")
}

// Internal errors

func InternalError(message string, cause error) *TexBuilderError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
