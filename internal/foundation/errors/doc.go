// Package errors provides foundational, type-safe error primitives used across cdnbundle.
//
// This package contains classified error types and helpers for robust error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// Key features:
//   - ErrorCategory: Broad error classification (config, precondition, bundler, git, etc.)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - RetryStrategy: Retry behavior (never, user action)
//   - ClassifiedError: Structured error with category, severity, and context
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLI adapter for exit codes and operator-facing messages
//
// Example usage:
//
//	err := errors.PreconditionError("entry point not found").
//		WithContext("path", entry).
//		WithRemedy("run the upstream build first").
//		Build()
package errors
