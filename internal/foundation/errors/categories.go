package errors

import "maps"

// ErrorCategory represents the broad category of an error for classification and routing.
type ErrorCategory string

const (
	// CategoryConfig represents user-facing configuration and input errors.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryAuth       ErrorCategory = "auth"

	// CategoryPrecondition marks a missing prerequisite (artifact, repository) the
	// operator has to produce before retrying the command.
	CategoryPrecondition ErrorCategory = "precondition"
	CategoryConflict     ErrorCategory = "conflict"

	// CategoryBundler represents compile/resolve failures reported by the bundler.
	CategoryBundler    ErrorCategory = "bundler"
	CategoryFileSystem ErrorCategory = "filesystem"

	// CategoryGit represents external system integration errors.
	CategoryGit    ErrorCategory = "git"
	CategoryNotify ErrorCategory = "notify"
	CategoryStore  ErrorCategory = "store"

	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution completely
	SeverityError   ErrorSeverity = "error"   // Fails the current operation
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// RetryStrategy indicates how an error should be handled in retry scenarios.
// Nothing in cdnbundle retries automatically; the strategy tells the operator
// whether re-running the same command can succeed without changing anything.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never" // Permanent failure
	RetryUserAction RetryStrategy = "user"  // Requires operator intervention first
)

// ContextKeyRemedy is the context key holding the operator-facing remedy text.
const ContextKeyRemedy = "remedy"

// ErrorContext provides structured context for errors.
type ErrorContext map[string]any

// Set adds or updates a context value.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get retrieves a context value.
func (c ErrorContext) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	value, exists := c[key]
	return value, exists
}

// GetString retrieves a string context value.
func (c ErrorContext) GetString(key string) (string, bool) {
	if value, exists := c.Get(key); exists {
		if str, ok := value.(string); ok {
			return str, true
		}
	}
	return "", false
}

// Merge combines two contexts, with other taking precedence.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	if c == nil {
		return other
	}
	if other == nil {
		return c
	}
	result := make(ErrorContext)
	maps.Copy(result, c)
	maps.Copy(result, other)
	return result
}
