package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "FM1001"
	ErrCodeConnectionTimeout    ErrorCode = "FM1002"
	ErrCodeAuthenticationFailed ErrorCode = "FM1003"
	ErrCodeNetworkUnavailable   ErrorCode = "FM1004"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound  ErrorCode = "FM2001"
	ErrCodeConfigInvalid   ErrorCode = "FM2002"
	ErrCodeConfigMissing   ErrorCode = "FM2003"
	ErrCodeThresholdConfig ErrorCode = "FM2004"

	// Record-level errors (3xxx)
	ErrCodeValidationFailed  ErrorCode = "FM3001"
	ErrCodeMissingEntityID   ErrorCode = "FM3002"
	ErrCodeOrphanTransaction ErrorCode = "FM3003"
	ErrCodeInvalidInput      ErrorCode = "FM3004"

	// Historian errors (4xxx)
	ErrCodeOutOfOrder       ErrorCode = "FM4001"
	ErrCodeDuplicateVersion ErrorCode = "FM4002"
	ErrCodeInvariantBroken  ErrorCode = "FM4003"

	// SQL execution errors (5xxx)
	ErrCodeSQLExecution      ErrorCode = "FM5001"
	ErrCodeSQLTransaction    ErrorCode = "FM5002"
	ErrCodeSQLTimeout        ErrorCode = "FM5003"
	ErrCodeSQLObjectNotFound ErrorCode = "FM5004"
	ErrCodeNoResults         ErrorCode = "FM5005"

	// System errors (9xxx)
	ErrCodeInternal           ErrorCode = "FM9001"
	ErrCodeTimeout            ErrorCode = "FM9002"
	ErrCodeResourceExhausted  ErrorCode = "FM9003"
	ErrCodeServiceUnavailable ErrorCode = "FM9004"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // System failure, requires immediate attention
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed, but system continues
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"     // Informational, not an error
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Severity:    SeverityError,
		Context:     make(map[string]interface{}),
		Stack:       captureStack(),
		Timestamp:   time.Now(),
		Recoverable: false,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// If wrapping another AppError, inherit some properties
	if ae, ok := err.(*AppError); ok {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

// captureStack captures the current stack trace
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// ConnectionError creates a connection-related error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSeverity(SeverityError).
		WithSuggestions(
			"Check your network connection",
			"Verify Snowflake endpoint is accessible",
			"Check firewall settings",
		)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'flakemart setup' to reconfigure",
		)
}

// ThresholdError creates a fatal threshold configuration error. These stop
// the run before any row is processed.
func ThresholdError(field string, reason string) *AppError {
	return New(ErrCodeThresholdConfig, fmt.Sprintf("Invalid threshold %s: %s", field, reason)).
		WithContext("field", field).
		WithSeverity(SeverityCritical).
		WithSuggestions(
			fmt.Sprintf("Fix the '%s' value under segmentation.thresholds", field),
			"Run 'flakemart validate' to check the configuration",
		)
}

// SQLError creates an SQL execution error
func SQLError(message string, query string, cause error) *AppError {
	err := Wrap(cause, ErrCodeSQLExecution, message).
		WithContext("query", truncateString(query, 200))

	if cause != nil {
		errStr := cause.Error()
		if strings.Contains(errStr, "does not exist") || strings.Contains(errStr, "not found") {
			err.Code = ErrCodeSQLObjectNotFound
			_ = err.WithSuggestions(
				"Verify the table exists in the target database/schema",
				"Run 'flakemart run --ensure-schema' to create the tables",
			)
		} else if strings.Contains(errStr, "timeout") {
			err.Code = ErrCodeSQLTimeout
			_ = err.WithSuggestions(
				"Increase the snowflake.timeout setting",
				"Check Snowflake warehouse size",
			)
		}
	}

	return err
}

// ValidationError creates a recoverable per-record validation error
func ValidationError(field string, value interface{}, reason string) *AppError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("Validation failed for %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value).
		WithSeverity(SeverityWarning).
		AsRecoverable()
}

// OutOfOrderError creates the error returned when a snapshot's effective
// date precedes the entity's latest version. Blind insertion would corrupt
// the validity chain, so the batch rejects the snapshot and reports it.
func OutOfOrderError(entityID string, asOf, latestValidFrom time.Time) *AppError {
	return New(ErrCodeOutOfOrder,
		fmt.Sprintf("Snapshot for %s dated %s precedes current version dated %s",
			entityID, asOf.Format("2006-01-02"), latestValidFrom.Format("2006-01-02"))).
		WithContext("entity_id", entityID).
		WithContext("asof_date", asOf.Format("2006-01-02")).
		WithContext("latest_valid_from", latestValidFrom.Format("2006-01-02")).
		WithSuggestions(
			"Re-run with an asof date at or after the entity's latest version",
			"Rebuild the entity's history from source if a backfill is required",
		)
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
