package errors

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeConnectionFailed, "connection failed")

	assert.Equal(t, ErrCodeConnectionFailed, err.Code)
	assert.Equal(t, "connection failed", err.Message)
	assert.Equal(t, SeverityError, err.Severity)
	assert.False(t, err.Recoverable)
	assert.NotEmpty(t, err.Stack)
	assert.Contains(t, err.Error(), "FM1001")
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("underlying failure")
	err := Wrap(cause, ErrCodeSQLExecution, "query failed")

	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "Caused by: underlying failure")

	assert.Nil(t, Wrap(nil, ErrCodeSQLExecution, "ignored"))
}

func TestWrap_InheritsContext(t *testing.T) {
	inner := New(ErrCodeSQLExecution, "query failed").WithContext("entity_id", "C001")
	outer := Wrap(inner, ErrCodeSQLTransaction, "batch failed")

	assert.Equal(t, "C001", outer.Context["entity_id"])
}

func TestIs_MatchesOnCode(t *testing.T) {
	a := New(ErrCodeOutOfOrder, "one message")
	b := New(ErrCodeOutOfOrder, "another message")
	c := New(ErrCodeInvariantBroken, "different code")

	assert.True(t, a.Is(b))
	assert.False(t, a.Is(c))
	assert.False(t, a.Is(fmt.Errorf("plain error")))
}

func TestRecoverable(t *testing.T) {
	err := New(ErrCodeConnectionFailed, "transient").AsRecoverable()
	assert.True(t, IsRecoverable(err))
	assert.False(t, IsRecoverable(fmt.Errorf("plain error")))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeThresholdConfig, GetErrorCode(ThresholdError("decline_pct", "must be negative")))
	assert.Equal(t, ErrCodeInternal, GetErrorCode(fmt.Errorf("plain error")))

	wrapped := fmt.Errorf("outer: %w", New(ErrCodeOutOfOrder, "inner"))
	assert.Equal(t, ErrCodeOutOfOrder, GetErrorCode(wrapped))
}

func TestThresholdError(t *testing.T) {
	err := ThresholdError("churn_spend_floor_pct", "must be within (0,1)")

	assert.Equal(t, SeverityCritical, err.Severity)
	assert.Equal(t, "churn_spend_floor_pct", err.Context["field"])
	assert.NotEmpty(t, err.Suggestions)
}

func TestOutOfOrderError(t *testing.T) {
	asOf := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	latest := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	err := OutOfOrderError("C001", asOf, latest)

	assert.Equal(t, ErrCodeOutOfOrder, err.Code)
	assert.Contains(t, err.Message, "2024-02-01")
	assert.Contains(t, err.Message, "2024-03-01")
	assert.Equal(t, "C001", err.Context["entity_id"])
}

func TestSQLError_ClassifiesCause(t *testing.T) {
	notFound := SQLError("load failed", "SELECT 1", fmt.Errorf("object does not exist"))
	assert.Equal(t, ErrCodeSQLObjectNotFound, notFound.Code)

	timeout := SQLError("load failed", "SELECT 1", fmt.Errorf("statement timeout"))
	assert.Equal(t, ErrCodeSQLTimeout, timeout.Code)

	generic := SQLError("load failed", "SELECT 1", fmt.Errorf("syntax error"))
	assert.Equal(t, ErrCodeSQLExecution, generic.Code)
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	config := &RetryConfig{
		MaxRetries:     3,
		InitialDelay:   time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		Multiplier:     2.0,
		RetryableError: IsRecoverable,
	}

	attempts := 0
	err := Retry(context.Background(), config, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return New(ErrCodeConnectionTimeout, "transient").AsRecoverable()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	config := DefaultRetryConfig()
	config.InitialDelay = time.Millisecond

	attempts := 0
	err := Retry(context.Background(), config, func(ctx context.Context) error {
		attempts++
		return New(ErrCodeConfigInvalid, "permanent")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_ExhaustsRetries(t *testing.T) {
	config := &RetryConfig{
		MaxRetries:     2,
		InitialDelay:   time.Millisecond,
		MaxDelay:       2 * time.Millisecond,
		Multiplier:     1.0,
		RetryableError: func(error) bool { return true },
	}

	attempts := 0
	err := Retry(context.Background(), config, func(ctx context.Context) error {
		attempts++
		return New(ErrCodeServiceUnavailable, "down")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, ErrCodeResourceExhausted, GetErrorCode(err))
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	config := &RetryConfig{
		MaxRetries:     5,
		InitialDelay:   time.Second,
		MaxDelay:       time.Second,
		Multiplier:     1.0,
		RetryableError: func(error) bool { return true },
	}

	err := Retry(ctx, config, func(ctx context.Context) error {
		return New(ErrCodeServiceUnavailable, "down")
	})

	assert.ErrorIs(t, err, context.Canceled)
}
