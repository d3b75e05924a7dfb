package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryer_SucceedsWithoutRetry(t *testing.T) {
	r := NewRetryer(RetryConfig{})
	calls := 0
	err := r.Do(context.Background(), "op", func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryer_RetriesTransientThenSucceeds(t *testing.T) {
	r := NewRetryer(RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond})
	calls := 0
	err := r.Do(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryer_NonRetryableErrorReturnsImmediately(t *testing.T) {
	r := NewRetryer(RetryConfig{MaxRetries: 5, BaseDelay: time.Millisecond})
	calls := 0
	err := r.Do(context.Background(), "op", func() error {
		calls++
		return errors.New("invalid argument")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, IsRetryExhausted(err))
}

func TestRetryer_ExhaustionWrapsLastError(t *testing.T) {
	r := NewRetryer(RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond})
	calls := 0
	err := r.Do(context.Background(), "op", func() error {
		calls++
		return errors.New("timeout")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls) // initial + 2 retries
	assert.True(t, IsRetryExhausted(err))

	var retryErr *RetryError
	require.True(t, errors.As(err, &retryErr))
	assert.Equal(t, "op", retryErr.Operation)
	assert.Equal(t, 3, retryErr.Attempts)
}

func TestRetryer_ContextCancellationStopsRetrying(t *testing.T) {
	r := NewRetryer(RetryConfig{MaxRetries: 10, BaseDelay: 50 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	err := r.Do(ctx, "op", func() error {
		calls++
		return errors.New("timeout")
	})
	require.Error(t, err)
	assert.LessOrEqual(t, calls, 3)
}

func TestDoWithResult_ReturnsValueOnSuccess(t *testing.T) {
	r := NewRetryer(RetryConfig{})
	v, err := DoWithResult(context.Background(), r, "op", func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
