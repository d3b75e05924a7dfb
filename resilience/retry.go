// Package resilience provides retry-with-backoff, a circuit breaker,
// and small concurrency fan-out helpers used by agent and tool
// invocation paths.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/ashbourne/agentloop/metrics"
)

// RetryConfig configures a Retryer.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts after the
	// first try (default: 3).
	MaxRetries int

	// BaseDelay is the initial backoff delay (default: 1s).
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff delay (default: 30s).
	MaxDelay time.Duration

	// BackoffMultiplier is the exponential base applied per attempt:
	// delay = BaseDelay * BackoffMultiplier^attempt (default: 2).
	BackoffMultiplier float64

	// JitterFactor bounds the randomized, additive-only adjustment
	// applied to each computed delay, as a fraction of BaseDelay
	// (default: 0.1, i.e. up to 10% of the base delay).
	JitterFactor float64

	// RetryableErrors are case-insensitive substrings that mark an
	// error as transient. An error matching none of these is returned
	// immediately without retrying.
	RetryableErrors []string

	// Metrics, when set, is notified of every retry attempt. Defaults
	// to metrics.NoOp{}.
	Metrics metrics.Recorder
}

// DefaultRetryConfig returns the package's default retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2,
		JitterFactor:      0.1,
		RetryableErrors: []string{
			"connection refused",
			"connection reset",
			"timeout",
			"rate limit",
			"429",
			"500",
			"502",
			"503",
			"504",
			"temporarily unavailable",
			"too many requests",
			"econnrefused",
			"etimedout",
			"econnreset",
		},
	}
}

// Retryer runs an operation with exponential backoff and jitter.
type Retryer struct {
	config RetryConfig
}

// Config returns the Retryer's resolved configuration, letting a
// caller that built one Retryer (e.g. for LLM calls) reuse the same
// policy to compose a WithResilience call elsewhere (e.g. tool calls).
func (r *Retryer) Config() RetryConfig { return r.config }

// NewRetryer builds a Retryer, filling in any zero-valued fields from
// DefaultRetryConfig.
func NewRetryer(cfg RetryConfig) *Retryer {
	d := DefaultRetryConfig()
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = d.MaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = d.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = d.MaxDelay
	}
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = d.BackoffMultiplier
	}
	if cfg.JitterFactor <= 0 {
		cfg.JitterFactor = d.JitterFactor
	}
	if cfg.RetryableErrors == nil {
		cfg.RetryableErrors = d.RetryableErrors
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NoOp{}
	}
	return &Retryer{config: cfg}
}

// Do runs fn, retrying on transient failure until it succeeds, a
// non-retryable error is seen, retries are exhausted, or ctx is done.
func (r *Retryer) Do(ctx context.Context, operation string, fn func() error) error {
	_, err := DoWithResult(ctx, r, operation, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult runs fn, retrying as Do does, and returns fn's value on
// the attempt that finally succeeds.
func DoWithResult[T any](ctx context.Context, r *Retryer, operation string, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		var err error
		result, err = fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !r.isRetryable(err) {
			return result, err
		}

		if attempt >= r.config.MaxRetries {
			return result, &RetryError{
				Operation:   operation,
				Attempts:    attempt + 1,
				LastError:   err,
				IsExhausted: true,
			}
		}

		delay := r.calculateDelay(attempt)
		r.config.Metrics.RetryAttempt(operation, attempt+1)
		slog.Debug("resilience: retrying operation",
			"operation", operation,
			"attempt", attempt+1,
			"max_attempts", r.config.MaxRetries+1,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(delay):
		}
	}

	return result, lastErr
}

func (r *Retryer) isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var retryErr *RetryError
	if errors.As(err, &retryErr) && retryErr.IsExhausted {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, pattern := range r.config.RetryableErrors {
		if strings.Contains(errStr, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// calculateDelay computes the exponential backoff delay for attempt,
// caps it at MaxDelay, then adds a bounded, strictly additive jitter
// of up to JitterFactor of BaseDelay (never subtracted, so the floor
// stays the capped backoff value).
func (r *Retryer) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(r.config.BaseDelay) * math.Pow(r.config.BackoffMultiplier, float64(attempt)))
	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}
	jitter := time.Duration(rand.Float64() * float64(r.config.BaseDelay) * r.config.JitterFactor)
	return delay + jitter
}

// RetryError reports that an operation never succeeded within the
// configured retry budget.
type RetryError struct {
	Operation   string
	Attempts    int
	LastError   error
	IsExhausted bool
}

func (e *RetryError) Error() string {
	if e.IsExhausted {
		return fmt.Sprintf("%s failed after %d attempts: %v", e.Operation, e.Attempts, e.LastError)
	}
	return fmt.Sprintf("%s failed (attempt %d): %v", e.Operation, e.Attempts, e.LastError)
}

func (e *RetryError) Unwrap() error { return e.LastError }

// IsRetryExhausted reports whether err is a RetryError marking retry
// exhaustion.
func IsRetryExhausted(err error) bool {
	var retryErr *RetryError
	return errors.As(err, &retryErr) && retryErr.IsExhausted
}
