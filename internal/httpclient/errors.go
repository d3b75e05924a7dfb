// Package httpclient holds small HTTP transport helpers shared by
// wire-compatible llm.Client implementations.
package httpclient

import (
	"fmt"
	"net/http"
	"time"
)

// RetryableError represents an HTTP response that a resilience.Retryer
// should treat as transient.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("HTTP %d: %s (retry after %v)", e.StatusCode, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

func (e *RetryableError) IsRetryable() bool {
	return true
}

// RateLimitInfo captures the rate-limit headers a provider returned
// alongside a response.
type RateLimitInfo struct {
	RetryAfter        time.Duration
	ResetTime         int64
	RequestsRemaining int64
	TokensRemaining   int64
}

// ParseOpenAIRateLimitHeaders extracts OpenAI-wire-compatible rate
// limit information from an HTTP response.
func ParseOpenAIRateLimitHeaders(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{}

	if retryAfter := headers.Get("Retry-After"); retryAfter != "" {
		if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
			info.RetryAfter = seconds
		}
	}

	if resetStr := headers.Get("x-ratelimit-reset-requests"); resetStr != "" {
		fmt.Sscanf(resetStr, "%d", &info.ResetTime)
	}
	if remaining := headers.Get("x-ratelimit-remaining-requests"); remaining != "" {
		fmt.Sscanf(remaining, "%d", &info.RequestsRemaining)
	}
	if remaining := headers.Get("x-ratelimit-remaining-tokens"); remaining != "" {
		fmt.Sscanf(remaining, "%d", &info.TokensRemaining)
	}

	return info
}
