package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashbourne/agentloop/metrics"
)

// CircuitState is one of the three states a CircuitBreaker can be in.
type CircuitState string

const (
	StateClosed   CircuitState = "closed"
	StateOpen     CircuitState = "open"
	StateHalfOpen CircuitState = "half_open"
)

// halfOpenSuccessesToClose is the number of consecutive successes a
// half-open breaker needs before it closes again.
const halfOpenSuccessesToClose = 3

// ErrCircuitOpen is returned by Allow (and by Do) when the breaker is
// open and not yet eligible to probe.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

// CircuitConfig configures a CircuitBreaker.
type CircuitConfig struct {
	// FailureThreshold is the failure count, while closed, that trips
	// the breaker open (default: 5). Each success while closed lowers
	// the count by one, with a floor of zero.
	FailureThreshold int

	// RecoveryTimeout is how long after the last failure the breaker
	// stays open before the next call moves it to half_open (default: 30s).
	RecoveryTimeout time.Duration

	// Metrics, when set, is notified of every state transition.
	// Defaults to metrics.NoOp{}.
	Metrics metrics.Recorder
}

func (c *CircuitConfig) setDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = 30 * time.Second
	}
	if c.Metrics == nil {
		c.Metrics = metrics.NoOp{}
	}
}

// CircuitBreaker implements the closed/open/half_open state machine:
// failures while closed (each success cancelling one) trip it open;
// after the recovery timeout elapses the next call moves it to
// half_open, where calls are admitted with no limit on how many run
// at once; three consecutive half-open successes close it, while any
// half-open failure reopens it immediately.
type CircuitBreaker struct {
	name   string
	config CircuitConfig

	state           atomic.Value // CircuitState
	failures        atomic.Int64
	halfOpenSuccess atomic.Int64
	lastFailureTime atomic.Value // time.Time
	mu              sync.Mutex   // serializes state transitions
}

// NewCircuitBreaker builds a named CircuitBreaker, filling in zero
// fields from defaults.
func NewCircuitBreaker(name string, cfg CircuitConfig) *CircuitBreaker {
	cfg.setDefaults()
	cb := &CircuitBreaker{name: name, config: cfg}
	cb.state.Store(StateClosed)
	cb.lastFailureTime.Store(time.Time{})
	return cb
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() CircuitState {
	return cb.state.Load().(CircuitState)
}

// Allow reports whether a call may proceed, transitioning an open
// breaker to half_open if the recovery timeout has elapsed.
func (cb *CircuitBreaker) Allow() bool {
	switch cb.State() {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		cb.mu.Lock()
		defer cb.mu.Unlock()
		if cb.State() != StateOpen {
			// Another goroutine already transitioned us out of open.
			return true
		}
		last := cb.lastFailureTime.Load().(time.Time)
		if time.Since(last) >= cb.config.RecoveryTimeout {
			cb.state.Store(StateHalfOpen)
			cb.halfOpenSuccess.Store(0)
			cb.config.Metrics.CircuitStateChange(cb.name, string(StateHalfOpen))
			slog.Info("resilience: circuit breaker probing", "name", cb.name)
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess reports a successful call. In half_open, three
// consecutive successes close the breaker; in closed, it decrements
// the failure count with a floor of zero.
func (cb *CircuitBreaker) RecordSuccess() {
	switch cb.State() {
	case StateHalfOpen:
		n := cb.halfOpenSuccess.Add(1)
		if n >= halfOpenSuccessesToClose {
			cb.mu.Lock()
			cb.state.Store(StateClosed)
			cb.failures.Store(0)
			cb.halfOpenSuccess.Store(0)
			cb.mu.Unlock()
			cb.config.Metrics.CircuitStateChange(cb.name, string(StateClosed))
			slog.Info("resilience: circuit breaker closed", "name", cb.name)
		}
	case StateClosed:
		for {
			cur := cb.failures.Load()
			if cur <= 0 {
				return
			}
			if cb.failures.CompareAndSwap(cur, cur-1) {
				return
			}
		}
	}
}

// RecordFailure reports a failed call. In half_open, it reopens the
// breaker immediately; in closed, it trips the breaker open once the
// failure count (net of RecordSuccess decrements) reaches FailureThreshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.lastFailureTime.Store(time.Now())

	switch cb.State() {
	case StateHalfOpen:
		cb.mu.Lock()
		cb.state.Store(StateOpen)
		cb.halfOpenSuccess.Store(0)
		cb.mu.Unlock()
		cb.config.Metrics.CircuitStateChange(cb.name, string(StateOpen))
		slog.Warn("resilience: circuit breaker reopened", "name", cb.name)
	case StateClosed:
		n := cb.failures.Add(1)
		if n >= int64(cb.config.FailureThreshold) {
			cb.mu.Lock()
			cb.state.Store(StateOpen)
			cb.mu.Unlock()
			cb.config.Metrics.CircuitStateChange(cb.name, string(StateOpen))
			slog.Warn("resilience: circuit breaker opened", "name", cb.name, "failures", n)
		}
	}
}

// Reset forces the breaker back to closed, clearing counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state.Store(StateClosed)
	cb.failures.Store(0)
	cb.halfOpenSuccess.Store(0)
}

// Do runs fn if the breaker allows it, recording the outcome.
func (cb *CircuitBreaker) Do(fn func() error) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}
	err := fn()
	if err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}
