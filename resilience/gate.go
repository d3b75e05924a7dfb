package resilience

import (
	"context"
	"sync"
)

// gates holds the process-wide CircuitBreaker instances WithResilience
// gates on, keyed by name. This registry is the only cross-invocation
// shared state resilience keeps: a given name's breaker persists its
// open/closed/half_open state across unrelated WithResilience calls,
// while retry state is local to each call.
var gates = NewBaseGateRegistry()

// BaseGateRegistry is a minimal thread-safe CircuitBreaker store, kept
// separate from the generic registry package since breaker lookup
// needs get-or-create rather than plain Register/Get semantics.
type BaseGateRegistry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewBaseGateRegistry builds an empty gate registry.
func NewBaseGateRegistry() *BaseGateRegistry {
	return &BaseGateRegistry{breakers: make(map[string]*CircuitBreaker)}
}

func (g *BaseGateRegistry) getOrCreate(name string, cfg CircuitConfig) *CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cb, ok := g.breakers[name]; ok {
		return cb
	}
	cb := NewCircuitBreaker(name, cfg)
	g.breakers[name] = cb
	return cb
}

// WithResilience wraps fn with a circuit breaker gated on name (when
// cbCfg is non-nil), then with retry (when retryCfg is non-nil), and
// runs the composed call. A name's breaker is created once and reused
// across every WithResilience call sharing that name, so breaker trips
// accumulate across invocations the way a named gate is meant to.
func WithResilience(ctx context.Context, name string, fn func(ctx context.Context) error, retryCfg *RetryConfig, cbCfg *CircuitConfig) error {
	wrapped := fn

	if cbCfg != nil {
		cb := gates.getOrCreate(name, *cbCfg)
		inner := wrapped
		wrapped = func(ctx context.Context) error {
			return cb.Do(func() error { return inner(ctx) })
		}
	}

	if retryCfg != nil {
		r := NewRetryer(*retryCfg)
		inner := wrapped
		wrapped = func(ctx context.Context) error {
			return r.Do(ctx, name, func() error { return inner(ctx) })
		}
	}

	return wrapped(ctx)
}
