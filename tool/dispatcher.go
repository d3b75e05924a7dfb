package tool

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashbourne/agentloop/llm"
	"github.com/ashbourne/agentloop/resilience"
	"golang.org/x/sync/errgroup"
)

func logCloseError(name string, err error) {
	slog.Warn("tool: close failed", "tool", name, "error", err)
}

// Dispatcher executes tool calls requested by a model against a
// Registry, producing one Result per call.
type Dispatcher struct {
	registry   *Registry
	retryCfg   *resilience.RetryConfig
	circuitCfg *resilience.CircuitConfig
}

// NewDispatcher wraps a Registry for call dispatch. By default a call
// is attempted exactly once; use WithRetry and WithCircuit to opt each
// call into retry-on-connection-fault and per-tool circuit gating.
func NewDispatcher(r *Registry) *Dispatcher {
	return &Dispatcher{registry: r}
}

// WithRetry returns a copy of d whose Call wraps each tool execution in
// retry for connection-class faults, so several underlying attempts
// can still collapse into the single Result (and single trajectory
// step) the caller sees.
func (d *Dispatcher) WithRetry(cfg resilience.RetryConfig) *Dispatcher {
	nd := *d
	nd.retryCfg = &cfg
	return &nd
}

// WithCircuit returns a copy of d whose Call gates each tool, by name,
// through its own circuit breaker.
func (d *Dispatcher) WithCircuit(cfg resilience.CircuitConfig) *Dispatcher {
	nd := *d
	nd.circuitCfg = &cfg
	return &nd
}

// Registry returns the Dispatcher's backing Registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// CloseTools invokes Close on every registered tool that implements an
// optional io.Closer-shaped Close() error method, swallowing individual
// errors (but logging them) so one misbehaving tool cannot block
// cleanup of the rest.
func (d *Dispatcher) CloseTools() {
	for _, t := range d.registry.List() {
		if closer, ok := t.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logCloseError(t.Name(), err)
			}
		}
	}
}

// Call executes a single tool call, timing the execution and
// translating a lookup failure or tool error into a failed Result
// rather than propagating it, so a caller iterating over several
// calls can keep going past one bad one. When d was built with
// WithRetry/WithCircuit, the underlying attempt(s) happen here,
// transparently to the caller.
func (d *Dispatcher) Call(ctx context.Context, call llm.ToolCall) Result {
	start := time.Now()

	t, err := d.registry.Get(call.Name)
	if err != nil {
		return Result{
			Success:       false,
			Error:         err.Error(),
			ToolName:      call.Name,
			ToolCallID:    call.ID,
			ExecutionTime: time.Since(start),
		}
	}

	var result Result
	execute := func(ctx context.Context) error {
		r, e := t.Execute(ctx, []byte(call.Arguments))
		result = r
		return e
	}

	var execErr error
	if d.retryCfg != nil || d.circuitCfg != nil {
		execErr = resilience.WithResilience(ctx, "tool."+t.Name(), execute, d.retryCfg, d.circuitCfg)
	} else {
		execErr = execute(ctx)
	}

	result.ToolName = t.Name()
	result.ToolCallID = call.ID
	result.ExecutionTime = time.Since(start)
	if execErr != nil {
		result.Success = false
		result.Error = execErr.Error()
	}
	return result
}

// CallSequential executes each call in order, stopping early if ctx is
// cancelled. Use this when a later call reads an earlier one's output.
func (d *Dispatcher) CallSequential(ctx context.Context, calls []llm.ToolCall) []Result {
	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		select {
		case <-ctx.Done():
			return results
		default:
		}
		results = append(results, d.Call(ctx, call))
	}
	return results
}

// CallParallel executes independent calls concurrently, preserving the
// input order in the returned slice. Use only when the caller knows
// the calls have no data dependency on one another.
func (d *Dispatcher) CallParallel(ctx context.Context, calls []llm.ToolCall) []Result {
	results := make([]Result, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			results[i] = d.Call(gctx, call)
			return nil
		})
	}
	_ = g.Wait() // Call never returns an error; failures are encoded in Result.
	return results
}
