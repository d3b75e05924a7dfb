// Package hook provides a registry of named callbacks at well-known
// phases of the agent loop, with two execution modes: fan-out (every
// callback sees the same input, failures are isolated) and transform
// (a value threads through callbacks sequentially).
package hook

import (
	"context"
	"log/slog"
)

// Phase identifies one of the ten well-known points in the agent loop
// where hooks may run.
type Phase string

const (
	PreReply        Phase = "pre_reply"
	PostReply       Phase = "post_reply"
	PreReasoning    Phase = "pre_reasoning"
	PostReasoning   Phase = "post_reasoning"
	PreActing       Phase = "pre_acting"
	PostActing      Phase = "post_acting"
	PreObservation  Phase = "pre_observation"
	PostObservation Phase = "post_observation"
	PrePrint        Phase = "pre_print"
	PostPrint       Phase = "post_print"
)

// Context is the read-only envelope passed to every hook invocation.
type Context struct {
	AgentID    string
	Task       string
	StepNumber int
	MaxSteps   int
	Extra      map[string]any
}

// Handler is a registered callback. Implementing an interface (rather
// than storing a bare func value) gives registration and removal by
// name stable, unambiguous identity.
type Handler interface {
	Run(ctx context.Context, hc Context) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, hc Context) error

func (f HandlerFunc) Run(ctx context.Context, hc Context) error { return f(ctx, hc) }

// TransformHandler is a Handler variant used with ExecuteTransform: it
// receives and returns the threaded value, replacing it when it
// returns a non-nil value.
type TransformHandler interface {
	RunTransform(ctx context.Context, hc Context, value any) (any, error)
}

// TransformHandlerFunc adapts a plain function to TransformHandler.
type TransformHandlerFunc func(ctx context.Context, hc Context, value any) (any, error)

func (f TransformHandlerFunc) RunTransform(ctx context.Context, hc Context, value any) (any, error) {
	return f(ctx, hc, value)
}

type namedHandler struct {
	name    string
	handler Handler
}

type namedTransform struct {
	name    string
	handler TransformHandler
}

// Manager owns the per-phase callback registries.
type Manager struct {
	callbacks  map[Phase][]namedHandler
	transforms map[Phase][]namedTransform
}

// NewManager builds an empty Manager.
func NewManager() *Manager {
	return &Manager{
		callbacks:  make(map[Phase][]namedHandler),
		transforms: make(map[Phase][]namedTransform),
	}
}

// Register adds (or idempotently replaces) a named Handler for phase,
// preserving that name's original position on replacement.
func (m *Manager) Register(phase Phase, name string, h Handler) {
	list := m.callbacks[phase]
	for i, nh := range list {
		if nh.name == name {
			list[i].handler = h
			return
		}
	}
	m.callbacks[phase] = append(list, namedHandler{name: name, handler: h})
}

// RegisterTransform adds (or idempotently replaces) a named
// TransformHandler for phase.
func (m *Manager) RegisterTransform(phase Phase, name string, h TransformHandler) {
	list := m.transforms[phase]
	for i, nh := range list {
		if nh.name == name {
			list[i].handler = h
			return
		}
	}
	m.transforms[phase] = append(list, namedTransform{name: name, handler: h})
}

// Remove unregisters a named Handler from both registries for phase.
// It is a no-op if name is not registered.
func (m *Manager) Remove(phase Phase, name string) {
	list := m.callbacks[phase]
	for i, nh := range list {
		if nh.name == name {
			m.callbacks[phase] = append(list[:i], list[i+1:]...)
			break
		}
	}
	tlist := m.transforms[phase]
	for i, nh := range tlist {
		if nh.name == name {
			m.transforms[phase] = append(tlist[:i], tlist[i+1:]...)
			break
		}
	}
}

// Execute invokes every Handler registered for phase, in registration
// order, with an identical Context. A failing handler is logged and
// isolated; it does not prevent the remaining handlers from running
// and does not fail the call.
func (m *Manager) Execute(ctx context.Context, phase Phase, hc Context) {
	for _, nh := range m.callbacks[phase] {
		if err := nh.handler.Run(ctx, hc); err != nil {
			slog.Warn("hook: callback failed", "phase", phase, "name", nh.name, "error", err)
		}
	}
}

// ExecuteTransform threads value through every TransformHandler
// registered for phase, in registration order. A handler returning a
// non-nil value replaces the threaded value for the next handler; a
// handler returning an error stops the chain and the error is
// returned, without discarding the value accumulated so far.
func (m *Manager) ExecuteTransform(ctx context.Context, phase Phase, hc Context, value any) (any, error) {
	for _, nh := range m.transforms[phase] {
		next, err := nh.handler.RunTransform(ctx, hc, value)
		if err != nil {
			return value, err
		}
		if next != nil {
			value = next
		}
	}
	return value, nil
}
