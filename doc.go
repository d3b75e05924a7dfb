// Package agentloop is a Go runtime for LLM agents built around the
// reason-act-observe loop.
//
// A BaseAgent (package agent) drives the loop directly against an
// llm.Client and a tool.Dispatcher. A PlannerAgent decomposes a goal
// into a plan.ExecutionPlan using a restricted tool set, and a
// HybridAgent composes the two: plan first, then execute each task
// with a BaseAgent.
//
// Cross-cutting concerns live in their own packages so any of the
// three agent shapes can opt into them: hook (lifecycle callbacks),
// state (shared mutable cells with history), interrupt (cooperative
// cancellation), resilience (retry and circuit breaking), and
// trajectory (step-by-step execution recording).
package agentloop
