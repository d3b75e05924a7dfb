// Package agent implements the three agent shapes: BaseAgent (the
// ReAct loop), PlannerAgent (a restricted BaseAgent that populates a
// plan.ExecutionPlan), and HybridAgent (plan then execute).
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashbourne/agentloop/hook"
	"github.com/ashbourne/agentloop/interrupt"
	"github.com/ashbourne/agentloop/llm"
	"github.com/ashbourne/agentloop/metrics"
	"github.com/ashbourne/agentloop/resilience"
	"github.com/ashbourne/agentloop/tool"
	"github.com/ashbourne/agentloop/trajectory"
	"github.com/google/uuid"
)

// defaultTerminalTools are the tool names whose success, carrying a
// task_completed=true result, ends a loop successfully. Both are
// recognized; config pins which one a given deployment emits.
var defaultTerminalTools = []string{"complete_task", "task_done"}

const repetitionWindow = 3

// BaseAgentConfig configures a BaseAgent.
type BaseAgentConfig struct {
	ID                string
	SystemPrompt      string
	MaxSteps          int
	HistoryLimit      int
	TerminalToolNames []string // defaults to defaultTerminalTools

	LLM        llm.Client
	Tools      *tool.Registry
	Hooks      *hook.Manager // optional; a no-op manager is used if nil
	Interrupts *interrupt.Manager // optional; a fresh manager is used if nil
	Retry      *resilience.Retryer // optional; resilience.DefaultRetryConfig() is used if nil

	// Circuit gates the LLM reasoning call; tool dispatch is not gated
	// by it. Optional; a default CircuitConfig (threshold 5, 30s
	// recovery) is used if nil.
	Circuit *resilience.CircuitConfig

	Metrics  metrics.Recorder // optional; metrics.NoOp{} is used if nil
	Recorder *trajectory.Recorder // optional; no debounced flush happens if nil
}

// BaseAgent drives a single reason-act-observe loop against an
// llm.Client and a tool.Dispatcher.
type BaseAgent struct {
	id                string
	systemPrompt      string
	maxSteps          int
	historyLimit      int
	terminalToolNames []string

	llmClient  llm.Client
	dispatcher *tool.Dispatcher
	hooks      *hook.Manager
	interrupts *interrupt.Manager
	retryer    *resilience.Retryer
	circuit    *resilience.CircuitBreaker // gates the reasoning call
	metrics    metrics.Recorder
	recorder   *trajectory.Recorder
}

// NewBaseAgent validates cfg and builds a BaseAgent.
func NewBaseAgent(cfg BaseAgentConfig) (*BaseAgent, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("agent: LLM client is required")
	}
	if cfg.Tools == nil {
		return nil, fmt.Errorf("agent: tool registry is required")
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 30
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if len(cfg.TerminalToolNames) == 0 {
		cfg.TerminalToolNames = defaultTerminalTools
	}
	if cfg.Hooks == nil {
		cfg.Hooks = hook.NewManager()
	}
	if cfg.Interrupts == nil {
		cfg.Interrupts = interrupt.NewManager()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NoOp{}
	}
	if cfg.Retry == nil {
		cfg.Retry = resilience.NewRetryer(resilience.RetryConfig{Metrics: cfg.Metrics})
	}
	circuitCfg := resilience.CircuitConfig{}
	if cfg.Circuit != nil {
		circuitCfg = *cfg.Circuit
	}
	circuitCfg.Metrics = cfg.Metrics

	dispatcher := tool.NewDispatcher(cfg.Tools).WithRetry(cfg.Retry.Config())

	return &BaseAgent{
		id:                cfg.ID,
		systemPrompt:      cfg.SystemPrompt,
		maxSteps:          cfg.MaxSteps,
		historyLimit:      cfg.HistoryLimit,
		terminalToolNames: cfg.TerminalToolNames,
		llmClient:         cfg.LLM,
		dispatcher:        dispatcher,
		hooks:             cfg.Hooks,
		interrupts:        cfg.Interrupts,
		retryer:           cfg.Retry,
		circuit:           resilience.NewCircuitBreaker(cfg.ID+":llm", circuitCfg),
		metrics:           cfg.Metrics,
		recorder:          cfg.Recorder,
	}, nil
}

// Stop interrupts this agent's loop cooperatively.
func (a *BaseAgent) Stop(ctx context.Context, reason string) {
	a.interrupts.Interrupt(ctx, reason)
}

func (a *BaseAgent) hc(step int) hook.Context {
	return hook.Context{AgentID: a.id, StepNumber: step, MaxSteps: a.maxSteps}
}

// Run executes the full reason-act-observe loop for objective and
// returns the resulting trajectory. Run itself never returns a
// non-nil error for interruption or budget exhaustion: those are
// graceful, unsuccessful completions recorded on the trajectory.
func (a *BaseAgent) Run(ctx context.Context, objective string) (*trajectory.Trajectory, error) {
	hist := newHistory(a.historyLimit)
	if a.systemPrompt != "" {
		hist.Add(llm.Message{Role: llm.RoleSystem, Content: a.systemPrompt})
	}
	hist.Add(llm.Message{Role: llm.RoleUser, Content: objective})

	traj := trajectory.New(a.id, objective)

	a.hooks.Execute(ctx, hook.PreReply, a.hc(0))
	defer a.hooks.Execute(ctx, hook.PostReply, a.hc(0))
	defer a.dispatcher.CloseTools()
	defer func() {
		if a.recorder != nil {
			_ = a.recorder.Flush()
		}
	}()

	var recentToolSets []string

	for step := 1; step <= a.maxSteps; step++ {
		if err := a.interrupts.CheckInterrupted(); err != nil {
			traj.Finish(false, err.Error())
			return traj, nil
		}

		advisory := repetitionAdvisory(recentToolSets)
		if advisory != "" {
			hist.Add(llm.Message{Role: llm.RoleSystem, Content: advisory})
		}

		a.hooks.Execute(ctx, hook.PreReasoning, a.hc(step))
		var resp llm.Response
		err := a.circuit.Do(func() error {
			r, genErr := resilience.DoWithResult(ctx, a.retryer, "llm.generate", func() (llm.Response, error) {
				return a.llmClient.Generate(ctx, hist.Messages(), a.dispatcher.Registry().LLMDefinitions())
			})
			resp = r
			return genErr
		})
		a.hooks.Execute(ctx, hook.PostReasoning, a.hc(step))

		if err != nil {
			if errors.As(err, new(*interrupt.Interrupted)) {
				traj.Finish(false, err.Error())
				return traj, nil
			}
			traj.Finish(false, err.Error())
			return traj, err
		}

		if err := a.interrupts.CheckInterrupted(); err != nil {
			traj.Finish(false, err.Error())
			return traj, nil
		}

		if len(resp.ToolCalls) == 0 {
			s := trajectory.NewStep(objective)
			s.Content = resp.Content
			s.Completed = true
			s.Messages = hist.Messages()
			traj.Append(s)
			a.metrics.TrajectoryStep(a.id)
			traj.Finish(true, resp.Content)
			return traj, nil
		}

		a.hooks.Execute(ctx, hook.PreActing, a.hc(step))
		results := a.dispatcher.CallParallel(ctx, resp.ToolCalls)
		a.hooks.Execute(ctx, hook.PostActing, a.hc(step))

		a.hooks.Execute(ctx, hook.PreObservation, a.hc(step))

		recentToolSets = append(recentToolSets, toolSetKey(resp.ToolCalls))
		if len(recentToolSets) > repetitionWindow {
			recentToolSets = recentToolSets[len(recentToolSets)-repetitionWindow:]
		}

		terminal, terminalIdx := findTerminalResult(results, a.terminalToolNames)

		assistantMsg := llm.Message{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls}
		hist.Add(assistantMsg)
		for _, call := range resp.ToolCalls {
			r := matchResult(results, resp.ToolCalls, call)
			hist.Add(llm.Message{
				Role:       llm.RoleTool,
				Content:    toolMessageContent(r),
				ToolCallID: call.ID,
			})
		}

		s := trajectory.NewStep(objective)
		s.ToolCalls = resp.ToolCalls
		s.ToolResults = toStepResults(results, resp.ToolCalls)
		s.Messages = hist.Messages()
		s.Content = resp.Content

		if terminal {
			s.Completed = true
			traj.Append(s)
			a.metrics.TrajectoryStep(a.id)
			a.hooks.Execute(ctx, hook.PostObservation, a.hc(step))
			traj.Finish(true, results[terminalIdx].Content)
			return traj, nil
		}

		traj.Append(s)
		a.metrics.TrajectoryStep(a.id)
		a.hooks.Execute(ctx, hook.PostObservation, a.hc(step))

		if a.recorder != nil {
			a.recorder.ScheduleFlush()
		}
	}

	traj.Finish(false, "step budget exhausted")
	slog.Warn("agent: step budget exhausted", "agent_id", a.id, "max_steps", a.maxSteps)
	return traj, nil
}

func toolSetKey(calls []llm.ToolCall) string {
	if len(calls) != 1 {
		return ""
	}
	return calls[0].Name
}

// repetitionAdvisory returns an informational system message when the
// same single-tool set has repeated for the full window, or "" otherwise.
func repetitionAdvisory(recent []string) string {
	if len(recent) < repetitionWindow {
		return ""
	}
	first := recent[0]
	if first == "" {
		return ""
	}
	for _, k := range recent[1:] {
		if k != first {
			return ""
		}
	}
	return fmt.Sprintf("advisory: the %q tool has been called alone for %d consecutive steps; consider a different approach.", first, repetitionWindow)
}

func matchResult(results []tool.Result, calls []llm.ToolCall, call llm.ToolCall) tool.Result {
	for _, r := range results {
		if r.ToolCallID == call.ID {
			return r
		}
	}
	// Degraded fallback for results that don't carry their originating
	// tool_call_id (e.g. a Tool implementation hand-constructed outside
	// Dispatcher.Call): fall back to positional matching.
	for i, c := range calls {
		if c.ID == call.ID && i < len(results) {
			slog.Warn("agent: tool_call_id unmatched by result, using positional fallback", "tool_call_id", call.ID)
			return results[i]
		}
	}
	if len(results) > 0 {
		slog.Warn("agent: tool_call_id unmatched, using degraded fallback", "tool_call_id", call.ID)
		return results[0]
	}
	return tool.Result{Success: false, Error: "no result"}
}

func toStepResults(results []tool.Result, calls []llm.ToolCall) []trajectory.StepResult {
	out := make([]trajectory.StepResult, 0, len(results))
	for i, r := range results {
		id := ""
		if i < len(calls) {
			id = calls[i].ID
		}
		out = append(out, trajectory.StepResult{
			ToolCallID: id,
			ToolName:   r.ToolName,
			Success:    r.Success,
			Content:    r.Content,
			Error:      r.Error,
		})
	}
	return out
}

func toolMessageContent(r tool.Result) string {
	if r.Success {
		return r.Content
	}
	return "error: " + r.Error
}

// findTerminalResult reports whether any result is a successful call
// to one of terminalNames whose structured content carries
// task_completed=true.
func findTerminalResult(results []tool.Result, terminalNames []string) (bool, int) {
	for i, r := range results {
		if !r.Success {
			continue
		}
		if !matchesAny(r.ToolName, terminalNames) {
			continue
		}
		var payload struct {
			TaskCompleted bool `json:"task_completed"`
		}
		if err := json.Unmarshal([]byte(r.Content), &payload); err != nil {
			continue
		}
		if payload.TaskCompleted {
			return true, i
		}
	}
	return false, -1
}

func matchesAny(name string, names []string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(name, "_", ""))
	for _, n := range names {
		if strings.ToLower(strings.ReplaceAll(n, "_", "")) == normalized {
			return true
		}
	}
	return false
}
