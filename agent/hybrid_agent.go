package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ashbourne/agentloop/hook"
	"github.com/ashbourne/agentloop/interrupt"
	"github.com/ashbourne/agentloop/llm"
	"github.com/ashbourne/agentloop/metrics"
	"github.com/ashbourne/agentloop/plan"
	"github.com/ashbourne/agentloop/resilience"
	"github.com/ashbourne/agentloop/tool"
	"github.com/ashbourne/agentloop/trajectory"
	"github.com/google/uuid"
)

// plannerMaxSteps bounds the planning phase, independent of the
// execution phase's per-task budget.
const plannerMaxSteps = 12

// executionMaxStepsPerTask caps each task's Base Agent run.
const executionMaxStepsPerTask = 8

// taskInterval is the pause between consecutive task executions.
const taskInterval = 200 * time.Millisecond

// HybridAgentConfig configures a HybridAgent.
type HybridAgentConfig struct {
	ID  string
	LLM llm.Client

	// Tools, when set, is a single combined tool set that NewHybridAgent
	// partitions automatically (see classifyTools): planner_tool and any
	// thinking tool go to the planning phase only, everything else goes
	// to the execution phase, and the default terminal tools
	// (complete_task, task_done) go to both. Mutually exclusive with
	// PlanningTools/ExecutionTools.
	Tools *tool.Registry

	// PlanningTools and ExecutionTools let a caller hand in pre-split
	// registries instead of a combined Tools set. PlanningTools must
	// include planner_tool and a thinking tool.
	PlanningTools  *tool.Registry
	ExecutionTools *tool.Registry

	Planner          *plan.Tool
	WorkingDirectory string
	ContinueOnError  bool
	MaxStepsPerTask  int // default executionMaxStepsPerTask, clamped to it as a ceiling

	Hooks      *hook.Manager
	Interrupts *interrupt.Manager
	Retry      *resilience.Retryer
	Metrics    metrics.Recorder
	Recorder   *trajectory.Recorder
}

// HybridAgent runs a Planner Agent to produce an ExecutionPlan, then
// drives a Base Agent once per task in plan order.
type HybridAgent struct {
	id               string
	planner          *PlannerAgent
	llmClient        llm.Client
	executionTools   *tool.Registry
	workingDirectory string
	continueOnError  bool
	maxStepsPerTask  int

	hooks      *hook.Manager
	interrupts *interrupt.Manager
	retry      *resilience.Retryer
	metrics    metrics.Recorder
	recorder   *trajectory.Recorder
}

// NewHybridAgent validates cfg and builds a HybridAgent. Construction
// fails if the planning tool set does not satisfy PlannerAgent's
// requirements (planner_tool plus a thinking tool).
func NewHybridAgent(cfg HybridAgentConfig) (*HybridAgent, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("agent: LLM client is required")
	}
	if cfg.Tools != nil {
		if cfg.PlanningTools != nil || cfg.ExecutionTools != nil {
			return nil, fmt.Errorf("agent: Tools is mutually exclusive with PlanningTools/ExecutionTools")
		}
		if cfg.Planner == nil {
			return nil, fmt.Errorf("agent: Tools requires Planner to identify the planner_tool by name")
		}
		planning, execution, err := classifyTools(cfg.Tools, cfg.Planner.Name())
		if err != nil {
			return nil, fmt.Errorf("agent: classify tools: %w", err)
		}
		cfg.PlanningTools = planning
		cfg.ExecutionTools = execution
	}
	if cfg.ExecutionTools == nil {
		return nil, fmt.Errorf("agent: execution tool registry is required")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Hooks == nil {
		cfg.Hooks = hook.NewManager()
	}
	if cfg.Interrupts == nil {
		cfg.Interrupts = interrupt.NewManager()
	}
	if cfg.Retry == nil {
		cfg.Retry = resilience.NewRetryer(resilience.DefaultRetryConfig())
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NoOp{}
	}
	if cfg.MaxStepsPerTask <= 0 || cfg.MaxStepsPerTask > executionMaxStepsPerTask {
		cfg.MaxStepsPerTask = executionMaxStepsPerTask
	}

	planner, err := NewPlannerAgent(PlannerAgentConfig{
		ID:       cfg.ID + "-planner",
		MaxSteps: plannerMaxSteps,
		LLM:      cfg.LLM,
		Tools:    cfg.PlanningTools,
		Planner:  cfg.Planner,
	})
	if err != nil {
		return nil, fmt.Errorf("agent: hybrid agent planning phase misconfigured: %w", err)
	}

	return &HybridAgent{
		id:               cfg.ID,
		planner:          planner,
		llmClient:        cfg.LLM,
		executionTools:   cfg.ExecutionTools,
		workingDirectory: cfg.WorkingDirectory,
		continueOnError:  cfg.ContinueOnError,
		maxStepsPerTask:  cfg.MaxStepsPerTask,
		hooks:            cfg.Hooks,
		interrupts:       cfg.Interrupts,
		retry:            cfg.Retry,
		metrics:          cfg.Metrics,
		recorder:         cfg.Recorder,
	}, nil
}

// Stop interrupts both the embedded planner and this agent's own
// execution-phase loop.
func (h *HybridAgent) Stop(ctx context.Context, reason string) {
	h.planner.Stop(ctx, reason)
	h.interrupts.Interrupt(ctx, reason)
}

// Run drives the planning phase followed by the execution phase,
// returning a single trajectory covering both.
func (h *HybridAgent) Run(ctx context.Context, objective string) (*trajectory.Trajectory, error) {
	traj := trajectory.New(h.id, objective)

	h.hooks.Execute(ctx, hook.PreReply, hook.Context{AgentID: h.id, Extra: map[string]any{"phase": "planning"}})
	executionPlan, planTraj, err := h.planner.Run(ctx, objective)
	if err != nil {
		traj.Finish(false, fmt.Sprintf("planning phase failed: %v", err))
		return traj, err
	}
	for _, step := range planTraj.Steps {
		if step.Annotations == nil {
			step.Annotations = map[string]any{}
		}
		step.Annotations["phase"] = "planning"
		traj.Append(step)
	}
	h.hooks.Execute(ctx, hook.PostReply, hook.Context{AgentID: h.id, Extra: map[string]any{"phase": "planning"}})

	if executionPlan == nil || len(executionPlan.Tasks) == 0 {
		traj.Finish(false, "planning phase produced no tasks")
		return traj, fmt.Errorf("agent: planning phase produced no tasks")
	}

	h.hooks.Execute(ctx, hook.PreActing, hook.Context{AgentID: h.id, Extra: map[string]any{"phase": "executing"}})

	var lastResult string
	overallSuccess := true

	for i, task := range executionPlan.Tasks {
		if err := h.interrupts.CheckInterrupted(); err != nil {
			traj.Finish(false, err.Error())
			return traj, nil
		}

		prompt := taskPrompt(task, executionPlan, h.workingDirectory)

		taskAgent, err := NewBaseAgent(BaseAgentConfig{
			ID:         fmt.Sprintf("%s-task-%d", h.id, i),
			MaxSteps:   h.maxStepsPerTask,
			LLM:        h.llmClient,
			Tools:      h.executionTools,
			Hooks:      h.hooks,
			Interrupts: h.interrupts,
			Retry:      h.retry,
			Metrics:    h.metrics,
		})
		if err != nil {
			return traj, fmt.Errorf("agent: hybrid agent failed to build execution agent for task %q: %w", task.ID, err)
		}

		taskTraj, err := taskAgent.Run(ctx, prompt)

		success := err == nil && taskTraj != nil && taskTraj.Success
		result := ""
		if taskTraj != nil {
			result = taskTraj.FinalResult
			for _, step := range taskTraj.Steps {
				if step.Annotations == nil {
					step.Annotations = map[string]any{}
				}
				step.Annotations["phase"] = "executing"
				step.Annotations["task_id"] = task.ID
				step.Annotations["task_index"] = i
				traj.Append(step)
			}
		}
		if err != nil {
			result = err.Error()
		}
		lastResult = result

		h.metrics.TrajectoryStep(h.id)

		if !success {
			overallSuccess = false
			if !h.continueOnError {
				traj.Finish(false, fmt.Sprintf("task %q failed: %s", task.Title, result))
				h.hooks.Execute(ctx, hook.PostActing, hook.Context{AgentID: h.id, Extra: map[string]any{"phase": "executing"}})
				return traj, nil
			}
		}

		if i < len(executionPlan.Tasks)-1 {
			select {
			case <-ctx.Done():
				traj.Finish(false, ctx.Err().Error())
				return traj, nil
			case <-time.After(taskInterval):
			}
		}

		if h.recorder != nil {
			h.recorder.ScheduleFlush()
		}
	}

	h.hooks.Execute(ctx, hook.PostActing, hook.Context{AgentID: h.id, Extra: map[string]any{"phase": "executing"}})

	traj.Finish(overallSuccess, lastResult)
	if h.recorder != nil {
		_ = h.recorder.Flush()
	}
	return traj, nil
}

func normalizeToolName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

// classifyTools partitions a combined tool set into a planning
// registry (the planner_tool plus any thinking tool) and an execution
// registry (everything else), with the default terminal tools
// registered into both so each phase's Base Agent can signal it is
// done. Every tool in all ends up in exactly one of the two sets,
// except terminal tools which end up in both.
func classifyTools(all *tool.Registry, plannerName string) (planning, execution *tool.Registry, err error) {
	planning = tool.NewRegistry()
	execution = tool.NewRegistry()

	planningOnly := map[string]bool{normalizeToolName(plannerName): true}
	for _, name := range thinkingToolNames {
		planningOnly[normalizeToolName(name)] = true
	}
	terminal := map[string]bool{}
	for _, name := range defaultTerminalTools {
		terminal[normalizeToolName(name)] = true
	}

	for _, t := range all.List() {
		key := normalizeToolName(t.Name())
		switch {
		case planningOnly[key]:
			if err := planning.Register(t); err != nil {
				return nil, nil, err
			}
		case terminal[key]:
			if err := planning.Register(t); err != nil {
				return nil, nil, err
			}
			if err := execution.Register(t); err != nil {
				return nil, nil, err
			}
		default:
			if err := execution.Register(t); err != nil {
				return nil, nil, err
			}
		}
	}
	return planning, execution, nil
}

func taskPrompt(t plan.Task, p *plan.ExecutionPlan, workingDirectory string) string {
	prompt := fmt.Sprintf(
		"Task: %s\nDescription: %s\nPriority: %s\nEstimated duration: %d minutes\nPlan: %s\nPlan objective: %s\n",
		t.Title, t.Description, t.Priority, t.EstimatedDurationMinutes, p.Title, p.Objective,
	)
	if workingDirectory != "" {
		prompt += fmt.Sprintf("Working directory: %s\n", workingDirectory)
	}
	prompt += "Call a terminal tool with task_completed=true once this task is done."
	return prompt
}
