package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ashbourne/agentloop/llm"
	"github.com/ashbourne/agentloop/plan"
	"github.com/ashbourne/agentloop/tool"
	"github.com/ashbourne/agentloop/trajectory"
)

const plannerSystemPrompt = `You are a planning agent. Given an objective:
1. Analyze the objective.
2. Build a plan and add tasks to it, atomically, through the planner_tool.
3. Once the plan fully covers the objective, call complete_task to finish.
Never perform the work described by the tasks yourself.`

// thinkingToolNames are the names a PlannerAgent accepts as its
// sequential-thinking tool. At least one must be present in the
// configured tool set, alongside planner_tool.
var thinkingToolNames = []string{"sequential_thinking", "think"}

// PlannerAgent is a BaseAgent whose tool set is restricted to
// planning: a planner_tool, a thinking tool, and complete_task.
type PlannerAgent struct {
	base        *BaseAgent
	plannerTool *plan.Tool
}

// PlannerAgentConfig configures a PlannerAgent. Tools must contain a
// planner_tool and at least one recognized thinking tool; construction
// fails otherwise.
type PlannerAgentConfig struct {
	ID       string
	MaxSteps int // default 12, per the Hybrid Agent's planning-phase budget
	LLM      llm.Client
	Tools    *tool.Registry
	Planner  *plan.Tool
}

// NewPlannerAgent validates cfg and builds a PlannerAgent.
func NewPlannerAgent(cfg PlannerAgentConfig) (*PlannerAgent, error) {
	if cfg.Planner == nil {
		return nil, fmt.Errorf("agent: planner agent requires a planner_tool")
	}
	if cfg.Tools == nil {
		return nil, fmt.Errorf("agent: planner agent requires a tool registry")
	}
	hasThinking := false
	for _, name := range thinkingToolNames {
		if _, err := cfg.Tools.Get(name); err == nil {
			hasThinking = true
			break
		}
	}
	if !hasThinking {
		return nil, fmt.Errorf("agent: planner agent requires a sequential-thinking tool")
	}
	if _, err := cfg.Tools.Get(cfg.Planner.Name()); err != nil {
		return nil, fmt.Errorf("agent: planner_tool must be registered in the tool set: %w", err)
	}

	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 12
	}

	base, err := NewBaseAgent(BaseAgentConfig{
		ID:           cfg.ID,
		SystemPrompt: plannerSystemPrompt,
		MaxSteps:     cfg.MaxSteps,
		LLM:          cfg.LLM,
		Tools:        cfg.Tools,
	})
	if err != nil {
		return nil, err
	}

	return &PlannerAgent{base: base, plannerTool: cfg.Planner}, nil
}

// Stop interrupts the embedded loop.
func (p *PlannerAgent) Stop(ctx context.Context, reason string) {
	p.base.Stop(ctx, reason)
}

// Run executes the planning loop and extracts the resulting
// plan.ExecutionPlan from the trajectory: the first planner_tool
// result carrying a plan seeds it, and subsequent task/tasks payloads
// are merged in (the plan.Tool itself already performs this merge as
// it mutates its single in-memory plan, so Run's extraction is simply
// reading that final state back out).
func (p *PlannerAgent) Run(ctx context.Context, objective string) (*plan.ExecutionPlan, *trajectory.Trajectory, error) {
	traj, err := p.base.Run(ctx, objective)
	if err != nil {
		return nil, traj, err
	}

	if !hasPlannerToolCall(traj) {
		return nil, traj, fmt.Errorf("agent: planner produced no plan")
	}

	current := p.plannerTool.CurrentPlan()
	if current == nil {
		return nil, traj, fmt.Errorf("agent: planner produced no plan")
	}
	return current, traj, nil
}

func hasPlannerToolCall(traj *trajectory.Trajectory) bool {
	for _, step := range traj.Steps {
		for _, r := range step.ToolResults {
			if r.ToolName == "planner_tool" && r.Success {
				var probe struct {
					Plan json.RawMessage `json:"plan"`
				}
				if json.Unmarshal([]byte(r.Content), &probe) == nil && len(probe.Plan) > 0 {
					return true
				}
			}
		}
	}
	return false
}
