package agent_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ashbourne/agentloop/agent"
	"github.com/ashbourne/agentloop/llm"
	"github.com/ashbourne/agentloop/plan"
	"github.com/ashbourne/agentloop/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type thinkTool struct{}

func (thinkTool) Name() string        { return "sequential_thinking" }
func (thinkTool) Description() string { return "thinks step by step" }
func (thinkTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	return tool.Result{Success: true, Content: "thought"}, nil
}

func planningRegistry(t *testing.T) (*tool.Registry, *plan.Tool) {
	t.Helper()
	r := tool.NewRegistry()
	pt := plan.NewTool()
	require.NoError(t, r.Register(pt))
	require.NoError(t, r.Register(thinkTool{}))
	require.NoError(t, r.Register(completeTaskTool{}))
	return r, pt
}

func toolCallArgs(t *testing.T, v map[string]any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestNewPlannerAgent_RequiresPlannerTool(t *testing.T) {
	r := tool.NewRegistry()
	require.NoError(t, r.Register(thinkTool{}))

	_, err := agent.NewPlannerAgent(agent.PlannerAgentConfig{
		LLM:     &scriptedClient{},
		Tools:   r,
		Planner: plan.NewTool(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "planner_tool must be registered")
}

func TestNewPlannerAgent_RequiresThinkingTool(t *testing.T) {
	r, pt := planningRegistry(t)
	require.NoError(t, r.Remove("sequentialthinking"))

	_, err := agent.NewPlannerAgent(agent.PlannerAgentConfig{
		LLM:     &scriptedClient{},
		Tools:   r,
		Planner: pt,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sequential-thinking tool")
}

func TestPlannerAgent_RunExtractsExecutionPlan(t *testing.T) {
	r, pt := planningRegistry(t)

	createArgs := toolCallArgs(t, map[string]any{
		"operation": "create_plan_with_tasks",
		"objective": "ship the feature",
		"tasks": []map[string]any{
			{"title": "design"},
			{"title": "build"},
		},
	})

	client := &scriptedClient{
		responses: []llm.Response{
			{ToolCalls: []llm.ToolCall{{ID: "1", Name: "planner_tool", Arguments: createArgs}}},
			{ToolCalls: []llm.ToolCall{{ID: "2", Name: "complete_task", Arguments: "{}"}}},
		},
	}

	pa, err := agent.NewPlannerAgent(agent.PlannerAgentConfig{
		LLM:     client,
		Tools:   r,
		Planner: pt,
	})
	require.NoError(t, err)

	execPlan, traj, err := pa.Run(context.Background(), "ship the feature")
	require.NoError(t, err)
	assert.True(t, traj.Success)
	require.NotNil(t, execPlan)
	assert.Len(t, execPlan.Tasks, 2)
	assert.Equal(t, "ship the feature", execPlan.Objective)
}

func TestPlannerAgent_RunFailsWhenNoPlanProduced(t *testing.T) {
	r, pt := planningRegistry(t)
	client := &scriptedClient{
		responses: []llm.Response{{Content: "I thought about it but made no plan"}},
	}

	pa, err := agent.NewPlannerAgent(agent.PlannerAgentConfig{
		LLM:     client,
		Tools:   r,
		Planner: pt,
	})
	require.NoError(t, err)

	_, _, err = pa.Run(context.Background(), "objective")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no plan")
}
