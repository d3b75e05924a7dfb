package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ashbourne/agentloop/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct{ name string }

func (f fakeTool) Name() string        { return f.name }
func (f fakeTool) Description() string { return "" }
func (f fakeTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	return tool.Result{Success: true}, nil
}

func TestClassifyTools_PartitionsByRole(t *testing.T) {
	all := tool.NewRegistry()
	require.NoError(t, all.Register(fakeTool{name: "planner_tool"}))
	require.NoError(t, all.Register(fakeTool{name: "sequential_thinking"}))
	require.NoError(t, all.Register(fakeTool{name: "complete_task"}))
	require.NoError(t, all.Register(fakeTool{name: "run_command"}))
	require.NoError(t, all.Register(fakeTool{name: "search"}))

	planning, execution, err := classifyTools(all, "planner_tool")
	require.NoError(t, err)

	_, err = planning.Get("planner_tool")
	assert.NoError(t, err)
	_, err = planning.Get("sequential_thinking")
	assert.NoError(t, err)
	_, err = planning.Get("complete_task")
	assert.NoError(t, err, "a terminal tool must be available to the planning phase too")
	_, err = planning.Get("run_command")
	assert.Error(t, err, "a plain execution tool must not leak into the planning set")

	_, err = execution.Get("complete_task")
	assert.NoError(t, err, "a terminal tool must be available to the execution phase too")
	_, err = execution.Get("run_command")
	assert.NoError(t, err)
	_, err = execution.Get("search")
	assert.NoError(t, err)
	_, err = execution.Get("planner_tool")
	assert.Error(t, err, "planner_tool must not leak into the execution set")
	_, err = execution.Get("sequential_thinking")
	assert.Error(t, err, "the thinking tool must not leak into the execution set")
}
