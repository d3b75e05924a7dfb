package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashbourne/agentloop/agent"
	"github.com/ashbourne/agentloop/llm"
	"github.com/ashbourne/agentloop/resilience"
	"github.com/ashbourne/agentloop/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient replays a fixed sequence of responses, one per Generate
// call, so a test can script an exact conversation shape.
type scriptedClient struct {
	responses []llm.Response
	errs      []error
	calls     atomic.Int32
}

func (c *scriptedClient) Generate(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (llm.Response, error) {
	i := int(c.calls.Add(1)) - 1
	if i < len(c.errs) && c.errs[i] != nil {
		return llm.Response{}, c.errs[i]
	}
	if i >= len(c.responses) {
		return llm.Response{Content: "fallback"}, nil
	}
	return c.responses[i], nil
}

func (c *scriptedClient) ModelName() string { return "scripted-model" }

type completeTaskTool struct{}

func (completeTaskTool) Name() string        { return "complete_task" }
func (completeTaskTool) Description() string { return "ends the loop" }
func (completeTaskTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	return tool.Result{Success: true, Content: `{"task_completed": true}`}, nil
}

type echoingTool struct{ calls *atomic.Int32 }

func (e echoingTool) Name() string        { return "search" }
func (e echoingTool) Description() string { return "searches for something" }
func (e echoingTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	e.calls.Add(1)
	return tool.Result{Success: true, Content: "search result"}, nil
}

func newRegistry(t *testing.T, tools ...tool.Tool) *tool.Registry {
	t.Helper()
	r := tool.NewRegistry()
	for _, tl := range tools {
		require.NoError(t, r.Register(tl))
	}
	return r
}

func TestBaseAgent_TerminatesOnFirstPlainReply(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{{Content: "all done, no tools needed"}}}
	a, err := agent.NewBaseAgent(agent.BaseAgentConfig{
		LLM:   client,
		Tools: newRegistry(t),
	})
	require.NoError(t, err)

	traj, err := a.Run(context.Background(), "say hello")
	require.NoError(t, err)
	assert.True(t, traj.Completed)
	assert.True(t, traj.Success)
	assert.Equal(t, "all done, no tools needed", traj.FinalResult)
	assert.Len(t, traj.Steps, 1)
}

func TestBaseAgent_SingleToolThenTerminal(t *testing.T) {
	var searchCalls atomic.Int32
	client := &scriptedClient{
		responses: []llm.Response{
			{ToolCalls: []llm.ToolCall{{ID: "1", Name: "search", Arguments: "{}"}}},
			{ToolCalls: []llm.ToolCall{{ID: "2", Name: "complete_task", Arguments: "{}"}}},
		},
	}
	a, err := agent.NewBaseAgent(agent.BaseAgentConfig{
		LLM:   client,
		Tools: newRegistry(t, completeTaskTool{}, echoingTool{calls: &searchCalls}),
	})
	require.NoError(t, err)

	traj, err := a.Run(context.Background(), "find something and finish")
	require.NoError(t, err)
	assert.True(t, traj.Success)
	assert.Equal(t, int32(1), searchCalls.Load())
	require.Len(t, traj.Steps, 2)
	assert.True(t, traj.Steps[1].Completed)
}

func TestBaseAgent_StepBudgetExhaustionEndsGracefully(t *testing.T) {
	client := &scriptedClient{}
	// Every call returns a non-terminal tool call, forcing the loop to
	// run out its budget rather than ever reaching a terminal state.
	for i := 0; i < 10; i++ {
		client.responses = append(client.responses, llm.Response{
			ToolCalls: []llm.ToolCall{{ID: "x", Name: "search", Arguments: "{}"}},
		})
	}
	var searchCalls atomic.Int32
	a, err := agent.NewBaseAgent(agent.BaseAgentConfig{
		LLM:      client,
		Tools:    newRegistry(t, echoingTool{calls: &searchCalls}),
		MaxSteps: 3,
	})
	require.NoError(t, err)

	traj, err := a.Run(context.Background(), "keep searching forever")
	require.NoError(t, err)
	assert.False(t, traj.Success)
	assert.True(t, traj.Completed)
	assert.Equal(t, "step budget exhausted", traj.FinalResult)
	assert.Len(t, traj.Steps, 3)
}

func TestBaseAgent_RetriesTransientLLMErrorThenSucceeds(t *testing.T) {
	client := &scriptedClient{
		errs:      []error{errors.New("connection reset"), nil},
		responses: []llm.Response{{}, {Content: "recovered"}},
	}
	a, err := agent.NewBaseAgent(agent.BaseAgentConfig{
		LLM:   client,
		Tools: newRegistry(t),
		Retry: resilience.NewRetryer(resilience.RetryConfig{
			MaxRetries: 1,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
		}),
	})
	require.NoError(t, err)

	traj, err := a.Run(context.Background(), "objective")
	require.NoError(t, err)
	assert.True(t, traj.Success)
	assert.Equal(t, "recovered", traj.FinalResult)
}

func TestBaseAgent_NonRetryableLLMErrorFailsTheRun(t *testing.T) {
	client := &scriptedClient{errs: []error{errors.New("invalid api key")}}
	a, err := agent.NewBaseAgent(agent.BaseAgentConfig{
		LLM:   client,
		Tools: newRegistry(t),
	})
	require.NoError(t, err)

	traj, err := a.Run(context.Background(), "objective")
	require.Error(t, err)
	assert.False(t, traj.Success)
}

func TestBaseAgent_StopInterruptsTheLoop(t *testing.T) {
	client := &scriptedClient{}
	for i := 0; i < 10; i++ {
		client.responses = append(client.responses, llm.Response{Content: "keep going"})
	}
	var searchCalls atomic.Int32
	a, err := agent.NewBaseAgent(agent.BaseAgentConfig{
		LLM:      client,
		Tools:    newRegistry(t, echoingTool{calls: &searchCalls}),
		MaxSteps: 50,
	})
	require.NoError(t, err)

	a.Stop(context.Background(), "user cancelled")

	traj, err := a.Run(context.Background(), "objective")
	require.NoError(t, err)
	assert.False(t, traj.Success)
	assert.Contains(t, traj.FinalResult, "user cancelled")
}
