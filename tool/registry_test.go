package tool_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ashbourne/agentloop/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoTool struct {
	name string
}

func (e *echoTool) Name() string        { return e.name }
func (e *echoTool) Description() string { return "echoes its input" }
func (e *echoTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	return tool.Result{Success: true, Content: string(args)}, nil
}

func TestRegistry_RegisterGetNormalizesNames(t *testing.T) {
	r := tool.NewRegistry()
	require.NoError(t, r.Register(&echoTool{name: "run_command"}))

	for _, lookup := range []string{"run_command", "runcommand", "RUN_COMMAND", "RunCommand"} {
		got, err := r.Get(lookup)
		require.NoError(t, err, lookup)
		assert.Equal(t, "run_command", got.Name())
	}
}

func TestRegistry_GetMissingReturnsErrNotFound(t *testing.T) {
	r := tool.NewRegistry()
	_, err := r.Get("nope")
	require.Error(t, err)
	var notFound *tool.ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestRegistry_ListIsSortedAndDeterministic(t *testing.T) {
	r := tool.NewRegistry()
	require.NoError(t, r.Register(&echoTool{name: "zeta"}))
	require.NoError(t, r.Register(&echoTool{name: "alpha"}))
	require.NoError(t, r.Register(&echoTool{name: "mid"}))

	names := make([]string, 0, 3)
	for _, t := range r.List() {
		names = append(names, t.Name())
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestRegistry_CountAndRemove(t *testing.T) {
	r := tool.NewRegistry()
	require.NoError(t, r.Register(&echoTool{name: "a"}))
	require.NoError(t, r.Register(&echoTool{name: "b"}))
	assert.Equal(t, 2, r.Count())

	require.NoError(t, r.Remove("a"))
	assert.Equal(t, 1, r.Count())
	_, err := r.Get("a")
	assert.Error(t, err)
}

type paramTool struct{}

type paramToolArgs struct {
	Path string `json:"path"`
}

func (p *paramTool) Name() string        { return "param_tool" }
func (p *paramTool) Description() string { return "takes a path" }
func (p *paramTool) Schema() map[string]any {
	return tool.SchemaOf(paramToolArgs{})
}
func (p *paramTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	return tool.Result{Success: true}, nil
}

func TestRegistry_DefinitionsIncludesSchemaWhenPresent(t *testing.T) {
	r := tool.NewRegistry()
	require.NoError(t, r.Register(&paramTool{}))

	defs := r.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "param_tool", defs[0].Name)
	assert.Equal(t, "object", defs[0].Schema["type"])
	assert.NotContains(t, defs[0].Schema, "$schema")
}

func TestDecodeArgs_WeaklyTypedAndJSONTagged(t *testing.T) {
	var out paramToolArgs
	err := tool.DecodeArgs(json.RawMessage(`{"path": "a/b.txt"}`), &out)
	require.NoError(t, err)
	assert.Equal(t, "a/b.txt", out.Path)
}
