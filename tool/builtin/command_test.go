package builtin_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ashbourne/agentloop/tool/builtin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTool_RunsAllowedCommand(t *testing.T) {
	ct := builtin.NewCommandTool(builtin.CommandConfig{AllowedCommands: []string{"pwd"}})
	args, _ := json.Marshal(map[string]string{"command": "pwd"})

	result, err := ct.Execute(context.Background(), args)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.Content)
}

func TestCommandTool_RejectsDisallowedCommand(t *testing.T) {
	ct := builtin.NewCommandTool(builtin.CommandConfig{AllowedCommands: []string{"pwd"}})
	args, _ := json.Marshal(map[string]string{"command": "rm -rf /"})

	_, err := ct.Execute(context.Background(), args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the allowed command list")
}

func TestCommandTool_RejectsEmptyCommand(t *testing.T) {
	ct := builtin.NewCommandTool(builtin.CommandConfig{})
	args, _ := json.Marshal(map[string]string{"command": "  "})

	_, err := ct.Execute(context.Background(), args)
	require.Error(t, err)
}

func TestCommandTool_CapturesFailureExitCode(t *testing.T) {
	ct := builtin.NewCommandTool(builtin.CommandConfig{AllowedCommands: []string{"ls"}})
	args, _ := json.Marshal(map[string]string{"command": "ls /no/such/path/at/all"})

	result, err := ct.Execute(context.Background(), args)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}
