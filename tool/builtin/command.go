// Package builtin provides a small set of concrete tool.Tool
// implementations an agent can register directly, grounded on the
// allowlisted-command and file-access tool shapes common to agent
// runtimes in this family.
package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ashbourne/agentloop/tool"
)

// CommandConfig restricts what CommandTool is willing to run.
type CommandConfig struct {
	AllowedCommands  []string
	WorkingDirectory string
	MaxExecutionTime time.Duration
}

func (c *CommandConfig) setDefaults() {
	if len(c.AllowedCommands) == 0 {
		c.AllowedCommands = []string{
			"cat", "head", "tail", "ls", "find", "grep", "wc", "pwd", "git", "go",
		}
	}
	if c.WorkingDirectory == "" {
		c.WorkingDirectory = "."
	}
	if c.MaxExecutionTime <= 0 {
		c.MaxExecutionTime = 30 * time.Second
	}
}

// CommandTool executes a single allowlisted shell command and returns
// its combined stdout/stderr.
type CommandTool struct {
	cfg CommandConfig
}

// NewCommandTool builds a CommandTool. Zero-valued fields of cfg get
// secure defaults: a short allowlist, the current directory, and a 30s cap.
func NewCommandTool(cfg CommandConfig) *CommandTool {
	cfg.setDefaults()
	return &CommandTool{cfg: cfg}
}

type commandArgs struct {
	Command string `json:"command"`
}

func (t *CommandTool) Name() string        { return "run_command" }
func (t *CommandTool) Description() string { return "Runs an allowlisted shell command and returns its output." }

func (t *CommandTool) Schema() map[string]any {
	return tool.SchemaOf(&commandArgs{})
}

func (t *CommandTool) allowed(name string) bool {
	for _, c := range t.cfg.AllowedCommands {
		if c == name {
			return true
		}
	}
	return false
}

// Execute implements tool.Tool.
func (t *CommandTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var parsed commandArgs
	if err := tool.DecodeArgs(args, &parsed); err != nil {
		return tool.Result{}, err
	}
	fields := strings.Fields(parsed.Command)
	if len(fields) == 0 {
		return tool.Result{}, fmt.Errorf("run_command: empty command")
	}
	if !t.allowed(fields[0]) {
		return tool.Result{}, fmt.Errorf("run_command: %q is not in the allowed command list", fields[0])
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.MaxExecutionTime)
	defer cancel()

	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.Dir = t.cfg.WorkingDirectory

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	result := tool.Result{
		Success: err == nil,
		Content: out.String(),
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result, nil
}
