package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ashbourne/agentloop/tool"
)

// FileWriterConfig scopes where FileWriterTool is allowed to write.
type FileWriterConfig struct {
	BaseDirectory string
}

func (c *FileWriterConfig) setDefaults() {
	if c.BaseDirectory == "" {
		c.BaseDirectory = "."
	}
}

// FileWriterTool writes content to a file under a fixed base
// directory, rejecting any path that would escape it.
type FileWriterTool struct {
	cfg FileWriterConfig
}

// NewFileWriterTool builds a FileWriterTool rooted at cfg.BaseDirectory.
func NewFileWriterTool(cfg FileWriterConfig) *FileWriterTool {
	cfg.setDefaults()
	return &FileWriterTool{cfg: cfg}
}

type fileWriterArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (t *FileWriterTool) Name() string        { return "write_file" }
func (t *FileWriterTool) Description() string { return "Writes content to a file under the tool's base directory." }

func (t *FileWriterTool) Schema() map[string]any {
	return tool.SchemaOf(&fileWriterArgs{})
}

func (t *FileWriterTool) resolve(path string) (string, error) {
	full := filepath.Join(t.cfg.BaseDirectory, path)
	rel, err := filepath.Rel(t.cfg.BaseDirectory, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("write_file: %q escapes the base directory", path)
	}
	return full, nil
}

// Execute implements tool.Tool.
func (t *FileWriterTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var parsed fileWriterArgs
	if err := tool.DecodeArgs(args, &parsed); err != nil {
		return tool.Result{}, err
	}
	if parsed.Path == "" {
		return tool.Result{}, fmt.Errorf("write_file: path is required")
	}

	full, err := t.resolve(parsed.Path)
	if err != nil {
		return tool.Result{}, err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return tool.Result{Success: false, Error: err.Error()}, nil
	}
	if err := os.WriteFile(full, []byte(parsed.Content), 0o644); err != nil {
		return tool.Result{Success: false, Error: err.Error()}, nil
	}

	return tool.Result{
		Success: true,
		Content: fmt.Sprintf("wrote %d bytes to %s", len(parsed.Content), parsed.Path),
	}, nil
}
