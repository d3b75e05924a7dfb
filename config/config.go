// Package config defines the Agent factory API's configuration shape:
// llm, agent, docker (ignored by the core), mcp servers (opaque to the
// core), and logging, each with SetDefaults/Validate following the
// delegation pattern used throughout this family of configs.
package config

import (
	"fmt"
	"strings"
)

// Config is the single entry point the Agent factory API accepts.
type Config struct {
	LLM     LLMConfig         `yaml:"llm"`
	Agent   AgentConfig       `yaml:"agent"`
	Docker  map[string]any    `yaml:"docker,omitempty"` // ignored by the core
	MCP     MCPConfig         `yaml:"mcp,omitempty"`    // opaque to the core
	Logging LoggingConfig     `yaml:"logging"`
}

// SetDefaults fills in the zero-valued fields that have a default:
// llm max_tokens, temperature and top_p; agent max_steps and
// working_directory; logging level and format. Every other field,
// including agent enable_trajectory_recording, is left as given.
func (c *Config) SetDefaults() {
	c.LLM.SetDefaults()
	c.Agent.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks the config tree, delegating to each section.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// LLMConfig configures the model a BaseAgent talks to.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	TopP        float64 `yaml:"top_p,omitempty"`
}

func (c *LLMConfig) SetDefaults() {
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2000
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.TopP == 0 {
		c.TopP = 1.0
	}
}

func (c *LLMConfig) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	return nil
}

// AgentConfig configures a single agent (Base, Planner, or Hybrid).
type AgentConfig struct {
	MaxSteps                 int      `yaml:"max_steps"`
	WorkingDirectory         string   `yaml:"working_directory"`
	EnableTrajectoryRecording bool    `yaml:"enable_trajectory_recording"`
	Tools                    []string `yaml:"tools"`
}

func (c *AgentConfig) SetDefaults() {
	if c.MaxSteps <= 0 {
		c.MaxSteps = 30
	}
	if c.WorkingDirectory == "" {
		c.WorkingDirectory = "."
	}
}

func (c *AgentConfig) Validate() error {
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive")
	}
	return nil
}

// MCPConfig declares MCP servers the core passes through to a tool
// bridge it never inspects.
type MCPConfig struct {
	Servers []MCPServer `yaml:"servers,omitempty"`
}

// MCPServer is one opaque MCP server declaration.
type MCPServer struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// LoggingConfig controls the structured logger every package uses.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "pretty"
	}
}

func (c *LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of debug, info, warn, error, got %q", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "json", "pretty":
	default:
		return fmt.Errorf("format must be one of json, pretty, got %q", c.Format)
	}
	return nil
}
