package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ashbourne/agentloop/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_SetDefaultsFillsEveryZeroSection(t *testing.T) {
	var c config.Config
	c.LLM.Provider = "openai"
	c.LLM.Model = "gpt-4o-mini"
	c.SetDefaults()

	assert.Equal(t, 2000, c.LLM.MaxTokens)
	assert.Equal(t, 0.7, c.LLM.Temperature)
	assert.Equal(t, 1.0, c.LLM.TopP)
	assert.Equal(t, 30, c.Agent.MaxSteps)
	assert.Equal(t, ".", c.Agent.WorkingDirectory)
	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, "pretty", c.Logging.Format)

	require.NoError(t, c.Validate())
}

func TestConfig_ValidateRejectsMissingProviderAndModel(t *testing.T) {
	var c config.Config
	c.SetDefaults()
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider is required")
}

func TestLLMConfig_ValidateRejectsOutOfRangeTemperature(t *testing.T) {
	c := config.LLMConfig{Provider: "openai", Model: "gpt-4o-mini", Temperature: 3}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temperature")
}

func TestLoggingConfig_ValidateRejectsUnknownLevel(t *testing.T) {
	c := config.LoggingConfig{Level: "verbose", Format: "json"}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "level must be one of")
}

func TestLoggingConfig_NewLoggerWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "out.log")
	c := config.LoggingConfig{Level: "info", Format: "json", File: logFile}

	logger, err := c.NewLogger()
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("hello")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
