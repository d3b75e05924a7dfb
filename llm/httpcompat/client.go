// Package httpcompat provides a reference llm.Client implementation
// against an OpenAI-wire-compatible chat completions endpoint. It is
// not imported by the agent package; it exists so the module has a
// runnable example of the consumed interface, in the same spirit as
// the concrete provider adapters shipped alongside a reasoning core.
package httpcompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ashbourne/agentloop/internal/httpclient"
	"github.com/ashbourne/agentloop/llm"
)

// Config configures a Client.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string // default: https://api.openai.com/v1
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

func (c *Config) setDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("httpcompat: APIKey is required")
	}
	if c.Model == "" {
		return fmt.Errorf("httpcompat: Model is required")
	}
	return nil
}

// Client talks to a chat-completions endpoint using OpenAI's function
// calling wire format.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New constructs a Client, applying defaults and validating the config.
func New(cfg Config) (*Client, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *Client) ModelName() string { return c.cfg.Model }

type wireMessage struct {
	Role       string        `json:"role"`
	Content    string        `json:"content,omitempty"`
	ToolCalls  []wireToolRef `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

type wireToolRef struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Function wireFunctionRef `json:"function"`
}

type wireFunctionRef struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Tools       []wireTool    `json:"tools,omitempty"`
}

type wireResponse struct {
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate implements llm.Client.
func (c *Client) Generate(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (llm.Response, error) {
	req := wireRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	for _, m := range messages {
		wm := wireMessage{Role: string(m.Role), Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, wireToolRef{
				ID:   tc.ID,
				Type: "function",
				Function: wireFunctionRef{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		req.Messages = append(req.Messages, wm)
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return llm.Response{}, fmt.Errorf("httpcompat: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return llm.Response{}, fmt.Errorf("httpcompat: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return llm.Response{}, fmt.Errorf("httpcompat: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Response{}, fmt.Errorf("httpcompat: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		info := httpclient.ParseOpenAIRateLimitHeaders(resp.Header)
		return llm.Response{}, &httpclient.RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(raw),
			RetryAfter: info.RetryAfter,
		}
	}

	var wr wireResponse
	if err := json.Unmarshal(raw, &wr); err != nil {
		return llm.Response{}, fmt.Errorf("httpcompat: decode response: %w", err)
	}
	if wr.Error != nil {
		return llm.Response{}, fmt.Errorf("httpcompat: api error: %s", wr.Error.Message)
	}
	if len(wr.Choices) == 0 {
		return llm.Response{}, fmt.Errorf("httpcompat: no choices returned")
	}

	msg := wr.Choices[0].Message
	var toolCalls []llm.ToolCall
	for _, tc := range msg.ToolCalls {
		toolCalls = append(toolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return llm.Response{
		Content:      msg.Content,
		ToolCalls:    toolCalls,
		PromptTokens: wr.Usage.PromptTokens,
		OutputTokens: wr.Usage.CompletionTokens,
	}, nil
}
