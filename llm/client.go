package llm

import "context"

// Client is the uniform contract a BaseAgent uses to reach a language
// model. Concrete providers (OpenAI-wire-compatible, local models,
// mocks) implement this directly; the core never depends on a
// provider's own request/response shapes.
type Client interface {
	// Generate sends messages and the currently available tool
	// definitions, and returns the model's reply. Implementations
	// must respect ctx cancellation.
	Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (Response, error)

	// ModelName identifies the model for logging and trajectory
	// metadata.
	ModelName() string
}

// StreamingClient is an optional capability: a Client may additionally
// support incremental delivery of assistant content. BaseAgent does
// not use this interface; it always calls Generate.
type StreamingClient interface {
	Client
	GenerateStreaming(ctx context.Context, messages []Message, tools []ToolDefinition) (<-chan string, error)
}
