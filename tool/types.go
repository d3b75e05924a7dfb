package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// Result is what a Tool's Execute returns.
type Result struct {
	Success    bool   `json:"success"`
	Content    string `json:"content,omitempty"`
	Error      string `json:"error,omitempty"`
	ToolName   string `json:"tool_name"`
	// ToolCallID binds this Result to the llm.ToolCall that produced
	// it; Dispatcher.Call populates it from the call it executed.
	ToolCallID    string         `json:"tool_call_id,omitempty"`
	ExecutionTime time.Duration  `json:"execution_time,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Definition is what gets sent to the model: name, description, and a
// JSON-Schema document describing the accepted arguments.
type Definition struct {
	Name        string
	Description string
	Schema      map[string]any
}

// Tool is the contract every callable capability implements.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args json.RawMessage) (Result, error)
}

// SchemaOf reflects a parameter struct into the JSON-Schema document a
// Definition carries, so tool authors declare one Go struct instead of
// hand-maintaining a parallel schema. Tools whose parameters have no
// natural struct shape (or none at all) may build Schema manually.
func SchemaOf(params any) map[string]any {
	reflector := &jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(params)
	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return map[string]any{"type": "object"}
	}
	// Schema metadata fields ($schema, $id) are noise for a model prompt.
	delete(doc, "$schema")
	delete(doc, "$id")
	return doc
}

// ErrNotFound is returned by Registry.Get when no tool is registered
// under the requested name; Dispatcher.Call reports it as the Error
// text of a failed Result.
type ErrNotFound struct {
	Name string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("tool: %q is not registered", e.Name)
}

// DecodeArgs is the single choke point every Tool.Execute implementation
// should use to turn a model-supplied argument payload into a typed
// parameter struct. It decodes a raw JSON object into a map (an empty
// payload decodes no fields; a payload that is not a JSON object is
// rejected), then applies "squash"-free, loosely-typed field matching
// via mapstructure so minor model formatting quirks (numbers as
// strings, missing omitempty fields) don't hard-fail a tool call.
func DecodeArgs(args json.RawMessage, out any) error {
	var raw map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &raw); err != nil {
			return fmt.Errorf("tool: decode arguments: %w", err)
		}
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "json",
	})
	if err != nil {
		return fmt.Errorf("tool: build argument decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("tool: decode arguments: %w", err)
	}
	return nil
}
