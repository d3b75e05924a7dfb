package tool

import "github.com/ashbourne/agentloop/llm"

// LLMDefinitions returns every registered tool's Definition translated
// into the llm.ToolDefinition shape a Client.Generate call expects, in
// the same deterministic order as List.
func (r *Registry) LLMDefinitions() []llm.ToolDefinition {
	defs := r.Definitions()
	out := make([]llm.ToolDefinition, 0, len(defs))
	for _, d := range defs {
		out = append(out, llm.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Schema,
		})
	}
	return out
}
