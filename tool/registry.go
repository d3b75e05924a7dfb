package tool

import (
	"sort"
	"strings"

	"github.com/ashbourne/agentloop/registry"
)

// normalize applies the canonical tool-name form: lowercase, no
// underscores, so callers and model-supplied call names agree
// regardless of surface spelling ("read_file", "ReadFile", "readFile"
// all resolve to the same entry).
func normalize(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

// Registry holds the set of tools an agent can call, keyed by
// normalized name.
type Registry struct {
	base *registry.BaseRegistry[Tool]
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{base: registry.NewBaseRegistry[Tool]()}
}

// Register adds a tool. It is an error to register two tools whose
// names normalize to the same key.
func (r *Registry) Register(t Tool) error {
	return r.base.Register(normalize(t.Name()), t)
}

// Get retrieves a tool by name (normalized before lookup).
func (r *Registry) Get(name string) (Tool, error) {
	t, ok := r.base.Get(normalize(name))
	if !ok {
		return nil, &ErrNotFound{Name: name}
	}
	return t, nil
}

// Remove unregisters a tool by name.
func (r *Registry) Remove(name string) error {
	return r.base.Remove(normalize(name))
}

// List returns every registered tool, sorted by name for deterministic
// prompt construction.
func (r *Registry) List() []Tool {
	tools := r.base.List()
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// Definitions returns the Definition for every registered tool, in the
// same deterministic order as List.
func (r *Registry) Definitions() []Definition {
	tools := r.List()
	defs := make([]Definition, 0, len(tools))
	for _, t := range tools {
		def := Definition{Name: t.Name(), Description: t.Description()}
		if s, ok := t.(interface{ Schema() map[string]any }); ok {
			def.Schema = s.Schema()
		}
		defs = append(defs, def)
	}
	return defs
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return r.base.Count()
}
