// Package tools provides quill's named text-transform tools.
//
// A tool couples a pure text transform with a wire schema descriptor that
// is advertised to the model. The registry is populated once at process
// start and is read-only thereafter, so it is safe for concurrent use.
package tools

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/quillchat/quill/internal/llm"
)

// Transform maps text to text. Implementations must be deterministic and
// side-effect free; an error aborts any chain the transform is part of.
type Transform func(text string) (string, error)

// Tool is a named transform plus the metadata the model sees.
type Tool struct {
	Name        string
	Description string
	Transform   Transform
}

// Schema returns the wire-level descriptor for this tool: a single
// required string parameter named "text".
func (t Tool) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        t.Name,
		Description: t.Description,
		Parameters: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"text": {Type: "string"},
			},
			Required: []string{"text"},
		},
	}
}

// Registry maps tool names to tools. Registration happens at construction;
// there is no runtime mutation.
type Registry struct {
	order  []string
	byName map[string]Tool
}

// NewRegistry builds a registry from the given tools.
// Names must be unique and non-empty.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if t.Name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if t.Transform == nil {
			return nil, fmt.Errorf("tool %q has no transform", t.Name)
		}
		if _, exists := r.byName[t.Name]; exists {
			return nil, fmt.Errorf("duplicate tool %q", t.Name)
		}
		r.byName[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return r, nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// SchemaFor returns schema descriptors for the named tools, skipping
// unknown names. Result order follows input order.
func (r *Registry) SchemaFor(names []string) []llm.ToolSchema {
	schemas := make([]llm.ToolSchema, 0, len(names))
	for _, name := range names {
		if t, ok := r.byName[name]; ok {
			schemas = append(schemas, t.Schema())
		}
	}
	return schemas
}

// Apply runs the named transforms over text in the exact order given.
// Unknown names are skipped. A failing transform aborts the chain: the
// text as of the last successful transform is returned together with the
// error so the caller can still surface it.
func (r *Registry) Apply(text string, names []string) (string, error) {
	for _, name := range names {
		t, ok := r.byName[name]
		if !ok {
			continue
		}
		next, err := t.Transform(text)
		if err != nil {
			return text, fmt.Errorf("applying %q: %w", name, err)
		}
		text = next
	}
	return text, nil
}
