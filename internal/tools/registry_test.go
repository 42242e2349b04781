package tools

import (
	"errors"
	"strings"
	"testing"
)

func testRegistry(t *testing.T, extra ...Tool) *Registry {
	t.Helper()
	r, err := NewRegistry(append(Builtins(), extra...)...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestApply_Uppercase(t *testing.T) {
	r := testRegistry(t)
	got, err := r.Apply("hello", []string{"uppercase"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != "HELLO" {
		t.Errorf("Apply = %q, want %q", got, "HELLO")
	}
}

func TestApply_Excited(t *testing.T) {
	r := testRegistry(t)
	got, err := r.Apply("hello", []string{"excited"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != "hello!" {
		t.Errorf("Apply = %q, want %q", got, "hello!")
	}
}

func TestApply_ChainOrder(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		name  string
		chain []string
		want  string
	}{
		{"uppercase then excited", []string{"uppercase", "excited"}, "HELLO!"},
		{"excited then uppercase", []string{"excited", "uppercase"}, "HELLO!"},
		{"empty chain", nil, "hello"},
		{"unknown name skipped", []string{"nope", "uppercase"}, "HELLO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Apply("hello", tt.chain)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if got != tt.want {
				t.Errorf("Apply(%v) = %q, want %q", tt.chain, got, tt.want)
			}
		})
	}
}

// Order sensitivity needs a non-commuting pair: uppercase and excited happen
// to commute, so pair uppercase with a transform that cares about case.
func TestApply_NonCommutingChain(t *testing.T) {
	first := Tool{
		Name:        "first_lower",
		Description: "Lower-case the first character",
		Transform: func(text string) (string, error) {
			if text == "" {
				return text, nil
			}
			return strings.ToLower(text[:1]) + text[1:], nil
		},
	}
	r := testRegistry(t, first)

	ab, err := r.Apply("hello", []string{"uppercase", "first_lower"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	ba, err := r.Apply("hello", []string{"first_lower", "uppercase"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if ab != "hELLO" {
		t.Errorf("uppercase∘first_lower = %q, want %q", ab, "hELLO")
	}
	if ba != "HELLO" {
		t.Errorf("first_lower∘uppercase = %q, want %q", ba, "HELLO")
	}
	if ab == ba {
		t.Error("non-commuting transforms produced the same output in both orders")
	}
}

func TestApply_FailingTransformAbortsChain(t *testing.T) {
	boom := errors.New("boom")
	failing := Tool{
		Name:        "failing",
		Description: "Always fails",
		Transform: func(string) (string, error) {
			return "", boom
		},
	}
	r := testRegistry(t, failing)

	got, err := r.Apply("hello", []string{"uppercase", "failing", "excited"})
	if !errors.Is(err, boom) {
		t.Fatalf("Apply error = %v, want %v", err, boom)
	}
	// Text as of the last successful transform; "excited" never runs.
	if got != "HELLO" {
		t.Errorf("Apply = %q, want %q", got, "HELLO")
	}
}

func TestRegistry_GetAndSchemaFor(t *testing.T) {
	r := testRegistry(t)

	for _, name := range r.Names() {
		if _, ok := r.Get(name); !ok {
			t.Errorf("Get(%q) not found", name)
		}
		schemas := r.SchemaFor([]string{name})
		if len(schemas) != 1 {
			t.Fatalf("SchemaFor([%q]) len = %d, want 1", name, len(schemas))
		}
		s := schemas[0]
		if s.Name != name {
			t.Errorf("schema name = %q, want %q", s.Name, name)
		}
		if s.Parameters == nil || s.Parameters.Properties["text"] == nil {
			t.Errorf("schema for %q missing text property", name)
		}
		if len(s.Parameters.Required) != 1 || s.Parameters.Required[0] != "text" {
			t.Errorf("schema for %q required = %v", name, s.Parameters.Required)
		}
	}
}

func TestSchemaFor_UnknownName(t *testing.T) {
	r := testRegistry(t)
	if got := r.SchemaFor([]string{"nope"}); len(got) != 0 {
		t.Errorf("SchemaFor unknown = %d schemas, want 0", len(got))
	}
}

func TestNewRegistry_Validation(t *testing.T) {
	noop := func(s string) (string, error) { return s, nil }

	tests := []struct {
		name  string
		tools []Tool
	}{
		{"empty name", []Tool{{Transform: noop}}},
		{"nil transform", []Tool{{Name: "x"}}},
		{"duplicate", []Tool{{Name: "x", Transform: noop}, {Name: "x", Transform: noop}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.tools...); err == nil {
				t.Error("NewRegistry should fail")
			}
		})
	}
}

func TestNames_RegistrationOrder(t *testing.T) {
	r := testRegistry(t)
	names := r.Names()
	if len(names) != 2 || names[0] != "uppercase" || names[1] != "excited" {
		t.Errorf("Names() = %v", names)
	}
}
