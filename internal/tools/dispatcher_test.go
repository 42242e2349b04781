package tools

import (
	"errors"
	"testing"

	"github.com/quillchat/quill/internal/llm"
	"github.com/quillchat/quill/internal/log"
)

func testDispatcher(t *testing.T, extra ...Tool) *Dispatcher {
	t.Helper()
	return NewDispatcher(testRegistry(t, extra...), log.NewNop())
}

func TestResolve_SingleCall(t *testing.T) {
	d := testDispatcher(t)

	results := d.Resolve([]llm.ToolCall{
		{ID: "call_1", Name: "uppercase", Arguments: `{"text":"hello"}`},
	})

	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	got := results[0]
	if got.Role != llm.RoleTool {
		t.Errorf("Role = %q, want %q", got.Role, llm.RoleTool)
	}
	if got.ToolCallID != "call_1" {
		t.Errorf("ToolCallID = %q, want %q", got.ToolCallID, "call_1")
	}
	if got.Content != "HELLO" {
		t.Errorf("Content = %q, want %q", got.Content, "HELLO")
	}
}

func TestResolve_UnknownToolYieldsNothing(t *testing.T) {
	d := testDispatcher(t)

	results := d.Resolve([]llm.ToolCall{
		{ID: "call_1", Name: "nope", Arguments: `{"text":"hello"}`},
	})

	if len(results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(results))
	}
}

func TestResolve_MalformedArgumentsUseEmptyText(t *testing.T) {
	d := testDispatcher(t)

	results := d.Resolve([]llm.ToolCall{
		{ID: "call_1", Name: "excited", Arguments: `{not json`},
	})

	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Content != "!" {
		t.Errorf("Content = %q, want %q", results[0].Content, "!")
	}
}

func TestResolve_MalformedCallDoesNotAbortBatch(t *testing.T) {
	d := testDispatcher(t)

	results := d.Resolve([]llm.ToolCall{
		{ID: "call_1", Name: "uppercase", Arguments: `{"text":"one"}`},
		{ID: "call_2", Name: "uppercase", Arguments: `garbage`},
		{ID: "call_3", Name: "excited", Arguments: `{"text":"three"}`},
	})

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	// Order must match request order.
	wantIDs := []string{"call_1", "call_2", "call_3"}
	wantContent := []string{"ONE", "", "three!"}
	for i, r := range results {
		if r.ToolCallID != wantIDs[i] {
			t.Errorf("results[%d].ToolCallID = %q, want %q", i, r.ToolCallID, wantIDs[i])
		}
		if r.Content != wantContent[i] {
			t.Errorf("results[%d].Content = %q, want %q", i, r.Content, wantContent[i])
		}
	}
}

func TestResolve_FailingTransformSkipped(t *testing.T) {
	failing := Tool{
		Name:        "failing",
		Description: "Always fails",
		Transform: func(string) (string, error) {
			return "", errors.New("boom")
		},
	}
	d := testDispatcher(t, failing)

	results := d.Resolve([]llm.ToolCall{
		{ID: "call_1", Name: "failing", Arguments: `{"text":"x"}`},
		{ID: "call_2", Name: "uppercase", Arguments: `{"text":"x"}`},
	})

	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].ToolCallID != "call_2" {
		t.Errorf("surviving result = %+v", results[0])
	}
}

func TestResolve_EmptyBatch(t *testing.T) {
	d := testDispatcher(t)
	if got := d.Resolve(nil); len(got) != 0 {
		t.Errorf("Resolve(nil) = %v, want empty", got)
	}
}
