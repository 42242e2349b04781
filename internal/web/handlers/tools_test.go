package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/quillchat/quill/internal/log"
	"github.com/quillchat/quill/internal/tools"
)

func newToolsHandler(t *testing.T, fs *fakeStore) *Tools {
	t.Helper()
	registry, err := tools.NewRegistry(tools.Builtins()...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return NewTools(registry, fs, log.NewNop())
}

func TestToolsList(t *testing.T) {
	fs := newFakeStore()
	_ = fs.SetToolEnabled(context.Background(), "sub-1", "excited", true)
	h := newToolsHandler(t, fs)

	req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
	req = req.WithContext(WithUserID(req.Context(), "sub-1"))
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Tools []toolResponse `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(resp.Tools) != 2 {
		t.Fatalf("got %d tools, want 2", len(resp.Tools))
	}
	// Registration order, enablement per user.
	if resp.Tools[0].Name != "uppercase" || resp.Tools[0].Enabled {
		t.Errorf("tools[0] = %+v", resp.Tools[0])
	}
	if resp.Tools[1].Name != "excited" || !resp.Tools[1].Enabled {
		t.Errorf("tools[1] = %+v", resp.Tools[1])
	}
	if resp.Tools[0].Description == "" {
		t.Errorf("missing description")
	}
}

func TestToolsToggle(t *testing.T) {
	fs := newFakeStore()
	h := newToolsHandler(t, fs)

	req := httptest.NewRequest(http.MethodPut, "/api/tools/uppercase", strings.NewReader(`{"enabled":true}`))
	req.SetPathValue("name", "uppercase")
	req = req.WithContext(WithUserID(req.Context(), "sub-1"))
	rec := httptest.NewRecorder()
	h.Toggle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !fs.toolConfigs["sub-1"]["uppercase"] {
		t.Errorf("toggle not persisted")
	}
}

func TestToolsToggleUnknown(t *testing.T) {
	h := newToolsHandler(t, newFakeStore())

	req := httptest.NewRequest(http.MethodPut, "/api/tools/nope", strings.NewReader(`{"enabled":true}`))
	req.SetPathValue("name", "nope")
	req = req.WithContext(WithUserID(req.Context(), "sub-1"))
	rec := httptest.NewRecorder()
	h.Toggle(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestToolsRequireAuth(t *testing.T) {
	h := newToolsHandler(t, newFakeStore())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/tools", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("List status = %d, want 401", rec.Code)
	}
}
