package handlers

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/quillchat/quill/internal/log"
	"github.com/quillchat/quill/internal/tools"
)

// Tools serves per-user tool enablement.
type Tools struct {
	registry *tools.Registry
	store    Store
	logger   log.Logger
}

// NewTools creates the Tools handler.
func NewTools(registry *tools.Registry, s Store, logger log.Logger) *Tools {
	return &Tools{registry: registry, store: s, logger: logger}
}

type toolResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// List returns every known tool with the user's enablement state, in
// registration order. New tools appear disabled.
func (h *Tools) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "authentication required")
		return
	}

	names := h.registry.Names()
	configs, err := h.store.ToolConfigs(r.Context(), userID, names)
	if err != nil {
		h.logger.Error("loading tool configs", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
		return
	}

	enabled := make(map[string]bool, len(configs))
	for _, tc := range configs {
		enabled[tc.Name] = tc.Enabled
	}

	out := make([]toolResponse, 0, len(names))
	for _, name := range names {
		tool, ok := h.registry.Get(name)
		if !ok {
			continue
		}
		out = append(out, toolResponse{
			Name:        name,
			Description: tool.Description,
			Enabled:     enabled[name],
		})
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"tools": out})
}

// Toggle sets the enabled flag for one tool.
func (h *Tools) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "authentication required")
		return
	}

	name := r.PathValue("name")
	if !slices.Contains(h.registry.Names(), name) {
		writeError(w, h.logger, http.StatusNotFound, "unknown tool")
		return
	}

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.SetToolEnabled(r.Context(), userID, name, req.Enabled); err != nil {
		h.logger.Error("setting tool", "tool", name, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"name":    name,
		"enabled": req.Enabled,
	})
}
