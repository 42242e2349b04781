package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quillchat/quill/internal/log"
	"github.com/quillchat/quill/internal/store"
)

// Conversations serves conversation listing, creation, and history.
type Conversations struct {
	store  Store
	logger log.Logger
}

// NewConversations creates the Conversations handler.
func NewConversations(s Store, logger log.Logger) *Conversations {
	return &Conversations{store: s, logger: logger}
}

type conversationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func toConversationResponse(c *store.Conversation) conversationResponse {
	return conversationResponse{ID: c.ID.String(), Title: c.Title, CreatedAt: c.CreatedAt}
}

// List returns the user's conversations, newest first.
func (h *Conversations) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "authentication required")
		return
	}

	convs, err := h.store.Conversations(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing conversations", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]conversationResponse, 0, len(convs))
	for _, c := range convs {
		out = append(out, toConversationResponse(c))
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"conversations": out})
}

// Create starts an empty conversation, the New Chat action.
func (h *Conversations) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	conv, err := h.store.CreateConversation(r.Context(), userID, strings.TrimSpace(req.Title))
	if err != nil {
		h.logger.Error("creating conversation", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, toConversationResponse(conv))
}

// Messages returns a conversation's transcript in order.
func (h *Conversations) Messages(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid conversation id")
		return
	}

	conv, err := h.store.Conversation(r.Context(), id)
	if err == nil && conv.UserID != userID {
		err = store.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "conversation not found")
			return
		}
		h.logger.Error("fetching conversation", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
		return
	}

	msgs, err := h.store.Messages(r.Context(), id)
	if err != nil {
		h.logger.Error("listing messages", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{
			ID:        m.ID.String(),
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"conversation": toConversationResponse(conv),
		"messages":     out,
	})
}
