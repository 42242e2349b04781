package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quillchat/quill/internal/chat"
	"github.com/quillchat/quill/internal/llm"
	"github.com/quillchat/quill/internal/log"
	"github.com/quillchat/quill/internal/store"
	"github.com/quillchat/quill/internal/web/sse"
)

// TurnTimeout bounds a single chat turn, follow-up included. It prevents
// zombie goroutines when clients disconnect without closing the stream.
const TurnTimeout = 5 * time.Minute

// TitleMaxLength is the maximum length for auto-generated conversation
// titles.
const TitleMaxLength = 50

// Chat runs one streamed chat turn per request.
type Chat struct {
	runner    TurnRunner
	store     Store
	toolNames []string
	models    []string
	logger    log.Logger
}

// ChatConfig configures the Chat handler.
type ChatConfig struct {
	Runner TurnRunner
	Store  Store
	// ToolNames is the registry's full name list, in registration order.
	ToolNames []string
	// Models is the set of model identifiers a turn may request.
	Models []string
	Logger log.Logger
}

// NewChat creates the Chat handler.
func NewChat(cfg ChatConfig) *Chat {
	return &Chat{
		runner:    cfg.Runner,
		store:     cfg.Store,
		toolNames: cfg.ToolNames,
		models:    cfg.Models,
		logger:    cfg.Logger,
	}
}

type turnRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	Model          string `json:"model"`
}

// Models lists the model identifiers a turn may request.
func (h *Chat) Models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string][]string{"models": h.models})
}

// Turn handles POST /api/chat: validates the request, streams the
// assistant's reply over SSE, and persists the exchange once complete.
func (h *Chat) Turn(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "authentication required")
		return
	}

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, h.logger, http.StatusBadRequest, "message is required")
		return
	}
	if !slices.Contains(h.models, req.Model) {
		writeError(w, h.logger, http.StatusBadRequest, "unknown model")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), TurnTimeout)
	defer cancel()

	// conv stays nil for a fresh session; the conversation row is only
	// created once the turn has produced something worth persisting.
	conv, history, err := h.resolveConversation(ctx, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, h.logger, http.StatusNotFound, "conversation not found")
		case errors.Is(err, errBadConversationID):
			writeError(w, h.logger, http.StatusBadRequest, "invalid conversation id")
		default:
			h.logger.Error("resolving conversation", "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "internal error")
		}
		return
	}

	enabled, err := h.enabledTools(ctx, userID)
	if err != nil {
		h.logger.Error("loading tool configs", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
		return
	}

	stream, err := sse.NewWriter(w)
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	turn := chat.Turn{
		Prompt:     req.Message,
		Model:      req.Model,
		History:    history,
		Advertised: enabled,
		PostChain:  enabled,
	}
	result, err := h.runner.Run(ctx, turn, func(ctx context.Context, text string) error {
		return stream.WriteChunk(ctx, text)
	})

	// A post-processing failure still yields usable last-good text; the
	// failure is surfaced and the turn proceeds. Everything else aborts
	// without persisting.
	if err != nil {
		code := errorCode(err)
		if !errors.Is(err, chat.ErrPostProcessFailed) || result == nil {
			h.logger.Warn("chat turn failed", "user", userID, "code", code, "error", err)
			_ = stream.WriteError(code, "generating reply failed")
			return
		}
		h.logger.Warn("post-processing failed, using last good text", "user", userID, "error", err)
		_ = stream.WriteError(code, "tool post-processing failed")
	}

	if conv == nil {
		conv, err = h.store.CreateConversation(ctx, userID, truncateForTitle(req.Message))
		if err != nil {
			h.logger.Error("creating conversation", "error", err)
			_ = stream.WriteError("persist_failed", "saving conversation failed")
			return
		}
	}

	if _, err := h.store.AppendMessage(ctx, conv.ID, store.RoleUser, req.Message); err != nil {
		h.logger.Error("persisting user message", "error", err)
		_ = stream.WriteError("persist_failed", "saving conversation failed")
		return
	}
	if _, err := h.store.AppendMessage(ctx, conv.ID, store.RoleAssistant, result.FinalText); err != nil {
		h.logger.Error("persisting assistant message", "error", err)
		_ = stream.WriteError("persist_failed", "saving conversation failed")
		return
	}

	if err := stream.WriteDone(ctx, conv.ID.String(), result.FinalText); err != nil {
		h.logger.Debug("writing done event", "error", err)
	}
}

var errBadConversationID = errors.New("invalid conversation id")

// resolveConversation loads the target conversation and its history.
// A missing conversation ID means a fresh session: both return values are
// nil and the conversation is created after the turn completes.
func (h *Chat) resolveConversation(ctx context.Context, userID string, req turnRequest) (*store.Conversation, []llm.Message, error) {
	if req.ConversationID == "" {
		return nil, nil, nil
	}

	id, err := uuid.Parse(req.ConversationID)
	if err != nil {
		return nil, nil, errBadConversationID
	}
	conv, err := h.store.Conversation(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	// Another user's conversation is indistinguishable from a missing one.
	if conv.UserID != userID {
		return nil, nil, store.ErrNotFound
	}

	msgs, err := h.store.Messages(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	history := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		role := llm.RoleUser
		if m.Role == store.RoleAssistant {
			role = llm.RoleAssistant
		}
		history = append(history, llm.Message{Role: role, Content: m.Content})
	}
	return conv, history, nil
}

// enabledTools returns the user's enabled tool names in registry order.
func (h *Chat) enabledTools(ctx context.Context, userID string) ([]string, error) {
	configs, err := h.store.ToolConfigs(ctx, userID, h.toolNames)
	if err != nil {
		return nil, err
	}
	var enabled []string
	for _, tc := range configs {
		if tc.Enabled {
			enabled = append(enabled, tc.Name)
		}
	}
	return enabled, nil
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, chat.ErrStreamFailed):
		return "stream_failed"
	case errors.Is(err, chat.ErrFollowUpFailed):
		return "follow_up_failed"
	case errors.Is(err, chat.ErrPostProcessFailed):
		return "post_process_failed"
	default:
		return "turn_failed"
	}
}

// truncateForTitle derives a conversation title from the first prompt.
// Max 50 runes, cut at a word boundary when one lands past the midpoint.
func truncateForTitle(message string) string {
	message = strings.TrimSpace(message)
	runes := []rune(message)
	if len(runes) <= TitleMaxLength {
		return message
	}

	truncated := string(runes[:TitleMaxLength])
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > TitleMaxLength/2 {
		truncated = truncated[:lastSpace]
	}
	return strings.TrimSpace(truncated) + "..."
}
