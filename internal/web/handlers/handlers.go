// Package handlers provides the HTTP handlers for the quill API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/quillchat/quill/internal/auth"
	"github.com/quillchat/quill/internal/chat"
	"github.com/quillchat/quill/internal/log"
	"github.com/quillchat/quill/internal/store"
)

// Unexported context key type to prevent collisions.
type userIDKey struct{}

var ctxKeyUserID = userIDKey{}

// WithUserID stores the authenticated user's ID on the context. The
// session middleware calls this after verifying the cookie.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, id)
}

// UserID retrieves the authenticated user's ID from the request context.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKeyUserID).(string)
	return id, ok
}

// Store is the persistence capability the handlers depend on.
// *store.Store satisfies it; tests substitute fakes.
type Store interface {
	EnsureUser(ctx context.Context, id, email, name string) (*store.User, error)
	User(ctx context.Context, id string) (*store.User, error)
	CreateConversation(ctx context.Context, userID, title string) (*store.Conversation, error)
	Conversation(ctx context.Context, id uuid.UUID) (*store.Conversation, error)
	Conversations(ctx context.Context, userID string) ([]*store.Conversation, error)
	AppendMessage(ctx context.Context, conversationID uuid.UUID, role, content string) (*store.Message, error)
	Messages(ctx context.Context, conversationID uuid.UUID) ([]*store.Message, error)
	ToolConfigs(ctx context.Context, userID string, known []string) ([]*store.ToolConfig, error)
	SetToolEnabled(ctx context.Context, userID, name string, enabled bool) error
}

// TurnRunner executes one chat turn. *chat.Assembler satisfies it.
type TurnRunner interface {
	Run(ctx context.Context, turn chat.Turn, onUpdate chat.UpdateFunc) (*chat.Result, error)
}

// IdentityProvider performs the sign-in flow. *auth.Google satisfies it.
type IdentityProvider interface {
	LoginURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.Identity, error)
}

func writeJSON(w http.ResponseWriter, logger log.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("writing response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger log.Logger, status int, message string) {
	writeJSON(w, logger, status, map[string]string{"error": message})
}
