package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

// Message role constants.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultConversationTitle is the placeholder title for new conversations.
const DefaultConversationTitle = "New Chat"

// User is an authenticated account, keyed by the identity provider's
// subject ID. Created on first login; only the display name is refreshed
// afterwards.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

// Conversation is a chat thread owned by exactly one user.
type Conversation struct {
	ID        uuid.UUID
	UserID    string
	Title     string
	CreatedAt time.Time
}

// Message is a single turn entry within a conversation. Rows are
// append-only; Seq fixes creation order.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           string
	Content        string
	Seq            int64
	CreatedAt      time.Time
}

// ToolConfig is the per-(user, tool) enablement flag. Rows default to
// disabled and are materialized lazily.
type ToolConfig struct {
	UserID  string
	Name    string
	Enabled bool
}
