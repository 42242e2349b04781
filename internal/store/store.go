// Package store provides quill's conversation persistence over PostgreSQL.
//
// Thread safety: Store is safe for concurrent use; it holds no state
// beyond the connection pool.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quillchat/quill/internal/log"
)

// DB is the database capability Store depends on.
// *pgxpool.Pool satisfies it; tests may substitute their own.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements the conversation persistence façade.
type Store struct {
	db     DB
	logger log.Logger
}

// New creates a Store over the given database.
func New(db DB, logger log.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// EnsureUser creates the user row on first login, or refreshes the display
// name on subsequent logins. Email is immutable after creation.
func (s *Store) EnsureUser(ctx context.Context, id, email, name string) (*User, error) {
	u := &User{}
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, email, name, created_at`,
		id, email, name,
	).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ensuring user: %w", err)
	}
	return u, nil
}

// User fetches a user by subject ID.
func (s *Store) User(ctx context.Context, id string) (*User, error) {
	u := &User{}
	err := s.db.QueryRow(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return u, nil
}

// CreateConversation creates a conversation under the given user.
// An empty title falls back to the placeholder.
func (s *Store) CreateConversation(ctx context.Context, userID, title string) (*Conversation, error) {
	if title == "" {
		title = DefaultConversationTitle
	}
	c := &Conversation{}
	err := s.db.QueryRow(ctx, `
		INSERT INTO conversations (user_id, title)
		VALUES ($1, $2)
		RETURNING id, user_id, title, created_at`,
		userID, title,
	).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	s.logger.Debug("created conversation", "id", c.ID, "user", userID)
	return c, nil
}

// Conversation fetches a single conversation by ID.
func (s *Store) Conversation(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	c := &Conversation{}
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, title, created_at FROM conversations WHERE id = $1`, id,
	).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching conversation: %w", err)
	}
	return c, nil
}

// Conversations lists a user's conversations, newest first.
func (s *Store) Conversations(ctx context.Context, userID string) ([]*Conversation, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, title, created_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var list []*Conversation
	for rows.Next() {
		c := &Conversation{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return list, nil
}

// AppendMessage appends a message to a conversation. Messages are never
// updated or deleted.
func (s *Store) AppendMessage(ctx context.Context, conversationID uuid.UUID, role, content string) (*Message, error) {
	m := &Message{}
	err := s.db.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING id, conversation_id, role, content, seq, created_at`,
		conversationID, role, content,
	).Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Seq, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("appending message: %w", err)
	}
	return m, nil
}

// Messages lists a conversation's messages in creation order.
func (s *Store) Messages(ctx context.Context, conversationID uuid.UUID) ([]*Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, conversation_id, role, content, seq, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY seq`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var list []*Message
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Seq, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return list, nil
}

// ToolConfigs returns the user's tool enablement rows for the known tool
// names, lazily inserting disabled rows for names not yet present.
// Re-materializing is a no-op: existing rows are never touched.
// Result order follows the known-name order.
func (s *Store) ToolConfigs(ctx context.Context, userID string, known []string) ([]*ToolConfig, error) {
	if len(known) == 0 {
		return nil, nil
	}

	if _, err := s.db.Exec(ctx, `
		INSERT INTO tool_configs (user_id, name)
		SELECT $1, unnest($2::text[])
		ON CONFLICT (user_id, name) DO NOTHING`,
		userID, known,
	); err != nil {
		return nil, fmt.Errorf("materializing tool configs: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT user_id, name, enabled
		FROM tool_configs
		WHERE user_id = $1 AND name = ANY($2::text[])`,
		userID, known,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tool configs: %w", err)
	}
	defer rows.Close()

	byName := make(map[string]*ToolConfig, len(known))
	for rows.Next() {
		tc := &ToolConfig{}
		if err := rows.Scan(&tc.UserID, &tc.Name, &tc.Enabled); err != nil {
			return nil, fmt.Errorf("scanning tool config: %w", err)
		}
		byName[tc.Name] = tc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing tool configs: %w", err)
	}

	list := make([]*ToolConfig, 0, len(known))
	for _, name := range known {
		if tc, ok := byName[name]; ok {
			list = append(list, tc)
		}
	}
	return list, nil
}

// SetToolEnabled sets the enabled flag for a (user, tool) pair, creating
// the row if it does not exist yet.
func (s *Store) SetToolEnabled(ctx context.Context, userID, name string, enabled bool) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO tool_configs (user_id, name, enabled)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, name) DO UPDATE SET enabled = EXCLUDED.enabled`,
		userID, name, enabled,
	)
	if err != nil {
		return fmt.Errorf("setting tool %q: %w", name, err)
	}
	return nil
}
