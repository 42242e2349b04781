package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/quillchat/quill/internal/log"
	"github.com/quillchat/quill/internal/store"
)

func TestConversationsCreate(t *testing.T) {
	fs := newFakeStore()
	h := NewConversations(fs, log.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/conversations", strings.NewReader(`{"title":"Plans"}`))
	req = req.WithContext(WithUserID(req.Context(), "sub-1"))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp conversationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Title != "Plans" {
		t.Errorf("title = %q", resp.Title)
	}
}

func TestConversationsCreateDefaultsTitle(t *testing.T) {
	fs := newFakeStore()
	h := NewConversations(fs, log.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/conversations", nil)
	req = req.WithContext(WithUserID(req.Context(), "sub-1"))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	var resp conversationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Title != store.DefaultConversationTitle {
		t.Errorf("title = %q, want %q", resp.Title, store.DefaultConversationTitle)
	}
}

func TestConversationsList(t *testing.T) {
	fs := newFakeStore()
	_, _ = fs.CreateConversation(context.Background(), "sub-1", "Mine")
	_, _ = fs.CreateConversation(context.Background(), "sub-2", "Theirs")
	h := NewConversations(fs, log.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	req = req.WithContext(WithUserID(req.Context(), "sub-1"))
	rec := httptest.NewRecorder()
	h.List(rec, req)

	var resp struct {
		Conversations []conversationResponse `json:"conversations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(resp.Conversations) != 1 || resp.Conversations[0].Title != "Mine" {
		t.Errorf("conversations = %+v", resp.Conversations)
	}
}

func TestConversationsMessages(t *testing.T) {
	fs := newFakeStore()
	conv, _ := fs.CreateConversation(context.Background(), "sub-1", "History")
	_, _ = fs.AppendMessage(context.Background(), conv.ID, store.RoleUser, "hi")
	_, _ = fs.AppendMessage(context.Background(), conv.ID, store.RoleAssistant, "HI!")
	h := NewConversations(fs, log.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/"+conv.ID.String()+"/messages", nil)
	req.SetPathValue("id", conv.ID.String())
	req = req.WithContext(WithUserID(req.Context(), "sub-1"))
	rec := httptest.NewRecorder()
	h.Messages(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Conversation conversationResponse `json:"conversation"`
		Messages     []messageResponse    `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Conversation.Title != "History" {
		t.Errorf("conversation = %+v", resp.Conversation)
	}
	if len(resp.Messages) != 2 || resp.Messages[0].Content != "hi" || resp.Messages[1].Role != store.RoleAssistant {
		t.Errorf("messages = %+v", resp.Messages)
	}
}

func TestConversationsMessagesOwnership(t *testing.T) {
	fs := newFakeStore()
	conv, _ := fs.CreateConversation(context.Background(), "sub-2", "Private")
	h := NewConversations(fs, log.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/"+conv.ID.String()+"/messages", nil)
	req.SetPathValue("id", conv.ID.String())
	req = req.WithContext(WithUserID(req.Context(), "sub-1"))
	rec := httptest.NewRecorder()
	h.Messages(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestConversationsMessagesBadID(t *testing.T) {
	h := NewConversations(newFakeStore(), log.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/nope/messages", nil)
	req.SetPathValue("id", "nope")
	req = req.WithContext(WithUserID(req.Context(), "sub-1"))
	rec := httptest.NewRecorder()
	h.Messages(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestConversationsMessagesUnknownID(t *testing.T) {
	h := NewConversations(newFakeStore(), log.NewNop())

	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/conversations/"+id.String()+"/messages", nil)
	req.SetPathValue("id", id.String())
	req = req.WithContext(WithUserID(req.Context(), "sub-1"))
	rec := httptest.NewRecorder()
	h.Messages(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
