// Package testutil provides shared testing utilities for the quill project.
package testutil

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/quillchat/quill/internal/llm"
)

// MockClient provides deterministic model responses for testing.
// It matches the last user message against registered patterns and plays
// back the corresponding scripted stream or completion.
//
// Thread-safe for concurrent use.
type MockClient struct {
	mu          sync.Mutex
	streams     []streamRule
	completions []completionRule
	fallback    string

	streamRequests   []llm.Request
	completeRequests []llm.Request
}

type streamRule struct {
	pattern string // substring match in last user message, lower-cased
	chunks  []llm.Chunk
	err     error // returned after chunks are exhausted instead of io.EOF
	openErr error // returned from StreamChat itself
}

type completionRule struct {
	pattern string
	text    string
	err     error
}

// NewMockClient creates a mock with the given fallback text, streamed as a
// single chunk when no pattern matches.
func NewMockClient(fallback string) *MockClient {
	return &MockClient{fallback: fallback}
}

// AddStream registers a scripted stream for messages containing pattern.
// Rules are checked in registration order; first match wins.
func (m *MockClient) AddStream(pattern string, chunks ...llm.Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, streamRule{pattern: strings.ToLower(pattern), chunks: chunks})
}

// AddStreamError registers a stream that yields the given chunks and then
// fails with err instead of ending cleanly.
func (m *MockClient) AddStreamError(pattern string, err error, chunks ...llm.Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, streamRule{pattern: strings.ToLower(pattern), chunks: chunks, err: err})
}

// AddStreamOpenError makes StreamChat itself fail for matching messages.
func (m *MockClient) AddStreamOpenError(pattern string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, streamRule{pattern: strings.ToLower(pattern), openErr: err})
}

// AddCompletion registers a non-streaming response for matching messages.
func (m *MockClient) AddCompletion(pattern, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions = append(m.completions, completionRule{pattern: strings.ToLower(pattern), text: text})
}

// AddCompletionError makes Complete fail for matching messages.
func (m *MockClient) AddCompletionError(pattern string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions = append(m.completions, completionRule{pattern: strings.ToLower(pattern), err: err})
}

// StreamRequests returns a copy of all recorded StreamChat requests.
func (m *MockClient) StreamRequests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.streamRequests...)
}

// CompleteRequests returns a copy of all recorded Complete requests.
func (m *MockClient) CompleteRequests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.completeRequests...)
}

// StreamChat implements llm.Client.
func (m *MockClient) StreamChat(_ context.Context, req llm.Request) (llm.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamRequests = append(m.streamRequests, req)

	user := strings.ToLower(lastUserMessage(req.Messages))
	for _, rule := range m.streams {
		if strings.Contains(user, rule.pattern) {
			if rule.openErr != nil {
				return nil, rule.openErr
			}
			return &mockStream{chunks: rule.chunks, err: rule.err}, nil
		}
	}
	return &mockStream{chunks: []llm.Chunk{{TextDelta: m.fallback}}}, nil
}

// Complete implements llm.Client.
func (m *MockClient) Complete(_ context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeRequests = append(m.completeRequests, req)

	user := strings.ToLower(lastUserMessage(req.Messages))
	for _, rule := range m.completions {
		if strings.Contains(user, rule.pattern) {
			return rule.text, rule.err
		}
	}
	return m.fallback, nil
}

func lastUserMessage(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// mockStream plays back scripted chunks one Recv at a time.
type mockStream struct {
	mu     sync.Mutex
	chunks []llm.Chunk
	err    error
	pos    int
	closed bool
}

func (s *mockStream) Recv() (llm.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos < len(s.chunks) {
		c := s.chunks[s.pos]
		s.pos++
		return c, nil
	}
	if s.err != nil {
		return llm.Chunk{}, s.err
	}
	return llm.Chunk{}, io.EOF
}

func (s *mockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
