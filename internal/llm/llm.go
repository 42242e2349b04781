// Package llm defines the model collaborator contract for quill.
//
// The interfaces here are defined by the consumer (the response assembler):
// a model is a source of either plain text deltas or tool invocation
// requests, consumed one increment at a time via a pull-based Stream.
package llm

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
)

// Message roles on the model wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Tool choice modes understood by the model collaborator.
const (
	// ToolChoiceAuto lets the model decide whether to invoke a tool.
	ToolChoiceAuto = "auto"

	// ToolChoiceNone forces a plain-text answer with no tool invocation.
	ToolChoiceNone = "none"
)

// ToolCall is a tool invocation request produced by the model mid-stream.
// Arguments carries the raw JSON payload as emitted by the model; it may be
// malformed and must be parsed defensively.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is a single entry in a model conversation.
//
// Assistant messages that requested tool invocations carry ToolCalls;
// tool-result messages carry the originating call in ToolCallID.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// UserMessage is a convenience constructor for a user turn.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// ToolResult builds a tool-result message answering the given call ID.
func ToolResult(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// ToolSchema is the wire-level descriptor advertised to the model so it can
// decide when to invoke a tool.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
}

// Request describes a single completion call against the model collaborator.
type Request struct {
	Model      string
	Messages   []Message
	Tools      []ToolSchema
	ToolChoice string // ToolChoiceAuto or ToolChoiceNone; empty when Tools is empty
}

// Chunk is one increment of a streaming response.
// Exactly one of the two fields is populated: a plain text delta, or a
// batch of tool invocation requests.
type Chunk struct {
	TextDelta string
	ToolCalls []ToolCall
}

// Stream is a pull-based sequence of response increments.
// Recv returns io.EOF when the model has exhausted the response.
// Close releases the underlying connection; it is safe to call after EOF.
type Stream interface {
	Recv() (Chunk, error)
	Close() error
}

// Client is the model collaborator capability injected into the assembler.
type Client interface {
	// StreamChat opens a streaming completion request.
	// The caller owns the returned Stream and must Close it.
	StreamChat(ctx context.Context, req Request) (Stream, error)

	// Complete issues a non-streaming completion request and returns the
	// final response text.
	Complete(ctx context.Context, req Request) (string, error)
}
