package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/quillchat/quill/internal/log"
)

// OpenAIConfig holds connection settings for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty = api.openai.com
}

// OpenAI implements Client against an OpenAI-compatible chat completion API.
type OpenAI struct {
	client *openai.Client
	logger log.Logger
}

// NewOpenAI creates a model client for the configured endpoint.
func NewOpenAI(cfg OpenAIConfig, logger log.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}, nil
}

// StreamChat opens a streaming chat completion.
func (c *OpenAI) StreamChat(ctx context.Context, req Request) (Stream, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, toOpenAIRequest(req, true))
	if err != nil {
		return nil, fmt.Errorf("opening completion stream: %w", err)
	}
	return &openaiStream{inner: stream}, nil
}

// Complete issues a non-streaming chat completion and returns the text.
func (c *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, toOpenAIRequest(req, false))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// openaiStream adapts the SDK stream to the Stream interface.
//
// The API fragments a single tool call across increments (name first, then
// argument pieces keyed by index). Fragments are merged into pending until
// the finish reason signals the calls are complete, at which point one
// Chunk carrying the whole batch is emitted.
type openaiStream struct {
	inner   *openai.ChatCompletionStream
	pending []ToolCall
	flushed bool
}

func (s *openaiStream) Recv() (Chunk, error) {
	for {
		resp, err := s.inner.Recv()
		if errors.Is(err, io.EOF) {
			// Some endpoints close the stream without a tool_calls finish
			// reason; flush anything still pending before reporting EOF.
			if len(s.pending) > 0 && !s.flushed {
				s.flushed = true
				return Chunk{ToolCalls: s.pending}, nil
			}
			return Chunk{}, io.EOF
		}
		if err != nil {
			return Chunk{}, fmt.Errorf("receiving stream increment: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}

		choice := resp.Choices[0]
		if len(choice.Delta.ToolCalls) > 0 {
			s.pending = mergeToolCallDeltas(s.pending, choice.Delta.ToolCalls)
		}
		if choice.FinishReason == openai.FinishReasonToolCalls && len(s.pending) > 0 {
			s.flushed = true
			return Chunk{ToolCalls: s.pending}, nil
		}
		if choice.Delta.Content != "" {
			return Chunk{TextDelta: choice.Delta.Content}, nil
		}
	}
}

func (s *openaiStream) Close() error {
	s.inner.Close()
	return nil
}

// mergeToolCallDeltas folds streamed tool-call fragments into the pending
// batch. Fragments carry an index identifying which call they extend;
// argument text accumulates by concatenation.
func mergeToolCallDeltas(pending []ToolCall, deltas []openai.ToolCall) []ToolCall {
	for _, d := range deltas {
		idx := len(pending)
		if d.Index != nil {
			idx = *d.Index
		}
		for len(pending) <= idx {
			pending = append(pending, ToolCall{})
		}
		if d.ID != "" {
			pending[idx].ID = d.ID
		}
		if d.Function.Name != "" {
			pending[idx].Name = d.Function.Name
		}
		pending[idx].Arguments += d.Function.Arguments
	}
	return pending
}

func toOpenAIRequest(req Request, stream bool) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(req.Messages)),
		Stream:   stream,
	}
	for _, m := range req.Messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out.Messages = append(out.Messages, msg)
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if req.ToolChoice != "" {
		out.ToolChoice = req.ToolChoice
	}
	return out
}
