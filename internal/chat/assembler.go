// Package chat implements quill's response assembly state machine.
//
// A turn moves through the states
//
//	StateStreaming → StateToolPending → StateFollowUp → StatePostProcess → StateDone
//
// where the tool states are skipped when the model never requests a tool.
// The assembler drives the model's pull-based stream one increment at a
// time, honors at most one tool round-trip per turn, and finishes by
// running the caller's enabled post-processing chain over the final text.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/quillchat/quill/internal/llm"
	"github.com/quillchat/quill/internal/log"
	"github.com/quillchat/quill/internal/tools"
)

// State identifies a phase of response assembly.
type State int

const (
	StateStreaming State = iota
	StateToolPending
	StateFollowUp
	StatePostProcess
	StateDone
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateToolPending:
		return "tool_pending"
	case StateFollowUp:
		return "follow_up"
	case StatePostProcess:
		return "post_process"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Sentinel errors for turn execution.
var (
	// ErrStreamFailed indicates the model stream failed mid-turn.
	ErrStreamFailed = errors.New("model stream failed")

	// ErrFollowUpFailed indicates the post-tool follow-up call failed.
	ErrFollowUpFailed = errors.New("follow-up call failed")

	// ErrPostProcessFailed indicates a post-processing transform failed.
	// The Result returned alongside it carries the text as of the last
	// successful transform.
	ErrPostProcessFailed = errors.New("post-processing failed")
)

// UpdateFunc receives the growing response text after each increment.
// Returning an error aborts the turn.
type UpdateFunc func(ctx context.Context, text string) error

// Turn is the explicit per-request input to a single assembly run.
// There is no ambient session state: everything a turn depends on is here.
type Turn struct {
	// Prompt is the user's input for this turn.
	Prompt string

	// Model is the model identifier for both calls of the turn.
	Model string

	// History is the prior conversation, oldest first. The assembler
	// appends the prompt itself.
	History []llm.Message

	// Advertised names the tools offered to the model for invocation.
	Advertised []string

	// PostChain names the enabled post-processing tools, applied to the
	// final text in exactly this order.
	PostChain []string
}

// Result is the outcome of a completed turn.
type Result struct {
	// FinalText is the assistant text after post-processing. This is what
	// gets persisted.
	FinalText string

	// Updates are the incremental texts surfaced to the caller, in order.
	Updates []string

	// ToolCalls are the invocation requests honored this turn, if any.
	ToolCalls []llm.ToolCall
}

// Config contains the assembler's dependencies.
type Config struct {
	Client     llm.Client
	Registry   *tools.Registry
	Dispatcher *tools.Dispatcher
	Logger     log.Logger
}

func (cfg Config) validate() error {
	if cfg.Client == nil {
		return errors.New("model client is required")
	}
	if cfg.Registry == nil {
		return errors.New("tool registry is required")
	}
	if cfg.Dispatcher == nil {
		return errors.New("tool dispatcher is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Assembler runs conversation turns. It is stateless across turns and safe
// for concurrent use.
type Assembler struct {
	client     llm.Client
	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	logger     log.Logger
}

// New creates an Assembler.
func New(cfg Config) (*Assembler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Assembler{
		client:     cfg.Client,
		registry:   cfg.Registry,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
	}, nil
}

// Run executes one turn. onUpdate, when non-nil, is called with the growing
// text after every increment, in stream order.
//
// On a transport failure the returned error wraps ErrStreamFailed or
// ErrFollowUpFailed and the Result is nil; any partial text already
// delivered through onUpdate stands, but nothing is meant to be persisted.
// On a post-processing failure the error wraps ErrPostProcessFailed and a
// non-nil Result carries the text as of the last successful transform.
func (a *Assembler) Run(ctx context.Context, turn Turn, onUpdate UpdateFunc) (*Result, error) {
	messages := make([]llm.Message, 0, len(turn.History)+1)
	messages = append(messages, turn.History...)
	messages = append(messages, llm.UserMessage(turn.Prompt))
	schemas := a.registry.SchemaFor(turn.Advertised)

	req := llm.Request{
		Model:    turn.Model,
		Messages: messages,
		Tools:    schemas,
	}
	if len(schemas) > 0 {
		req.ToolChoice = llm.ToolChoiceAuto
	}

	stream, err := a.client.StreamChat(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStreamFailed, err)
	}
	defer func() {
		if closeErr := stream.Close(); closeErr != nil {
			a.logger.Debug("closing model stream", "error", closeErr)
		}
	}()

	state := StateStreaming
	var buf strings.Builder
	var updates []string
	var calls []llm.ToolCall

	for state == StateStreaming {
		chunk, recvErr := stream.Recv()
		switch {
		case errors.Is(recvErr, io.EOF):
			state = StatePostProcess
		case recvErr != nil:
			return nil, fmt.Errorf("%w: %w", ErrStreamFailed, recvErr)
		case len(chunk.ToolCalls) > 0:
			// At most one tool round-trip per turn: stop consuming the
			// stream as soon as the first invocation signal arrives.
			calls = chunk.ToolCalls
			state = StateToolPending
		case chunk.TextDelta != "":
			buf.WriteString(chunk.TextDelta)
			updates = append(updates, buf.String())
			if onUpdate != nil {
				if upErr := onUpdate(ctx, buf.String()); upErr != nil {
					return nil, fmt.Errorf("delivering update: %w", upErr)
				}
			}
		}
	}

	if state == StateToolPending {
		a.logger.Debug("tool invocation requested", "calls", len(calls))
		results := a.dispatcher.Resolve(calls)
		state = StateFollowUp

		// The follow-up conversation replays the original messages plus
		// the assistant's invocation and the resolved results; tool choice
		// "none" forbids further invocations.
		followUp := make([]llm.Message, 0, len(messages)+1+len(results))
		followUp = append(followUp, messages...)
		followUp = append(followUp, llm.Message{Role: llm.RoleAssistant, ToolCalls: calls})
		followUp = append(followUp, results...)

		text, followErr := a.client.Complete(ctx, llm.Request{
			Model:      turn.Model,
			Messages:   followUp,
			Tools:      schemas,
			ToolChoice: llm.ToolChoiceNone,
		})
		if followErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrFollowUpFailed, followErr)
		}

		// The follow-up answer is authoritative; the partial pre-tool-call
		// text is discarded.
		buf.Reset()
		buf.WriteString(text)
		updates = append(updates, text)
		if onUpdate != nil {
			if upErr := onUpdate(ctx, text); upErr != nil {
				return nil, fmt.Errorf("delivering update: %w", upErr)
			}
		}
		state = StatePostProcess
	}

	final, postErr := a.registry.Apply(buf.String(), turn.PostChain)
	result := &Result{
		FinalText: final,
		Updates:   updates,
		ToolCalls: calls,
	}
	state = StateDone
	if postErr != nil {
		return result, fmt.Errorf("%w: %w", ErrPostProcessFailed, postErr)
	}

	if final != buf.String() {
		result.Updates = append(result.Updates, final)
		if onUpdate != nil {
			if upErr := onUpdate(ctx, final); upErr != nil {
				return nil, fmt.Errorf("delivering update: %w", upErr)
			}
		}
	}

	a.logger.Debug("turn complete", "state", state, "updates", len(result.Updates), "tool_calls", len(calls))
	return result, nil
}
