// Package sse provides Server-Sent Events utilities for streaming responses.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Writer wraps an http.ResponseWriter for SSE streaming. Payloads are
// JSON-encoded so multi-line text never breaks event framing.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter creates a new SSE writer and sets appropriate headers.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flusher interface")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	return &Writer{w: w, flusher: flusher}, nil
}

func (w *Writer) writeEvent(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if _, err := fmt.Fprintf(w.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// WriteChunk sends one accumulated rendering of the assistant's reply.
// Each chunk carries the full text so far, not a delta.
func (w *Writer) WriteChunk(ctx context.Context, text string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context canceled: %w", ctx.Err())
	default:
	}
	return w.writeEvent("chunk", map[string]string{"text": text})
}

// WriteDone sends the terminal event carrying the final reply and the
// conversation it was persisted under.
func (w *Writer) WriteDone(ctx context.Context, conversationID, text string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context canceled: %w", ctx.Err())
	default:
	}
	return w.writeEvent("done", map[string]string{
		"conversation_id": conversationID,
		"text":            text,
	})
}

// WriteError sends an error event.
func (w *Writer) WriteError(code, message string) error {
	return w.writeEvent("error", map[string]string{"code": code, "message": message})
}
