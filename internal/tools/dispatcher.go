package tools

import (
	"encoding/json"

	"github.com/quillchat/quill/internal/llm"
	"github.com/quillchat/quill/internal/log"
)

// transformArgs is the argument shape every quill tool accepts.
type transformArgs struct {
	Text string `json:"text"`
}

// Dispatcher resolves model tool-invocation requests against a registry.
//
// Resolve is total: it never returns an error. A malformed argument payload
// falls back to empty arguments instead of aborting the batch, and an
// unknown tool name yields no result message for that call.
type Dispatcher struct {
	registry *Registry
	logger   log.Logger
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *Registry, logger log.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger}
}

// Resolve executes each requested tool and wraps the outputs as tool-result
// messages carrying the originating invocation IDs. Result order matches
// request order.
func (d *Dispatcher) Resolve(calls []llm.ToolCall) []llm.Message {
	results := make([]llm.Message, 0, len(calls))
	for _, call := range calls {
		tool, ok := d.registry.Get(call.Name)
		if !ok {
			d.logger.Debug("skipping unknown tool", "tool", call.Name, "call_id", call.ID)
			continue
		}

		var args transformArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			d.logger.Debug("malformed tool arguments, using empty args",
				"tool", call.Name, "call_id", call.ID, "error", err)
			args = transformArgs{}
		}

		out, err := tool.Transform(args.Text)
		if err != nil {
			d.logger.Warn("tool transform failed", "tool", call.Name, "call_id", call.ID, "error", err)
			continue
		}

		results = append(results, llm.ToolResult(call.ID, out))
	}
	return results
}
