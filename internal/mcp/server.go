// Package mcp exposes the quill tool registry over the Model Context
// Protocol, so external MCP clients can call the same transforms the
// chat pipeline uses.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quillchat/quill/internal/log"
	"github.com/quillchat/quill/internal/tools"
)

// Server wraps the MCP SDK server around a tool registry.
type Server struct {
	mcpServer *mcp.Server
	registry  *tools.Registry
	logger    log.Logger
}

// Config holds MCP server configuration.
type Config struct {
	Name     string
	Version  string
	Registry *tools.Registry
	Logger   log.Logger
}

// TransformInput is the input every registry tool accepts.
type TransformInput struct {
	Text string `json:"text" jsonschema:"The text to transform"`
}

// NewServer creates an MCP server with every registry tool registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{mcpServer: mcpServer, registry: cfg.Registry, logger: cfg.Logger}
	for _, name := range cfg.Registry.Names() {
		if err := s.registerTool(name); err != nil {
			return nil, fmt.Errorf("registering %s: %w", name, err)
		}
	}
	return s, nil
}

// Run starts the MCP server on the given transport. Blocks until the
// transport closes or ctx is canceled.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

func (s *Server) registerTool(name string) error {
	tool, ok := s.registry.Get(name)
	if !ok {
		return fmt.Errorf("unknown tool %q", name)
	}

	schema := tool.Schema()
	mcpTool := &mcp.Tool{
		Name:        schema.Name,
		Description: schema.Description,
		InputSchema: schema.Parameters,
	}

	mcp.AddTool(s.mcpServer, mcpTool, func(ctx context.Context, req *mcp.CallToolRequest, in TransformInput) (*mcp.CallToolResult, any, error) {
		out, err := tool.Transform(in.Text)
		if err != nil {
			s.logger.Warn("tool failed", "tool", name, "error", err)
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)}},
				IsError: true,
			}, nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: out}},
		}, nil, nil
	})
	return nil
}
