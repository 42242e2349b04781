package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpSdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quillchat/quill/internal/log"
	"github.com/quillchat/quill/internal/mcp"
	"github.com/quillchat/quill/internal/tools"
)

// runMCP starts the MCP tool server on stdio transport. It needs no
// database or model client, only the tool registry.
func runMCP() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Stdout carries the protocol, logs go to stderr.
	logger := log.NewWithWriter(os.Stderr, log.Config{})
	logger.Info("starting MCP server", "version", Version)

	registry, err := tools.NewRegistry(tools.Builtins()...)
	if err != nil {
		return fmt.Errorf("building tool registry: %w", err)
	}

	server, err := mcp.NewServer(mcp.Config{
		Name:     "quill",
		Version:  Version,
		Registry: registry,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	logger.Info("MCP server ready", "transport", "stdio", "tools", len(registry.Names()))

	if err := server.Run(ctx, &mcpSdk.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	logger.Info("MCP server shut down gracefully")
	return nil
}
