// Package cmd provides CLI commands for quill.
//
// Commands:
//   - serve: HTTP chat server with SSE streaming
//   - mcp: Model Context Protocol server exposing the tool registry
//   - migrate: apply database migrations and exit
//
// All commands shut down gracefully via context cancellation.
package cmd

import (
	"fmt"
	"os"
)

// Execute is the main entry point for the quill CLI.
func Execute() error {
	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "mcp":
		return runMCP()
	case "migrate":
		return runMigrate()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("quill - browser chat client with tool-calling")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  quill serve      Start the HTTP chat server")
	fmt.Println("  quill mcp        Start the MCP tool server (stdio)")
	fmt.Println("  quill migrate    Apply database migrations and exit")
	fmt.Println("  quill --version  Show version information")
	fmt.Println("  quill --help     Show this help")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println("  Read from ./quill.yaml, overridable with QUILL_* environment")
	fmt.Println("  variables (QUILL_OPENAI_API_KEY, QUILL_SESSION_SECRET, ...).")
}
