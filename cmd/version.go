package cmd

import "fmt"

// Version is set at build time via -ldflags.
var Version = "dev"

// runVersion displays version information.
func runVersion() {
	fmt.Printf("quill %s\n", Version)
}
