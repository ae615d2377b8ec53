// Package main provides the chromakey CLI tool.
//
// Usage:
//
//	chromakey [flags] <command> [args]
//
// Commands:
//
//	key     - Key a still image against a key color, write PNG with alpha
//	screen  - Key live screen captures through the compositor
//	pattern - Write the diagnostic gradient pattern
//
// Keying parameters come from flags or a YAML preset file
// (--preset studio.yaml).
package main

import (
	"fmt"
	"os"

	"github.com/gogpu/chromakey/cmd/chromakey/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
