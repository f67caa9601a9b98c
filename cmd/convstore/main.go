// Package main provides the entry point for the convstore CLI.
package main

import (
	"fmt"
	"os"

	"conversation-store/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
