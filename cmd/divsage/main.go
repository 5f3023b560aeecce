package main

import (
	"os"

	"github.com/wonny/divsage/cmd/divsage/commands"
)

// main is the entry point for the divsage CLI
// Unified entry point: go run ./cmd/divsage [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
