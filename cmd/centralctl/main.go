// Centralctl queries the network management cloud API from the command line.
//
// It exposes every read operation of the API client as a subcommand and
// prints the typed result as YAML or JSON. Connection settings come from the
// same CENTRAL_* environment variables and flags as the exporter.
//
// Usage:
//
//	centralctl [command] [flags]
//
// See 'centralctl --help' for available commands.
package main

import (
	"fmt"
	"os"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
