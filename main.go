// Copyright (c) 2025 Tallyfin
// Tally - personal finance ledger
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Tally.
//
// Usage:
//
//	go run . [flags]
//	./tally [flags]
//
// This launches the Tally CLI. See --help for options.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/tallyfin/tally/ui/cli"
)

// version is set at build time using -ldflags, e.g.:
// go build -ldflags "-X main.version=1.2.3"
var version = "dev"

// main is the entrypoint for the Tally CLI.
func main() {
	if os.Getenv("TALLY_SHOW_VERSION") == "1" {
		fmt.Fprintf(os.Stderr, "Tally version: %s\n", version)
	}

	if err := cli.Execute(); err != nil {
		log.Printf("Tally CLI error: %v", err)
		os.Exit(1)
	}
}
