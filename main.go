// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Tessera.
//
// Usage:
//
//	go run . [flags]
//	./tessera [flags]
//
// This launches the Tessera CLI. See --help for options.
package main

import (
	"log"
	"os"

	"github.com/tessera-auth/tessera/ui/cli"
)

// main is the entrypoint for the Tessera CLI.
func main() {
	if err := cli.Execute(); err != nil {
		log.Printf("Tessera CLI error: %v", err)
		os.Exit(1)
	}
}
