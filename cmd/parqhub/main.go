// Package main provides the ParqHub CLI.
package main

import (
	"os"

	"github.com/parqhub/parqhub/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
