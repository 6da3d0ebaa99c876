// Package commands_test provides tests for CLI command creation.
package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "parqhub", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.Equal(t, Version, cmd.Version)

	// Global persistent flags
	flags := []string{"config", "data-dir", "catalog", "verbose"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}

	// Subcommands
	subcommands := []string{"serve", "sync", "files", "version"}
	for _, name := range subcommands {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "subcommand %q should be registered", name)
	}
}

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand()

	assert.Equal(t, "serve", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	// Verify flags exist
	flags := []string{"port", "watch"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewSyncCommand(t *testing.T) {
	cmd := NewSyncCommand()

	assert.Equal(t, "sync", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("columns"), "flag %q should exist", "columns")
}

func TestNewFilesCommand(t *testing.T) {
	cmd := NewFilesCommand()

	assert.Equal(t, "files", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
}
