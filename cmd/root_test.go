package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"scan", "status", "migrate", "keywords", "cursors", "cache", "import"} {
		assert.True(t, names[want], "command %s not registered", want)
	}
}

func TestScanFlags(t *testing.T) {
	assert.NotNil(t, scanCmd.Flags().Lookup("once"))
	assert.NotNil(t, scanCmd.Flags().Lookup("duration"))
	assert.NotNil(t, scanCmd.Flags().Lookup("batch-size"))
	assert.NotNil(t, scanCmd.Flags().Lookup("run-tag"))
}
