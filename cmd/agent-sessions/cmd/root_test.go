package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmdRegistersExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"reindex", "search", "search-history", "browse", "projects", "providers", "stats", "cache", "version"} {
		assert.True(t, names[want], "expected subcommand %q to be registered", want)
	}
}

func TestRootCmdDebugFlagEnablesDebugLogging(t *testing.T) {
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"--debug", "providers"})
	require.NoError(t, root.Execute())
}

func TestExecuteDoesNotPanicOnVersionCommand(t *testing.T) {
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"version", "--short"})
	require.NoError(t, root.Execute())
	assert.NotEmpty(t, buf.String())
}
