package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovachiever/agent-sessions/internal/model"
	"github.com/ovachiever/agent-sessions/internal/store"
)

func TestRunProjectsListsIndexedProjects(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.Open(dbPath, store.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, st.UpsertSession(model.Session{ID: "s1", Harness: "claude-code", ProjectPath: "/p", ProjectName: "myproject", ModifiedAt: 1700000000}))
	require.NoError(t, st.RecomputeProjectStats([]string{"/p"}))
	require.NoError(t, st.Close())

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"--store", dbPath, "projects"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "myproject")
}

func TestRunProjectsEmptyStorePrintsMarker(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.Open(dbPath, store.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"--store", dbPath, "projects"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "∅")
}
