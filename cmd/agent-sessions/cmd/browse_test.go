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

func TestRunBrowseListsSessions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.Open(dbPath, store.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, st.UpsertSession(model.Session{ID: "s1", Harness: "claude-code", ProjectPath: "/p", ProjectName: "p", Title: "debug the parser", ModifiedAt: 1700000000}))
	require.NoError(t, st.Close())

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"--store", dbPath, "browse"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "debug the parser")
}

func TestRunBrowseChildrenOnlyFiltersOutParents(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.Open(dbPath, store.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, st.UpsertSession(model.Session{ID: "parent", Harness: "claude-code", ProjectPath: "/p", ProjectName: "p", Title: "top level"}))
	require.NoError(t, st.UpsertSession(model.Session{ID: "child", Harness: "claude-code", ProjectPath: "/p", ProjectName: "p", Title: "sub agent", IsChild: true, ParentID: "parent"}))
	require.NoError(t, st.Close())

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"--store", dbPath, "browse", "--children"})
	require.NoError(t, root.Execute())

	out := buf.String()
	assert.Contains(t, out, "sub agent")
	assert.NotContains(t, out, "top level")
}
