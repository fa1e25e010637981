package readapi_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovachiever/agent-sessions/internal/index"
	"github.com/ovachiever/agent-sessions/internal/model"
	"github.com/ovachiever/agent-sessions/internal/readapi"
	"github.com/ovachiever/agent-sessions/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestListAndGetSession(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.UpsertSession(model.Session{ID: "s1", Harness: "claude-code", ProjectPath: "/p", ProjectName: "p", Title: "fix bug"}))

	api := readapi.New(readapi.Config{Store: st})

	sessions, err := api.ListSessions(model.SessionFilter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID)

	got, err := api.GetSession("s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fix bug", got.Title)

	missing, err := api.GetSession("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetMessages(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.UpsertSession(model.Session{ID: "s1", Harness: "claude-code", ProjectPath: "/p", ProjectName: "p"}))
	require.NoError(t, st.UpsertMessages("s1", []model.Message{
		{ID: "m0", SessionID: "s1", Role: model.RoleUser, Content: "hello", Sequence: 0},
		{ID: "m1", SessionID: "s1", Role: model.RoleAssistant, Content: "hi", Sequence: 1},
	}))

	api := readapi.New(readapi.Config{Store: st})
	messages, err := api.GetMessages("s1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hello", messages[0].Content)
}

func TestSearchWithoutEngineErrors(t *testing.T) {
	st := openTestStore(t)
	api := readapi.New(readapi.Config{Store: st})

	_, err := api.Search(context.Background(), "anything", 10, model.SessionFilter{})
	assert.Error(t, err)
}

func TestReindexWithoutIndexerErrors(t *testing.T) {
	st := openTestStore(t)
	api := readapi.New(readapi.Config{Store: st})

	_, err := api.ReindexIncremental(context.Background(), index.IncrementalOptions{})
	assert.Error(t, err)
}
