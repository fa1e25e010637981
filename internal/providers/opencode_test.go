package providers

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ovachiever/agent-sessions/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOpenCodeFixture(t *testing.T, dataDir, sessionID string, messages []map[string]any, parts map[string]string, meta map[string]any) {
	t.Helper()

	messageDir := filepath.Join(opencodeMessageDir(dataDir), sessionID)
	require.NoError(t, os.MkdirAll(messageDir, 0o755))

	for i, msg := range messages {
		raw, err := json.Marshal(msg)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(messageDir, indexedName(i)), raw, 0o644))
	}

	for msgID, text := range parts {
		partDir := filepath.Join(opencodePartDir(dataDir), msgID)
		require.NoError(t, os.MkdirAll(partDir, 0o755))
		part := map[string]any{"type": "text", "text": text}
		raw, err := json.Marshal(part)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(partDir, "part-0.json"), raw, 0o644))
	}

	if meta != nil {
		metaDir := filepath.Join(opencodeSessionMetaDir(dataDir), "proj1")
		require.NoError(t, os.MkdirAll(metaDir, 0o755))
		raw, err := json.Marshal(meta)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(metaDir, sessionID+".json"), raw, 0o644))
	}
}

func indexedName(i int) string {
	return "msg-" + string(rune('a'+i)) + ".json"
}

func TestOpenCodeParseSessionBasic(t *testing.T) {
	dataDir := t.TempDir()
	writeOpenCodeFixture(t, dataDir, "ses_abc", []map[string]any{
		{"id": "m1", "role": "user", "time": map[string]any{"created": int64(1735732800000)}, "path": map[string]any{"root": "/Users/dev/proj"}},
		{"id": "m2", "role": "assistant", "time": map[string]any{"created": int64(1735732810000), "completed": int64(1735732820000)}, "modelID": "gpt-5"},
	}, map[string]string{
		"m1": "fix the parser",
		"m2": "done, parser fixed",
	}, map[string]any{"title": "Fix parser session"})

	p := &OpenCodeProvider{dataDir: dataDir}
	virtualPath := filepath.Join(dataDir, "storage", "sessions", "ses_abc.opencode")

	sess, msgs, err := p.ParseSession(virtualPath)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "ses_abc", sess.ID)
	assert.Equal(t, "opencode", sess.Harness)
	assert.Equal(t, "Fix parser session", sess.Title)
	assert.Equal(t, "/Users/dev/proj", sess.ProjectPath)
	require.Len(t, msgs, 2)
	assert.Equal(t, "fix the parser", msgs[0].Content)
	assert.False(t, sess.IsChild)
}

func TestOpenCodeParentIDMarksChild(t *testing.T) {
	dataDir := t.TempDir()
	writeOpenCodeFixture(t, dataDir, "ses_child", []map[string]any{
		{"id": "m1", "role": "user", "time": map[string]any{"created": int64(1735732800000)}, "path": map[string]any{"root": "/Users/dev/proj"}},
	}, map[string]string{
		"m1": "single task only: review this function",
	}, map[string]any{"parentID": "ses_parent"})

	p := &OpenCodeProvider{dataDir: dataDir}
	virtualPath := filepath.Join(dataDir, "storage", "sessions", "ses_child.opencode")

	sess, _, err := p.ParseSession(virtualPath)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.True(t, sess.IsChild)
	assert.Equal(t, "ses_parent", sess.ParentID)
	assert.Equal(t, "single-task", sess.ChildType)
}

func TestOpenCodeFindChildrenByParentID(t *testing.T) {
	p := &OpenCodeProvider{}
	parent := model.Session{ID: "ses_parent", Harness: "opencode"}
	child := model.Session{ID: "ses_child", Harness: "opencode", ParentID: "ses_parent", IsChild: true}
	other := model.Session{ID: "ses_other", Harness: "opencode"}

	got := p.FindChildren(parent, []model.Session{child, other})
	require.Len(t, got, 1)
	assert.Equal(t, "ses_child", got[0].ID)
}
