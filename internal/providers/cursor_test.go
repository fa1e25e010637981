package providers

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/ovachiever/agent-sessions/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCursorDB(t *testing.T, dataDir string) {
	t.Helper()
	dbPath := cursorGlobalStorageDB(dataDir)
	require.NoError(t, os.MkdirAll(filepath.Dir(dbPath), 0o755))

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE cursorDiskKV (key TEXT PRIMARY KEY, value TEXT)`)
	require.NoError(t, err)

	composer := map[string]any{
		"composerData": map[string]any{
			"richText": `{"root":{"children":[{"type":"text","text":"fix the bug in auth"}]}}`,
		},
	}
	composerJSON, _ := json.Marshal(composer)
	_, err = db.Exec(`INSERT INTO cursorDiskKV (key, value) VALUES (?, ?)`,
		"backgroundComposerModalInputData:sess1", string(composerJSON))
	require.NoError(t, err)

	details := map[string]any{"model": "gpt-5", "lastResponse": "fixed it"}
	detailsJSON, _ := json.Marshal(details)
	_, err = db.Exec(`INSERT INTO cursorDiskKV (key, value) VALUES (?, ?)`,
		"bcCachedDetails:sess1", string(detailsJSON))
	require.NoError(t, err)
}

func TestCursorDiscoverSessionFiles(t *testing.T) {
	dataDir := t.TempDir()
	newTestCursorDB(t, dataDir)

	p := &CursorProvider{dataDir: dataDir}
	require.True(t, p.IsAvailable())

	files, err := p.DiscoverSessionFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0], "sess1")
}

func TestCursorParseSession(t *testing.T) {
	dataDir := t.TempDir()
	newTestCursorDB(t, dataDir)

	p := &CursorProvider{dataDir: dataDir}
	virtualPath := filepath.Join(dataDir, "sessions", "sess1.cursor")

	sess, msgs, err := p.ParseSession(virtualPath)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "sess1", sess.ID)
	assert.Equal(t, "cursor", sess.Harness)
	assert.Equal(t, "fix the bug in auth", sess.Title)
	require.Len(t, msgs, 2)
	assert.Equal(t, "fix the bug in auth", msgs[0].Content)
	assert.Equal(t, "fixed it", msgs[1].Content)
	assert.False(t, sess.IsChild)
}

func TestCursorFindChildrenAlwaysEmpty(t *testing.T) {
	p := NewCursorProvider()
	assert.Nil(t, p.FindChildren(model.Session{ID: "a"}, nil))
}
