package cache

import (
	"path/filepath"
	"testing"

	"github.com/ovachiever/agent-sessions/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSummaryStore is an in-memory stand-in for *store.Store, scoped to
// the SummaryStore interface migration needs.
type fakeSummaryStore struct {
	rows map[string]model.Summary
}

func newFakeSummaryStore() *fakeSummaryStore {
	return &fakeSummaryStore{rows: make(map[string]model.Summary)}
}

func (f *fakeSummaryStore) GetSummary(sessionID string) (*model.Summary, error) {
	row, ok := f.rows[sessionID]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (f *fakeSummaryStore) UpsertSummary(sum model.Summary) error {
	f.rows[sum.SessionID] = sum
	return nil
}

func TestMigrateSummariesCopiesEveryEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.json")
	c := NewSummaryCache(path)
	c.Set("sess-1", "hash-1", "added retry logic")
	c.Set("sess-2", "hash-2", "refactored the parser")

	dst := newFakeSummaryStore()
	migrated, err := MigrateSummaries(c, dst, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, migrated)
	assert.Equal(t, "added retry logic", dst.rows["sess-1"].Text)
	assert.Equal(t, "hash-1", dst.rows["sess-1"].ContentHash)
}

func TestMigrateSummariesSkipsAlreadyMigrated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.json")
	c := NewSummaryCache(path)
	c.Set("sess-1", "hash-1", "legacy summary")

	dst := newFakeSummaryStore()
	dst.rows["sess-1"] = model.Summary{SessionID: "sess-1", Text: "already indexed summary"}

	migrated, err := MigrateSummaries(c, dst, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, migrated)
	assert.Equal(t, "already indexed summary", dst.rows["sess-1"].Text, "existing Store summary must not be overwritten")
}

func TestMigrateSummariesEmptyCacheMigratesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.json")
	c := NewSummaryCache(path)

	dst := newFakeSummaryStore()
	migrated, err := MigrateSummaries(c, dst, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, migrated)
}
