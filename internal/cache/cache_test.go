package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryCacheGetMissWhenEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.json")
	c := NewSummaryCache(path)

	_, ok := c.Get("sess-1", "hash-1")
	assert.False(t, ok)
}

func TestSummaryCacheSetGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.json")
	c := NewSummaryCache(path)

	c.Set("sess-1", "hash-1", "fixed a race in the file watcher")

	summary, ok := c.Get("sess-1", "hash-1")
	require.True(t, ok)
	assert.Equal(t, "fixed a race in the file watcher", summary)
}

func TestSummaryCacheGetMissOnHashMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.json")
	c := NewSummaryCache(path)

	c.Set("sess-1", "hash-1", "did something")

	_, ok := c.Get("sess-1", "hash-2")
	assert.False(t, ok, "a changed content hash must invalidate the cached summary")
}

func TestSummaryCacheSavePersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.json")
	c := NewSummaryCache(path)
	c.Set("sess-1", "hash-1", "persisted summary")
	require.NoError(t, c.Save())

	reloaded := NewSummaryCache(path)
	summary, ok := reloaded.Get("sess-1", "hash-1")
	require.True(t, ok)
	assert.Equal(t, "persisted summary", summary)
}

func TestSummaryCacheSaveNoopWhenClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.json")
	c := NewSummaryCache(path)
	require.NoError(t, c.Save())
}

func TestNewSummaryCacheToleratesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	c := NewSummaryCache(path)
	_, ok := c.Get("anything", "anything")
	assert.False(t, ok)
}

func TestComputeContentHashStableForSameInput(t *testing.T) {
	h1 := ComputeContentHash("fix the login bug", "fixed it by checking the token expiry")
	h2 := ComputeContentHash("fix the login bug", "fixed it by checking the token expiry")
	assert.Equal(t, h1, h2)
}

func TestComputeContentHashDiffersForDifferentInput(t *testing.T) {
	h1 := ComputeContentHash("fix the login bug", "fixed it")
	h2 := ComputeContentHash("add a new feature", "added it")
	assert.NotEqual(t, h1, h2)
}

func TestMetadataCacheSetGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	c := NewMetadataCache(path)

	c.Set("sess-1", 1700000000, map[string]string{"harness": "claude-code"})

	tags, ok := c.Get("sess-1", 1700000000)
	require.True(t, ok)
	assert.Equal(t, "claude-code", tags["harness"])
}

func TestMetadataCacheGetMissOnMtimeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	c := NewMetadataCache(path)
	c.Set("sess-1", 1700000000, map[string]string{"harness": "droid"})

	_, ok := c.Get("sess-1", 1700000001)
	assert.False(t, ok, "a changed source mtime must invalidate the cached metadata")
}

func TestMetadataCacheSavePersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	c := NewMetadataCache(path)
	c.Set("sess-1", 42, map[string]string{"k": "v"})
	require.NoError(t, c.Save())

	reloaded := NewMetadataCache(path)
	tags, ok := reloaded.Get("sess-1", 42)
	require.True(t, ok)
	assert.Equal(t, "v", tags["k"])
}
