// Package cache implements the legacy on-disk JSON caches: a summary
// cache keyed by session id + content hash, and a metadata cache keyed
// by session id + source mtime. Both predate the Store's summaries
// table and are kept for one-time migration into it.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	amanerrors "github.com/ovachiever/agent-sessions/internal/errors"
)

// DefaultSummaryCachePath mirrors the Python original's
// ~/.factory/session-summaries.json location.
func DefaultSummaryCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".factory", "session-summaries.json")
	}
	return filepath.Join(home, ".factory", "session-summaries.json")
}

// DefaultMetadataCachePath is the legacy per-session metadata cache
// location, alongside the summary cache.
func DefaultMetadataCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".factory", "session-metadata.json")
	}
	return filepath.Join(home, ".factory", "session-metadata.json")
}

// summaryEntry is one record in the on-disk summary cache file.
type summaryEntry struct {
	Hash    string `json:"hash"`
	Summary string `json:"summary"`
}

// SummaryCache is a thread-safe, file-backed cache of AI-generated
// session summaries, keyed by session ID and invalidated by a content
// hash. Concurrent processes coordinate through an advisory file lock
// on Save, matching the Store's single-writer discipline.
type SummaryCache struct {
	path string
	mu   sync.Mutex
	data map[string]summaryEntry
	dirty bool
}

// NewSummaryCache loads (or initializes empty) the summary cache at
// path. A missing or corrupt file is treated as an empty cache rather
// than an error, matching the original's best-effort load.
func NewSummaryCache(path string) *SummaryCache {
	c := &SummaryCache{path: path, data: make(map[string]summaryEntry)}
	c.load()
	return c
}

func (c *SummaryCache) load() {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return
	}
	var data map[string]summaryEntry
	if json.Unmarshal(raw, &data) != nil {
		return
	}
	c.data = data
}

// Get returns the cached summary for sessionID if its stored hash
// matches contentHash.
func (c *SummaryCache) Get(sessionID, contentHash string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[sessionID]
	if !ok || entry.Hash != contentHash {
		return "", false
	}
	return entry.Summary, true
}

// Set records a summary for sessionID under contentHash. The change is
// buffered in memory; call Save to persist it.
func (c *SummaryCache) Set(sessionID, contentHash, summary string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[sessionID] = summaryEntry{Hash: contentHash, Summary: summary}
	c.dirty = true
}

// Save writes the cache to disk if it has unsaved changes, guarded by
// an advisory lock so two processes don't interleave writes.
func (c *SummaryCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return amanerrors.IOError("create summary cache directory", err)
	}

	lock := flock.New(c.path + ".lock")
	if err := lock.Lock(); err != nil {
		return amanerrors.IOError("acquire summary cache lock", err)
	}
	defer lock.Unlock()

	raw, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return amanerrors.InternalError("marshal summary cache", err)
	}
	if err := os.WriteFile(c.path, raw, 0o644); err != nil {
		return amanerrors.IOError("write summary cache", err)
	}
	c.dirty = false
	return nil
}

// Entries returns a snapshot of every cached session ID, hash, and
// summary, for migration into the Store's summaries table.
func (c *SummaryCache) Entries() map[string]struct{ Hash, Summary string } {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]struct{ Hash, Summary string }, len(c.data))
	for id, entry := range c.data {
		out[id] = struct{ Hash, Summary string }{Hash: entry.Hash, Summary: entry.Summary}
	}
	return out
}

// ComputeContentHash hashes the first 500 bytes of a session's opening
// prompt and the first 500 bytes of its closing response, the same
// truncation the original cache used for cheap invalidation, and returns
// the first 12 hex characters of the MD5 digest.
func ComputeContentHash(firstPrompt, lastResponse string) string {
	content := truncate(firstPrompt, 500) + "|" + truncate(lastResponse, 500)
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])[:12]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// metadataEntry is one record in the legacy per-session metadata cache.
type metadataEntry struct {
	Mtime int64             `json:"mtime"`
	Tags  map[string]string `json:"tags,omitempty"`
}

// MetadataCache is the legacy per-session metadata side-cache,
// invalidated by source file mtime rather than content hash.
type MetadataCache struct {
	path  string
	mu    sync.Mutex
	data  map[string]metadataEntry
	dirty bool
}

// NewMetadataCache loads (or initializes empty) the metadata cache at
// path.
func NewMetadataCache(path string) *MetadataCache {
	c := &MetadataCache{path: path, data: make(map[string]metadataEntry)}
	raw, err := os.ReadFile(path)
	if err == nil {
		var data map[string]metadataEntry
		if json.Unmarshal(raw, &data) == nil {
			c.data = data
		}
	}
	return c
}

// Get returns the cached metadata for sessionID if its stored mtime
// matches sourceMtime.
func (c *MetadataCache) Get(sessionID string, sourceMtime int64) (map[string]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[sessionID]
	if !ok || entry.Mtime != sourceMtime {
		return nil, false
	}
	return entry.Tags, true
}

// Set records metadata for sessionID under sourceMtime.
func (c *MetadataCache) Set(sessionID string, sourceMtime int64, tags map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[sessionID] = metadataEntry{Mtime: sourceMtime, Tags: tags}
	c.dirty = true
}

// Save writes the cache to disk if it has unsaved changes.
func (c *MetadataCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return amanerrors.IOError("create metadata cache directory", err)
	}

	lock := flock.New(c.path + ".lock")
	if err := lock.Lock(); err != nil {
		return amanerrors.IOError("acquire metadata cache lock", err)
	}
	defer lock.Unlock()

	raw, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return amanerrors.InternalError("marshal metadata cache", err)
	}
	if err := os.WriteFile(c.path, raw, 0o644); err != nil {
		return amanerrors.IOError("write metadata cache", err)
	}
	c.dirty = false
	return nil
}
