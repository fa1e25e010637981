// Package index implements the Indexer: it walks every available
// Provider's sessions, normalizes them into the Store, and keeps the Store
// in sync via full and incremental passes (§4.6).
package index

import (
	"context"
	"log/slog"
	"time"

	"github.com/ovachiever/agent-sessions/internal/chunk"
	"github.com/ovachiever/agent-sessions/internal/embed"
	"github.com/ovachiever/agent-sessions/internal/model"
	"github.com/ovachiever/agent-sessions/internal/providers"
	"github.com/ovachiever/agent-sessions/internal/store"
	"github.com/ovachiever/agent-sessions/internal/tagger"
)

// ProgressFunc is called after each session is processed during a reindex
// pass, reporting (sessions processed so far, total sessions, session ID).
type ProgressFunc func(current, total int, sessionID string)

// Stats summarizes one reindex or incremental-update pass.
type Stats struct {
	SessionsIndexed int
	SessionsSkipped int
	MessagesIndexed int
	ChunksCreated   int
	Duration        time.Duration
}

// Indexer discovers sessions from every registered Provider and commits
// them into the Store, running each session through the
// Discovered → Parsed → Chunked → Tagged → Embedded → Committed pipeline.
type Indexer struct {
	store    *store.Store
	registry *providers.Registry
	chunker  *chunk.Chunker
	tagger   *tagger.Tagger
	embedder embed.Embedder // may be nil: chunks are then committed unembedded
	log      *slog.Logger
}

// Config configures an Indexer. Store and Registry are required.
type Config struct {
	Store    *store.Store
	Registry *providers.Registry
	Embedder embed.Embedder
	Logger   *slog.Logger
}

// New constructs an Indexer.
func New(cfg Config) *Indexer {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{
		store:    cfg.Store,
		registry: cfg.Registry,
		chunker:  chunk.New(),
		tagger:   tagger.New(),
		embedder: cfg.Embedder,
		log:      log,
	}
}

// ReindexOptions configures a FullReindex pass.
type ReindexOptions struct {
	// MetadataOnly skips chunking/tagging/embedding and message storage,
	// indexing only session-level metadata. Used for a fast initial sync.
	MetadataOnly bool
	Progress     ProgressFunc
}

// FullReindex discovers and (re-)indexes every session from every available
// provider. It is the Discovered stage's entry point: every session file a
// provider reports is attempted, and a failure at any later stage only
// skips that one session.
func (ix *Indexer) FullReindex(ctx context.Context, opts ReindexOptions) (Stats, error) {
	start := time.Now()
	var stats Stats

	type discovered struct {
		provider providers.Provider
		path     string
	}
	var all []discovered
	for _, p := range ix.registry.Available() {
		paths, err := p.DiscoverSessionFiles()
		if err != nil {
			ix.log.Warn("index: discover failed", "provider", p.Name(), "error", err)
			continue
		}
		for _, path := range paths {
			all = append(all, discovered{p, path})
		}
	}

	touchedProjects := make(map[string]struct{})
	bySessionHarness := make(map[string][]model.Session)

	for i, d := range all {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		sess, messages, err := d.provider.ParseSession(d.path)
		if err != nil {
			ix.log.Warn("index: parse failed", "path", d.path, "error", err)
			stats.SessionsSkipped++
			continue
		}
		if sess == nil {
			continue
		}

		result, err := ix.indexSession(*sess, messages, opts.MetadataOnly)
		if err != nil {
			ix.log.Warn("index: skipped session", "session_id", sess.ID, "error", err)
			stats.SessionsSkipped++
			continue
		}

		stats.SessionsIndexed++
		stats.MessagesIndexed += result.messages
		stats.ChunksCreated += result.chunks
		if sess.ProjectPath != "" {
			touchedProjects[sess.ProjectPath] = struct{}{}
		}
		bySessionHarness[d.provider.Name()] = append(bySessionHarness[d.provider.Name()], *sess)

		if opts.Progress != nil {
			opts.Progress(i+1, len(all), sess.ID)
		}
	}

	ix.linkOrphanedChildren(bySessionHarness)

	if err := ix.recomputeProjectStats(touchedProjects); err != nil {
		ix.log.Warn("index: project stats recompute failed", "error", err)
	}

	stats.Duration = time.Since(start)
	ix.log.Info("index: full reindex complete",
		"sessions", stats.SessionsIndexed, "skipped", stats.SessionsSkipped,
		"messages", stats.MessagesIndexed, "chunks", stats.ChunksCreated,
		"duration_ms", stats.Duration.Milliseconds())
	return stats, nil
}

// IncrementalOptions configures an IncrementalUpdate pass.
type IncrementalOptions struct {
	// MaxAge, if non-zero, bounds the pass: providers whose discovery is
	// not recency-bounded (FastDiscovery false) are skipped entirely, and
	// new (never-indexed) sessions older than MaxAge are skipped. In the
	// providers that do run, already-indexed sessions that changed are
	// re-indexed regardless of age.
	MaxAge   time.Duration
	Progress ProgressFunc
}

// IncrementalUpdate indexes only sessions that are new or whose source file
// mtime is newer than the last time they were indexed, per §4.6's
// incremental mode.
func (ix *Indexer) IncrementalUpdate(ctx context.Context, opts IncrementalOptions) (Stats, error) {
	start := time.Now()
	var stats Stats

	var ageCutoff int64
	if opts.MaxAge > 0 {
		ageCutoff = time.Now().Add(-opts.MaxAge).Unix()
	}

	indexed, err := ix.indexedMtimes()
	if err != nil {
		return stats, err
	}

	type toIndex struct {
		provider providers.Provider
		path     string
	}
	var work []toIndex

	for _, p := range ix.registry.Available() {
		if ageCutoff != 0 && !p.FastDiscovery() {
			ix.log.Info("index: skipping provider for bounded incremental pass",
				"provider", p.Name(), "reason", "discovery is not recency-bounded")
			continue
		}

		fast, err := p.DiscoverSessionsFast()
		if err != nil {
			ix.log.Warn("index: fast discover failed", "provider", p.Name(), "error", err)
			continue
		}
		paths, err := p.DiscoverSessionFiles()
		if err != nil {
			ix.log.Warn("index: discover failed", "provider", p.Name(), "error", err)
			continue
		}
		pathByStem := make(map[string]string, len(paths))
		for _, path := range paths {
			pathByStem[sessionIDFromPath(path)] = path
		}

		for sessionID, mtime := range fast {
			path, ok := pathByStem[sessionID]
			if !ok {
				continue
			}
			prevIndexedAt, known := indexed[sessionID]
			switch {
			case !known:
				if ageCutoff != 0 && mtime < ageCutoff {
					continue
				}
				work = append(work, toIndex{p, path})
			case mtime > prevIndexedAt:
				work = append(work, toIndex{p, path})
			}
		}
	}

	touchedProjects := make(map[string]struct{})
	bySessionHarness := make(map[string][]model.Session)

	for i, w := range work {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		sess, messages, err := w.provider.ParseSession(w.path)
		if err != nil {
			ix.log.Warn("index: parse failed", "path", w.path, "error", err)
			stats.SessionsSkipped++
			continue
		}
		if sess == nil {
			continue
		}

		result, err := ix.indexSession(*sess, messages, false)
		if err != nil {
			ix.log.Warn("index: skipped session", "session_id", sess.ID, "error", err)
			stats.SessionsSkipped++
			continue
		}

		stats.SessionsIndexed++
		stats.MessagesIndexed += result.messages
		stats.ChunksCreated += result.chunks
		if sess.ProjectPath != "" {
			touchedProjects[sess.ProjectPath] = struct{}{}
		}
		bySessionHarness[w.provider.Name()] = append(bySessionHarness[w.provider.Name()], *sess)

		if opts.Progress != nil {
			opts.Progress(i+1, len(work), sess.ID)
		}
	}

	ix.linkOrphanedChildren(bySessionHarness)

	if err := ix.recomputeProjectStats(touchedProjects); err != nil {
		ix.log.Warn("index: project stats recompute failed", "error", err)
	}

	stats.Duration = time.Since(start)
	ix.log.Info("index: incremental update complete",
		"sessions", stats.SessionsIndexed, "skipped", stats.SessionsSkipped,
		"messages", stats.MessagesIndexed, "chunks", stats.ChunksCreated,
		"duration_ms", stats.Duration.Milliseconds())
	return stats, nil
}

// allSessionsLimit is large enough that GetSessions never truncates the
// full session table; SQLite's LIMIT 0 means "zero rows", not "unlimited",
// so a real cap is required here.
const allSessionsLimit = 1 << 30

// indexedMtimes returns, for every already-indexed session, the time it was
// last indexed.
func (ix *Indexer) indexedMtimes() (map[string]int64, error) {
	sessions, err := ix.store.GetSessions(model.SessionFilter{}, allSessionsLimit, 0)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(sessions))
	for _, s := range sessions {
		out[s.ID] = s.IndexedAt
	}
	return out, nil
}

type indexResult struct {
	messages int
	chunks   int
}

// indexSession runs one session through Parsed → Chunked → Tagged →
// Embedded → Committed. Any stage's error aborts just this session; the
// caller treats that as Skipped and continues with siblings.
func (ix *Indexer) indexSession(sess model.Session, messages []model.Message, metadataOnly bool) (indexResult, error) {
	sess.IndexedAt = time.Now().Unix()
	if sess.SourceMtime == 0 {
		sess.SourceMtime = sess.IndexedAt
	}

	turnCount := 0
	for _, m := range messages {
		if m.Role == model.RoleUser {
			turnCount++
		}
	}
	sess.TurnCount = turnCount
	sess.MessageCount = len(messages)

	// Safe parent linkage: the schema enforces a foreign key on parent_id,
	// so a dangling reference must be cleared here rather than surfacing as
	// an upsert error.
	if sess.ParentID != "" {
		parent, err := ix.store.GetSession(sess.ParentID)
		if err != nil || parent == nil {
			sess.ParentID = ""
			sess.IsChild = false
			sess.ChildType = ""
		}
	}

	var tags []string
	var chunks []model.Chunk
	if !metadataOnly {
		tags = ix.tagger.Tags(sess, messages)
		chunks = ix.chunker.Chunk(sess, messages)
	}
	sess.AutoTags = tags

	if err := ix.store.UpsertSession(sess); err != nil {
		return indexResult{}, err
	}

	if metadataOnly {
		return indexResult{}, nil
	}

	if err := ix.store.UpsertMessages(sess.ID, messages); err != nil {
		return indexResult{}, err
	}

	if ix.embedder != nil && len(chunks) > 0 {
		ix.embedChunks(chunks)
	}

	if err := ix.store.UpsertChunks(sess.ID, chunks); err != nil {
		return indexResult{}, err
	}

	return indexResult{messages: len(messages), chunks: len(chunks)}, nil
}

// embedChunks fills in Embedding/EmbeddingModel for each chunk in place,
// swallowing embedder failures: an unembedded chunk is still committed and
// still serves the lexical pass, per §4.6's "Embedded (may be partial)"
// state.
func (ix *Indexer) embedChunks(chunks []model.Chunk) {
	ctx := context.Background()
	if !ix.embedder.Available(ctx) {
		return
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		ix.log.Warn("index: embedding batch failed", "error", err)
		return
	}
	for i := range chunks {
		if i < len(vectors) && vectors[i] != nil {
			chunks[i].Embedding = vectors[i]
			chunks[i].EmbeddingModel = ix.embedder.ModelName()
		}
	}
}

// linkOrphanedChildren resolves ParentID for children whose provider could
// only mark IsChild via a textual/heuristic signature (Claude Code, Droid)
// rather than an explicit parent reference (OpenCode), by asking each
// provider to match its own parents against its own children.
func (ix *Indexer) linkOrphanedChildren(bySessionHarness map[string][]model.Session) {
	for name, sessions := range bySessionHarness {
		p, ok := ix.registry.Get(name)
		if !ok {
			continue
		}
		for _, parent := range sessions {
			if parent.IsChild {
				continue
			}
			children := p.FindChildren(parent, sessions)
			for _, child := range children {
				if child.ParentID != "" {
					continue
				}
				child.ParentID = parent.ID
				if err := ix.store.UpsertSession(child); err != nil {
					ix.log.Warn("index: child link failed", "child_id", child.ID, "parent_id", parent.ID, "error", err)
				}
			}
		}
	}
}

func (ix *Indexer) recomputeProjectStats(touched map[string]struct{}) error {
	if len(touched) == 0 {
		return nil
	}
	paths := make([]string, 0, len(touched))
	for p := range touched {
		paths = append(paths, p)
	}
	return ix.store.RecomputeProjectStats(paths)
}

// sessionIDFromPath derives the session ID a provider's DiscoverSessionsFast
// uses from one of its DiscoverSessionFiles paths: the file stem.
func sessionIDFromPath(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			base = path[i+1:]
			break
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}
