// Package readapi is the stable query surface a UI collaborator talks to:
// it is the only component allowed to see Store, Search and Indexer
// directly, and it never speaks index internals to its own callers.
// The CLI commands under cmd/agent-sessions call through it exactly as
// an interactive UI would.
package readapi

import (
	"context"
	"fmt"

	"github.com/ovachiever/agent-sessions/internal/index"
	"github.com/ovachiever/agent-sessions/internal/model"
	"github.com/ovachiever/agent-sessions/internal/search"
	"github.com/ovachiever/agent-sessions/internal/store"
)

// API is the Read API facade: list/filter sessions, fetch messages,
// run search, and drive reindexing, all against one Store.
type API struct {
	store   *store.Store
	engine  *search.Engine
	indexer *index.Indexer

	childLinkWindowSeconds int64
	cosineFloor            float64
	combinedFloor          float64
}

// Config wires an API instance to its collaborators. Engine and Indexer
// are optional: a nil Engine degrades Search to an error, a nil Indexer
// degrades the reindex operations the same way, so a caller that only
// needs to browse and read never has to build them. CosineFloor and
// CombinedFloor, when zero, fall back to the package defaults in Engine.
type Config struct {
	Store                  *store.Store
	Engine                 *search.Engine
	Indexer                *index.Indexer
	ChildLinkWindowSeconds int64
	CosineFloor            float64
	CombinedFloor          float64
}

// New builds an API. Store must not be nil.
func New(cfg Config) *API {
	window := cfg.ChildLinkWindowSeconds
	if window <= 0 {
		window = 7200
	}
	return &API{
		store:                  cfg.Store,
		engine:                 cfg.Engine,
		indexer:                cfg.Indexer,
		childLinkWindowSeconds: window,
		cosineFloor:            cfg.CosineFloor,
		combinedFloor:          cfg.CombinedFloor,
	}
}

// ListSessions returns sessions matching filter, newest-modified first,
// bounded by limit/offset.
func (a *API) ListSessions(filter model.SessionFilter, limit, offset int) ([]model.Session, error) {
	return a.store.GetSessions(filter, limit, offset)
}

// GetSession returns one session by id, or nil if it doesn't exist.
func (a *API) GetSession(id string) (*model.Session, error) {
	return a.store.GetSession(id)
}

// GetMessages returns every message of a session in sequence order.
func (a *API) GetMessages(sessionID string) ([]model.Message, error) {
	return a.store.GetSessionMessages(sessionID)
}

// GetRelatedChildren resolves the child sessions linked to parent,
// using the configured child-link time window as a fallback heuristic
// when task-invocation-based linking (done at index time) found none.
func (a *API) GetRelatedChildren(parent model.Session) ([]model.Session, error) {
	return a.store.GetRelatedChildren(parent, a.childLinkWindowSeconds)
}

// Search runs a hybrid lexical/semantic query and logs it to the search
// history table. filter narrows results by harness/project/child-status;
// the zero value matches everything.
func (a *API) Search(ctx context.Context, query string, limit int, filter model.SessionFilter) ([]search.Result, error) {
	if a.engine == nil {
		return nil, fmt.Errorf("search: no engine configured")
	}
	return a.engine.Search(ctx, query, search.Options{
		Limit:         limit,
		Filter:        filter,
		CosineFloor:   a.cosineFloor,
		CombinedFloor: a.combinedFloor,
	})
}

// ReindexIncremental re-indexes sessions new or changed since the last
// pass.
func (a *API) ReindexIncremental(ctx context.Context, opts index.IncrementalOptions) (index.Stats, error) {
	if a.indexer == nil {
		return index.Stats{}, fmt.Errorf("reindex: no indexer configured")
	}
	return a.indexer.IncrementalUpdate(ctx, opts)
}

// ReindexFull re-processes every session from scratch.
func (a *API) ReindexFull(ctx context.Context, opts index.ReindexOptions) (index.Stats, error) {
	if a.indexer == nil {
		return index.Stats{}, fmt.Errorf("reindex: no indexer configured")
	}
	return a.indexer.FullReindex(ctx, opts)
}
