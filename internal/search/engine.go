package search

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ovachiever/agent-sessions/internal/embed"
	"github.com/ovachiever/agent-sessions/internal/model"
	"github.com/ovachiever/agent-sessions/internal/store"
)

// ErrNilDependency is returned by New when a required dependency is nil.
var ErrNilDependency = errors.New("search: nil dependency")

// ftsLimitMultiplier implements §4.7 step 1's "limit = 2x requested" rule
// for both full-text indices.
const ftsLimitMultiplier = 2

// semanticLimitMultiplier implements §4.7 step 2's "keep the top 2x
// requested by similarity" rule.
const semanticLimitMultiplier = 2

// Engine is the hybrid retrieval core: a lexical pass over the Store's FTS5
// indices, a semantic pass over cached chunk embeddings, and min-max-floor
// fusion of the two, per §4.7.
type Engine struct {
	store    *store.Store
	embedder embed.Embedder // may be nil; semantic pass is then skipped
	weights  Weights
	log      *slog.Logger
}

// Config configures an Engine. Embedder may be nil, in which case every
// search degrades to lexical-only per §4.7's failure semantics.
type Config struct {
	Store    *store.Store
	Embedder embed.Embedder
	Weights  Weights
	Logger   *slog.Logger
}

// New constructs an Engine. Store is required; Embedder and Logger are
// optional.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, ErrNilDependency
	}
	weights := cfg.Weights
	if weights.Lexical == 0 && weights.Semantic == 0 {
		weights = DefaultWeights()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:    cfg.Store,
		embedder: cfg.Embedder,
		weights:  weights,
		log:      log,
	}, nil
}

// Search runs the full hybrid pipeline and returns up to opts.Limit ranked
// results, logging the query into the Store's search history.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	start := time.Now()

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	weights := opts.Weights
	if weights.Lexical == 0 && weights.Semantic == 0 {
		weights = e.weights
	}
	cosineFloor := opts.CosineFloor
	if cosineFloor == 0 {
		cosineFloor = DefaultCosineFloor
	}
	combinedFloor := opts.CombinedFloor
	if combinedFloor == 0 {
		combinedFloor = DefaultCombinedFloor
	}

	var (
		lexRaw map[string]float64
		semRaw map[string]float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lexRaw, err = e.lexicalPass(query, limit)
		return err
	})
	g.Go(func() error {
		var err error
		semRaw, err = e.semanticPass(gctx, query, limit, cosineFloor)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lexNorm := normalize(lexRaw)
	semNorm := normalize(semRaw)

	// Failure semantics: no embedder, or the query embedding failed — semRaw
	// is nil, so every hit lands in lexNorm only and `fuse` halves it.
	fused := fuse(lexNorm, semNorm, weights, combinedFloor)
	if len(fused) > limit {
		fused = fused[:limit]
	}

	results, err := e.resolveSessions(fused, opts.Filter)
	if err != nil {
		return nil, err
	}

	e.logQuery(query, results, time.Since(start))
	return results, nil
}

// lexicalPass implements §4.7 step 1: query both full-text indices, take
// each session's minimum (best) bm25 across them, and invert the sign so
// higher is better. Normalization happens in the caller.
func (e *Engine) lexicalPass(query string, limit int) (map[string]float64, error) {
	msgHits, err := e.store.SearchMessagesFTS(query, limit*ftsLimitMultiplier)
	if err != nil {
		return nil, err
	}
	sessHits, err := e.store.SearchSessionsFTS(query, limit*ftsLimitMultiplier)
	if err != nil {
		return nil, err
	}

	best := make(map[string]float64)
	consider := func(hits []store.FTSHit) {
		for _, h := range hits {
			if existing, ok := best[h.SessionID]; !ok || h.BM25 < existing {
				best[h.SessionID] = h.BM25
			}
		}
	}
	consider(msgHits)
	consider(sessHits)

	raw := make(map[string]float64, len(best))
	for id, bm25 := range best {
		raw[id] = -bm25
	}
	return raw, nil
}

// semanticPass implements §4.7 step 2: embed the query, cosine-scan the
// cached chunk embeddings, aggregate per session by maximum similarity, drop
// sessions below cosineFloor, and keep the top semanticLimitMultiplier*limit.
// Returns (nil, nil) if no embedder is configured or it is unavailable,
// which the caller treats as "semantic pass skipped".
func (e *Engine) semanticPass(ctx context.Context, query string, limit int, cosineFloor float64) (map[string]float64, error) {
	if e.embedder == nil || !e.embedder.Available(ctx) {
		return nil, nil
	}

	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil || queryVec == nil {
		return nil, nil
	}

	chunks, err := e.store.GetAllChunkEmbeddings()
	if err != nil {
		return nil, err
	}

	best := make(map[string]float64)
	for _, c := range chunks {
		sim := cosineSimilarity(queryVec, c.Embedding)
		if existing, ok := best[c.SessionID]; !ok || sim > existing {
			best[c.SessionID] = sim
		}
	}

	for id, sim := range best {
		if sim < cosineFloor {
			delete(best, id)
		}
	}

	return topN(best, limit*semanticLimitMultiplier), nil
}

// cosineSimilarity returns the cosine similarity of two equal-length
// vectors, or 0 if their lengths differ (e.g. the embedder's model changed
// between indexing and querying).
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// topN returns the n highest-scoring entries of raw, or raw itself if it
// already has n or fewer entries.
func topN(raw map[string]float64, n int) map[string]float64 {
	if n <= 0 || len(raw) <= n {
		return raw
	}
	type kv struct {
		id    string
		score float64
	}
	all := make([]kv, 0, len(raw))
	for id, score := range raw {
		all = append(all, kv{id, score})
	}
	// Insertion sort is fine at the sizes a single session-transcript corpus
	// produces, and keeps the selection deterministic.
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].score > all[j-1].score; j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}
	out := make(map[string]float64, n)
	for _, kv := range all[:n] {
		out[kv.id] = kv.score
	}
	return out
}

// resolveSessions turns fused scores into full Result values, applying the
// caller's filter and preserving fusion order.
func (e *Engine) resolveSessions(fused []fusedScore, filter model.SessionFilter) ([]Result, error) {
	results := make([]Result, 0, len(fused))
	for _, f := range fused {
		sess, err := e.store.GetSession(f.sessionID)
		if err != nil || sess == nil {
			continue
		}
		if !matchesFilter(*sess, filter) {
			continue
		}
		results = append(results, Result{
			Session:      *sess,
			Combined:     f.combined,
			LexicalNorm:  f.lexicalNorm,
			SemanticNorm: f.semanticNorm,
			InLexical:    f.inLexical,
			InSemantic:   f.inSemantic,
		})
	}
	return results, nil
}

func matchesFilter(sess model.Session, filter model.SessionFilter) bool {
	if filter.Harness != "" && sess.Harness != filter.Harness {
		return false
	}
	if filter.Project != "" && sess.ProjectPath != filter.Project {
		return false
	}
	if filter.IsChild != nil && sess.IsChild != *filter.IsChild {
		return false
	}
	return true
}

// logQuery implements §4.7 step 5: log the query, result count, top-10
// session identifiers, and elapsed time. Logging failures are swallowed —
// a broken search log must never fail a search request.
func (e *Engine) logQuery(query string, results []Result, elapsed time.Duration) {
	top := make([]string, 0, 10)
	for i, r := range results {
		if i >= 10 {
			break
		}
		top = append(top, r.Session.ID)
	}
	entry := model.SearchLogEntry{
		Query:        query,
		ResultCount:  len(results),
		TopSessionID: top,
		DurationMS:   elapsed.Milliseconds(),
	}
	if err := e.store.LogSearch(entry); err != nil {
		e.log.Warn("search: failed to log query", "error", err)
	}
}
