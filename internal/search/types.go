// Package search implements the hybrid lexical/semantic retrieval core: a
// BM25 full-text pass over the Store's FTS5 indices, a brute-force cosine
// pass over cached chunk embeddings, and min-max-floor fusion of the two.
package search

import (
	"github.com/ovachiever/agent-sessions/internal/model"
)

// NormalizationFloor is the lower bound of a min-max normalized score range.
// It keeps a weak-but-real signal from collapsing to zero when fused against
// a strong signal from the other pass.
const NormalizationFloor = 0.5

// Default fusion weights. They must sum to 1.0.
const (
	DefaultLexicalWeight  = 0.3
	DefaultSemanticWeight = 0.7
)

// DefaultCosineFloor drops a session from the semantic pass when its best
// chunk similarity falls below this threshold.
const DefaultCosineFloor = 0.35

// DefaultCombinedFloor drops a fused result whose combined score falls
// below this threshold.
const DefaultCombinedFloor = 0.2

// DefaultLimit is the result count used when Options.Limit is zero.
const DefaultLimit = 50

// Weights holds the lexical/semantic fusion weights. The engine reads these
// once at construction from config; they are fixed-but-configurable inputs,
// not recomputed per query, so there is no query classifier in this package.
type Weights struct {
	Lexical  float64
	Semantic float64
}

// DefaultWeights returns the 0.3 lexical / 0.7 semantic default split.
func DefaultWeights() Weights {
	return Weights{Lexical: DefaultLexicalWeight, Semantic: DefaultSemanticWeight}
}

// Options configures a single Search call. The zero value uses every
// engine-level default.
type Options struct {
	// Limit is the number of fused results to return.
	Limit int

	// Weights overrides the engine's configured fusion weights for this
	// call. The zero value means "use the engine's configured weights".
	Weights Weights

	// CosineFloor overrides DefaultCosineFloor for this call.
	CosineFloor float64

	// CombinedFloor overrides DefaultCombinedFloor for this call.
	CombinedFloor float64

	// Filter narrows which sessions the engine considers.
	Filter model.SessionFilter
}

// Result is one fused, ranked hit.
type Result struct {
	Session      model.Session
	Combined     float64
	LexicalNorm  float64 // 0 if the session had no lexical match
	SemanticNorm float64 // 0 if the session had no semantic match
	InLexical    bool
	InSemantic   bool
}
