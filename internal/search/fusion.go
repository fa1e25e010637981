package search

import "sort"

// lexicalHit is one session's best (lowest, i.e. best-matching) BM25 score
// across the message and session-metadata full-text indices, already
// sign-inverted so that higher is better.
type lexicalHit struct {
	sessionID string
	raw       float64 // inverted bm25, higher is better
}

// semanticHit is one session's best (maximum) cosine similarity across its
// chunk embeddings.
type semanticHit struct {
	sessionID string
	raw       float64 // cosine similarity in [-1, 1], higher is better
}

// normalize min-max normalizes raw into the floor-lifted range
// [NormalizationFloor, 1.0]. When every value is equal, every entry maps to
// 1.0. The input map is not mutated; normalize returns a fresh map keyed the
// same way.
func normalize(raw map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(raw))
	if len(raw) == 0 {
		return out
	}

	min, max := 0.0, 0.0
	first := true
	for _, v := range raw {
		if first {
			min, max = v, v
			first = false
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	for id, v := range raw {
		if max == min {
			out[id] = 1.0
			continue
		}
		out[id] = NormalizationFloor + (1-NormalizationFloor)*(v-min)/(max-min)
	}
	return out
}

// fusedScore is one session's fusion outcome before the engine has resolved
// the session ID into a full model.Session.
type fusedScore struct {
	sessionID    string
	combined     float64
	lexicalNorm  float64
	semanticNorm float64
	inLexical    bool
	inSemantic   bool
}

// fuse implements §4.7 step 3: union lexical and semantic normalized scores,
// combining sessions present in both as a weighted sum and sessions present
// in only one as their normalized score halved, then dropping anything below
// combinedFloor. Results are sorted by combined score descending.
func fuse(lexNorm, semNorm map[string]float64, weights Weights, combinedFloor float64) []fusedScore {
	ids := make(map[string]struct{}, len(lexNorm)+len(semNorm))
	for id := range lexNorm {
		ids[id] = struct{}{}
	}
	for id := range semNorm {
		ids[id] = struct{}{}
	}

	scores := make([]fusedScore, 0, len(ids))
	for id := range ids {
		lex, inLex := lexNorm[id]
		sem, inSem := semNorm[id]

		var combined float64
		switch {
		case inLex && inSem:
			combined = weights.Lexical*lex + weights.Semantic*sem
		case inLex:
			combined = 0.5 * lex
		case inSem:
			combined = 0.5 * sem
		}

		if combined < combinedFloor {
			continue
		}

		scores = append(scores, fusedScore{
			sessionID:    id,
			combined:     combined,
			lexicalNorm:  lex,
			semanticNorm: sem,
			inLexical:    inLex,
			inSemantic:   inSem,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		return compareFused(scores[i], scores[j])
	})
	return scores
}

// compareFused orders fused scores by combined score descending, then by
// session ID ascending for a deterministic tiebreak.
func compareFused(a, b fusedScore) bool {
	if a.combined != b.combined {
		return a.combined > b.combined
	}
	return a.sessionID < b.sessionID
}
