package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmpty(t *testing.T) {
	out := normalize(map[string]float64{})
	assert.Empty(t, out)
}

func TestNormalizeSingleValueMapsToOne(t *testing.T) {
	out := normalize(map[string]float64{"a": 5})
	assert.Equal(t, 1.0, out["a"])
}

func TestNormalizeAllEqualMapsToOne(t *testing.T) {
	out := normalize(map[string]float64{"a": 3, "b": 3, "c": 3})
	assert.Equal(t, 1.0, out["a"])
	assert.Equal(t, 1.0, out["b"])
	assert.Equal(t, 1.0, out["c"])
}

func TestNormalizeFloorAndCeiling(t *testing.T) {
	out := normalize(map[string]float64{"min": 0, "max": 10})
	assert.Equal(t, NormalizationFloor, out["min"])
	assert.Equal(t, 1.0, out["max"])
}

func TestNormalizeMidpoint(t *testing.T) {
	out := normalize(map[string]float64{"min": 0, "mid": 5, "max": 10})
	// midpoint -> FLOOR + (1-FLOOR)*0.5
	expected := NormalizationFloor + (1-NormalizationFloor)*0.5
	assert.InDelta(t, expected, out["mid"], 1e-9)
}

func TestFuseBothSignalsWeightedSum(t *testing.T) {
	lex := map[string]float64{"s1": 1.0}
	sem := map[string]float64{"s1": 1.0}
	weights := DefaultWeights()

	fused := fuse(lex, sem, weights, 0)
	if assert.Len(t, fused, 1) {
		assert.InDelta(t, weights.Lexical*1.0+weights.Semantic*1.0, fused[0].combined, 1e-9)
		assert.True(t, fused[0].inLexical)
		assert.True(t, fused[0].inSemantic)
	}
}

func TestFuseLexicalOnlyIsHalved(t *testing.T) {
	lex := map[string]float64{"s1": 0.8}
	sem := map[string]float64{}

	fused := fuse(lex, sem, DefaultWeights(), 0)
	if assert.Len(t, fused, 1) {
		assert.InDelta(t, 0.4, fused[0].combined, 1e-9)
		assert.True(t, fused[0].inLexical)
		assert.False(t, fused[0].inSemantic)
	}
}

func TestFuseSemanticOnlyIsHalved(t *testing.T) {
	lex := map[string]float64{}
	sem := map[string]float64{"s1": 0.6}

	fused := fuse(lex, sem, DefaultWeights(), 0)
	if assert.Len(t, fused, 1) {
		assert.InDelta(t, 0.3, fused[0].combined, 1e-9)
		assert.False(t, fused[0].inLexical)
		assert.True(t, fused[0].inSemantic)
	}
}

func TestFuseDropsBelowCombinedFloor(t *testing.T) {
	lex := map[string]float64{"weak": 0.1}
	sem := map[string]float64{}

	fused := fuse(lex, sem, DefaultWeights(), 0.2)
	assert.Empty(t, fused)
}

func TestFuseOrdersByCombinedDescending(t *testing.T) {
	lex := map[string]float64{"low": 0.5, "high": 1.0}
	sem := map[string]float64{}

	fused := fuse(lex, sem, DefaultWeights(), 0)
	if assertLen(t, fused, 2) {
		assert.Equal(t, "high", fused[0].sessionID)
		assert.Equal(t, "low", fused[1].sessionID)
	}
}

func TestFuseSemanticParaphraseCanOutrankLexicalMatch(t *testing.T) {
	// §4.7 example: B is a pure paraphrase (semantic only), A is a pure
	// lexical match. Both are single-signal, so each scores half its
	// normalized score: B outranks A when its normalized semantic score
	// exceeds A's normalized lexical score (0.45 vs 0.30 here).
	lex := map[string]float64{"A": 0.6}
	sem := map[string]float64{"B": 0.9}
	weights := DefaultWeights()

	fused := fuse(lex, sem, weights, 0)
	if assertLen(t, fused, 2) {
		assert.Equal(t, "B", fused[0].sessionID)
	}
}

func assertLen(t *testing.T, fused []fusedScore, n int) bool {
	t.Helper()
	return assert.Len(t, fused, n)
}
