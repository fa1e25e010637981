// Package vector provides embedding (de)serialization and the in-process
// cosine-similarity cache used by hybrid search. Embeddings are persisted
// as packed little-endian float32 blobs rather than through a persisted
// ANN graph: §4.7 calls for a brute-force scan over a cached, explicitly
// invalidated working set, not a vector index.
package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Serialize packs a float32 vector into a little-endian byte blob.
func Serialize(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Deserialize reconstitutes a float32 vector from a little-endian byte
// blob produced by Serialize.
func Deserialize(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d not a multiple of 4", len(blob))
	}
	n := len(blob) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v, nil
}

// CosineSimilarity returns the cosine similarity of a and b, or 0 if
// either vector has zero magnitude or their lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
