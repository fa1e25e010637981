package embed

import "context"

// NullEmbedder reports itself unavailable and returns zero vectors without
// error. It is what NewEmbedder hands back when the remote provider is
// selected (the default) but no credential is configured: semantic search
// degrades to lexical-only rather than silently swapping in hash-based
// vectors from StaticEmbedder768.
type NullEmbedder struct {
	dims int
}

var _ Embedder = (*NullEmbedder)(nil)

// NewNullEmbedder creates an unavailable embedder of the given dimension.
func NewNullEmbedder(dims int) *NullEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &NullEmbedder{dims: dims}
}

// Embed returns a zero vector; it never errors.
func (e *NullEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, e.dims), nil
}

// EmbedBatch returns one zero vector per input text.
func (e *NullEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, e.dims)
	}
	return out, nil
}

// Dimensions returns the configured dimension.
func (e *NullEmbedder) Dimensions() int {
	return e.dims
}

// ModelName identifies this as the no-op embedder.
func (e *NullEmbedder) ModelName() string {
	return "unavailable"
}

// Available always reports false.
func (e *NullEmbedder) Available(_ context.Context) bool {
	return false
}

// Close is a no-op.
func (e *NullEmbedder) Close() error {
	return nil
}
