package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRemoteEmbedderRequiresAPIKey(t *testing.T) {
	_, err := NewRemoteEmbedder(RemoteConfig{APIKey: ""})
	assert.Error(t, err)
}

func TestShapeBatchesRespectsCountLimit(t *testing.T) {
	n := 250
	indices := make([]int, n)
	texts := make([]string, n)
	for i := 0; i < n; i++ {
		indices[i] = i
		texts[i] = "x"
	}

	batches := shapeBatches(indices, texts, 100)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0].texts, 100)
	assert.Len(t, batches[1].texts, 100)
	assert.Len(t, batches[2].texts, 50)
}

func TestShapeBatchesRespectsTokenLimit(t *testing.T) {
	big := strings.Repeat("a", TokenBatchLimit*4/2+4) // ~half the token budget each
	indices := []int{0, 1, 2}
	texts := []string{big, big, big}

	batches := shapeBatches(indices, texts, 100)
	assert.GreaterOrEqual(t, len(batches), 2)
}

func TestTruncateItemCapsLength(t *testing.T) {
	s := strings.Repeat("x", MaxCharsPerItem+500)
	out := truncateItem(s)
	assert.Len(t, out, MaxCharsPerItem)
}

func TestRemoteEmbedderEmbedRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		resp := remoteResponse{Data: []struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		}{
			{Embedding: []float64{1, 0, 0}, Index: 0},
		}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e, err := NewRemoteEmbedder(RemoteConfig{APIKey: "test-key", Endpoint: srv.URL, Dimensions: 3})
	require.NoError(t, err)
	defer e.Close()

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
}

func TestRemoteEmbedderEmptyTextShortCircuits(t *testing.T) {
	e, err := NewRemoteEmbedder(RemoteConfig{APIKey: "k", Dimensions: 5})
	require.NoError(t, err)
	defer e.Close()

	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 5), vec)
}

func TestRemoteEmbedderAvailableAfterClose(t *testing.T) {
	e, err := NewRemoteEmbedder(RemoteConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.True(t, e.Available(context.Background()))
	require.NoError(t, e.Close())
	assert.False(t, e.Available(context.Background()))
}
