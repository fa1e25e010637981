package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedderDeterministic(t *testing.T) {
	e := NewStaticEmbedder768()
	a, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStaticEmbedderEmptyText(t *testing.T) {
	e := NewStaticEmbedder768()
	vec, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, Static768Dimensions), vec)
}

func TestStaticEmbedderDifferentTextsDiffer(t *testing.T) {
	e := NewStaticEmbedder768()
	a, _ := e.Embed(context.Background(), "golang channels")
	b, _ := e.Embed(context.Background(), "python asyncio")
	assert.NotEqual(t, a, b)
}

func TestStaticEmbedderClosedRejects(t *testing.T) {
	e := NewStaticEmbedder768()
	require.NoError(t, e.Close())
	_, err := e.Embed(context.Background(), "x")
	assert.Error(t, err)
}
