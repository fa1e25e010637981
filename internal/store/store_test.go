package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovachiever/agent-sessions/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := openTestStore(t)

	sess := model.Session{
		ID: "sess-1", Harness: "claude-code", ProjectPath: "/home/u/proj",
		ProjectName: "proj", Title: "hello", CreatedAt: 100, ModifiedAt: 200,
		MessageCount: 3, AutoTags: []string{"tag:a", "tag:b"},
	}
	require.NoError(t, s.UpsertSession(sess))

	got, err := s.GetSession("sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess.ProjectName, got.ProjectName)
	assert.Equal(t, []string{"tag:a", "tag:b"}, got.AutoTags)
}

func TestSessionDanglingParentRejected(t *testing.T) {
	s := openTestStore(t)

	child := model.Session{ID: "child-1", Harness: "h", ProjectPath: "/p", ProjectName: "p", IsChild: true, ParentID: "does-not-exist"}
	err := s.UpsertSession(child)
	require.Error(t, err) // foreign key violation: caller must resolve parent existence first (Indexer's job)
}

func TestMessagesDenseSequenceAndReplace(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertSession(model.Session{ID: "s1", Harness: "h", ProjectPath: "/p", ProjectName: "p"}))

	msgs := []model.Message{
		{ID: "m0", SessionID: "s1", Role: model.RoleUser, Content: "hello", Sequence: 0},
		{ID: "m1", SessionID: "s1", Role: model.RoleAssistant, Content: "```py\nprint(1)\n```", Sequence: 1, HasCode: true},
		{ID: "m2", SessionID: "s1", Role: model.RoleUser, Content: "ok", Sequence: 2},
	}
	require.NoError(t, s.UpsertMessages("s1", msgs))

	got, err := s.GetSessionMessages("s1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, m := range got {
		assert.Equal(t, i, m.Sequence)
	}
	assert.True(t, got[1].HasCode)

	// Re-index with fewer messages replaces wholesale.
	require.NoError(t, s.UpsertMessages("s1", msgs[:1]))
	got, err = s.GetSessionMessages("s1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestChunkEmbeddingRoundTrip(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertSession(model.Session{ID: "s1", Harness: "h", ProjectPath: "/p", ProjectName: "p"}))

	chunks := []model.Chunk{
		{SessionID: "s1", ChunkIndex: 0, ChunkType: model.ChunkTypeSummary, Content: "summary", Embedding: []float32{0.1, 0.2, 0.3}, EmbeddingModel: "test-model"},
		{SessionID: "s1", ChunkIndex: 1, ChunkType: model.ChunkTypeTurn, Content: "turn text", Embedding: nil},
	}
	require.NoError(t, s.UpsertChunks("s1", chunks))

	embs, err := s.GetAllChunkEmbeddings()
	require.NoError(t, err)
	require.Len(t, embs, 1)
	assert.Equal(t, "s1", embs[0].SessionID)
	assert.InDeltaSlice(t, []float64{0.1, 0.2, 0.3}, toFloat64(embs[0].Embedding), 1e-6)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func TestDeleteSessionCascades(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertSession(model.Session{ID: "s1", Harness: "h", ProjectPath: "/p", ProjectName: "p"}))
	require.NoError(t, s.UpsertMessages("s1", []model.Message{{ID: "m0", SessionID: "s1", Role: model.RoleUser, Sequence: 0}}))
	require.NoError(t, s.UpsertChunks("s1", []model.Chunk{{SessionID: "s1", ChunkIndex: 0, ChunkType: model.ChunkTypeSummary}}))
	require.NoError(t, s.UpsertSummary(model.Summary{SessionID: "s1", Text: "x"}))

	require.NoError(t, s.DeleteSession("s1"))

	sess, err := s.GetSession("s1")
	require.NoError(t, err)
	assert.Nil(t, sess)

	msgs, err := s.GetSessionMessages("s1")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	sum, err := s.GetSummary("s1")
	require.NoError(t, err)
	assert.Nil(t, sum)
}

func TestSearchMessagesFTS(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertSession(model.Session{ID: "s1", Harness: "h", ProjectPath: "/p", ProjectName: "p"}))
	require.NoError(t, s.UpsertMessages("s1", []model.Message{
		{ID: "m0", SessionID: "s1", Role: model.RoleUser, Content: "please run agent-do lint src/", Sequence: 0},
	}))

	hits, err := s.SearchMessagesFTS("lint", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "s1", hits[0].SessionID)
}

func TestEmptyCorpusSearch(t *testing.T) {
	s := openTestStore(t)
	hits, err := s.SearchMessagesFTS("anything", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
