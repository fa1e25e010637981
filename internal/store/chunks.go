package store

import (
	"database/sql"
	"encoding/json"

	amanerrors "github.com/ovachiever/agent-sessions/internal/errors"
	"github.com/ovachiever/agent-sessions/internal/model"
	"github.com/ovachiever/agent-sessions/internal/vector"
)

// ChunkEmbedding is one (session, chunk, vector) tuple as returned by
// GetAllChunkEmbeddings for the Search component's in-process cosine scan.
type ChunkEmbedding struct {
	SessionID string
	ChunkID   int64
	Embedding []float32
}

// UpsertChunks replaces all chunks for a session atomically, mirroring
// UpsertMessages. Invalidates the embedding cache since chunk rows (and
// therefore embeddings) changed.
func (s *Store) UpsertChunks(sessionID string, chunks []model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return amanerrors.New(amanerrors.ErrCodeInternal, "begin chunk upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM chunks WHERE session_id = ?`, sessionID); err != nil {
		return amanerrors.New(amanerrors.ErrCodeInternal, "clear existing chunks", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO chunks (session_id, message_id, chunk_index, chunk_type, content, metadata,
			embedding, embedding_model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return amanerrors.New(amanerrors.ErrCodeInternal, "prepare chunk insert", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return amanerrors.ValidationError("marshal chunk metadata", err)
		}

		var msgID any
		if c.MessageID != "" {
			msgID = c.MessageID
		}

		var blob any
		if c.Embedding != nil {
			blob = vector.Serialize(c.Embedding)
		}

		if _, err := stmt.Exec(sessionID, msgID, c.ChunkIndex, string(c.ChunkType), c.Content,
			string(meta), blob, c.EmbeddingModel, c.CreatedAt); err != nil {
			return amanerrors.New(amanerrors.ErrCodeInternal, "insert chunk", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return amanerrors.New(amanerrors.ErrCodeInternal, "commit chunk upsert", err)
	}

	s.InvalidateEmbeddingCache()
	return nil
}

// GetAllChunkEmbeddings returns every chunk that has a non-null embedding,
// caching the result in-process. Callers that write chunks must call
// InvalidateEmbeddingCache (UpsertChunks/DeleteSession do this already).
func (s *Store) GetAllChunkEmbeddings() ([]ChunkEmbedding, error) {
	s.cacheMu.RLock()
	if s.cacheLoad {
		out := s.chunkVecs
		s.cacheMu.RUnlock()
		return out, nil
	}
	s.cacheMu.RUnlock()

	rows, err := s.db.Query(`
		SELECT session_id, id, embedding FROM chunks WHERE embedding IS NOT NULL
	`)
	if err != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeInternal, "query chunk embeddings", err)
	}
	defer rows.Close()

	var out []ChunkEmbedding
	for rows.Next() {
		var ce ChunkEmbedding
		var blob []byte
		if err := rows.Scan(&ce.SessionID, &ce.ChunkID, &blob); err != nil {
			return nil, amanerrors.New(amanerrors.ErrCodeInternal, "scan chunk embedding row", err)
		}
		vec, err := vector.Deserialize(blob)
		if err != nil {
			continue // malformed blob: skip rather than abort the whole cache load
		}
		ce.Embedding = vec
		out = append(out, ce)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.cacheMu.Lock()
	s.chunkVecs = out
	s.cacheLoad = true
	s.cacheMu.Unlock()

	return out, nil
}

// CountChunks returns the total number of chunks across all sessions.
func (s *Store) CountChunks() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, amanerrors.New(amanerrors.ErrCodeInternal, "count chunks", err)
	}
	return n, nil
}

// UpsertSummary inserts or replaces the Summary row for a session.
func (s *Store) UpsertSummary(sum model.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO summaries (session_id, text, model_name, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			text = excluded.text, model_name = excluded.model_name,
			content_hash = excluded.content_hash, created_at = excluded.created_at
	`, sum.SessionID, sum.Text, sum.ModelName, sum.ContentHash, sum.CreatedAt)
	if err != nil {
		return amanerrors.New(amanerrors.ErrCodeInternal, "upsert summary", err)
	}
	return nil
}

// GetSummary fetches the Summary for a session, or nil if none exists.
func (s *Store) GetSummary(sessionID string) (*model.Summary, error) {
	var sum model.Summary
	err := s.db.QueryRow(`
		SELECT session_id, text, model_name, content_hash, created_at
		FROM summaries WHERE session_id = ?
	`, sessionID).Scan(&sum.SessionID, &sum.Text, &sum.ModelName, &sum.ContentHash, &sum.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeInternal, "get summary", err)
	}
	return &sum, nil
}
