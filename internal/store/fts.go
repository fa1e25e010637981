package store

import (
	amanerrors "github.com/ovachiever/agent-sessions/internal/errors"
)

// FTSHit is one (session_id, bm25) pair from a full-text query. bm25 is
// the raw SQLite score, where lower is a better match; callers invert the
// sign before using it as a ranking score (§4.7 step 1).
type FTSHit struct {
	SessionID string
	BM25      float64
}

// SearchMessagesFTS runs query against the message full-text index,
// returning the best (lowest) bm25 score per session.
func (s *Store) SearchMessagesFTS(query string, limit int) ([]FTSHit, error) {
	rows, err := s.db.Query(`
		SELECT session_id, MIN(bm25(messages_fts)) AS score
		FROM messages_fts
		WHERE messages_fts MATCH ?
		GROUP BY session_id
		ORDER BY score ASC
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeSearchFailed, "search messages fts", err)
	}
	defer rows.Close()
	return scanFTSHits(rows)
}

// SearchSessionsFTS runs query against the session-metadata full-text
// index (first_prompt_preview + project_name + auto_tags).
func (s *Store) SearchSessionsFTS(query string, limit int) ([]FTSHit, error) {
	rows, err := s.db.Query(`
		SELECT session_id, bm25(sessions_fts) AS score
		FROM sessions_fts
		WHERE sessions_fts MATCH ?
		ORDER BY score ASC
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeSearchFailed, "search sessions fts", err)
	}
	defer rows.Close()
	return scanFTSHits(rows)
}

func scanFTSHits(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]FTSHit, error) {
	var out []FTSHit
	for rows.Next() {
		var hit FTSHit
		if err := rows.Scan(&hit.SessionID, &hit.BM25); err != nil {
			return nil, amanerrors.New(amanerrors.ErrCodeInternal, "scan fts hit", err)
		}
		out = append(out, hit)
	}
	return out, rows.Err()
}
