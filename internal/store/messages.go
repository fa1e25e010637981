package store

import (
	"encoding/json"

	amanerrors "github.com/ovachiever/agent-sessions/internal/errors"
	"github.com/ovachiever/agent-sessions/internal/model"
)

// UpsertMessages replaces all messages for a session atomically: existing
// rows are deleted and the new batch is inserted within one transaction,
// so re-index never leaves a mixed state (§3 invariant).
func (s *Store) UpsertMessages(sessionID string, messages []model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return amanerrors.New(amanerrors.ErrCodeInternal, "begin message upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return amanerrors.New(amanerrors.ErrCodeInternal, "clear existing messages", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages (id, session_id, role, content, timestamp, sequence, has_code, tool_mentions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return amanerrors.New(amanerrors.ErrCodeInternal, "prepare message insert", err)
	}
	defer stmt.Close()

	for _, m := range messages {
		mentions, err := json.Marshal(m.ToolMentions)
		if err != nil {
			return amanerrors.ValidationError("marshal tool_mentions", err)
		}
		if _, err := stmt.Exec(m.ID, sessionID, string(m.Role), m.Content, m.Timestamp, m.Sequence,
			boolToInt(m.HasCode), string(mentions)); err != nil {
			return amanerrors.New(amanerrors.ErrCodeInternal, "insert message", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return amanerrors.New(amanerrors.ErrCodeInternal, "commit message upsert", err)
	}
	return nil
}

// GetSessionMessages returns every message for a session ordered by
// sequence ascending.
func (s *Store) GetSessionMessages(sessionID string) ([]model.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, role, content, timestamp, sequence, has_code, tool_mentions
		FROM messages WHERE session_id = ? ORDER BY sequence ASC
	`, sessionID)
	if err != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeInternal, "get session messages", err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		var role string
		var hasCode int
		var mentions string
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &m.Timestamp, &m.Sequence, &hasCode, &mentions); err != nil {
			return nil, amanerrors.New(amanerrors.ErrCodeInternal, "scan message row", err)
		}
		m.Role = model.Role(role)
		m.HasCode = hasCode != 0
		_ = json.Unmarshal([]byte(mentions), &m.ToolMentions)
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountMessages returns the total number of messages across all sessions.
func (s *Store) CountMessages() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, amanerrors.New(amanerrors.ErrCodeInternal, "count messages", err)
	}
	return n, nil
}
