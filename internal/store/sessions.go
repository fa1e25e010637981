package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	amanerrors "github.com/ovachiever/agent-sessions/internal/errors"
	"github.com/ovachiever/agent-sessions/internal/model"
)

// UpsertSession inserts or replaces one Session row.
func (s *Store) UpsertSession(sess model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags, err := json.Marshal(sess.AutoTags)
	if err != nil {
		return amanerrors.ValidationError("marshal auto_tags", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (id, harness, project_path, project_name, title, created_at, modified_at,
			is_child, child_type, parent_id, message_count, turn_count, first_prompt_preview,
			source_path, source_mtime, indexed_at, auto_tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			harness = excluded.harness,
			project_path = excluded.project_path,
			project_name = excluded.project_name,
			title = excluded.title,
			created_at = excluded.created_at,
			modified_at = excluded.modified_at,
			is_child = excluded.is_child,
			child_type = excluded.child_type,
			parent_id = excluded.parent_id,
			message_count = excluded.message_count,
			turn_count = excluded.turn_count,
			first_prompt_preview = excluded.first_prompt_preview,
			source_path = excluded.source_path,
			source_mtime = excluded.source_mtime,
			indexed_at = excluded.indexed_at,
			auto_tags = excluded.auto_tags
	`,
		sess.ID, sess.Harness, sess.ProjectPath, sess.ProjectName, sess.Title,
		sess.CreatedAt, sess.ModifiedAt, boolToInt(sess.IsChild), sess.ChildType,
		nullableParentID(sess), sess.MessageCount, sess.TurnCount, sess.FirstPromptPreview,
		sess.SourcePath, sess.SourceMtime, sess.IndexedAt, string(tags),
	)
	if err != nil {
		return amanerrors.New(amanerrors.ErrCodeInternal, "upsert session", err)
	}
	return nil
}

// nullableParentID returns sess.ParentID, or nil when it is empty so the
// column stores NULL. It does not check that the parent exists: the Indexer
// resolves that first (§4.6 safe parent linkage), and a parent_id naming a
// missing session is rejected by the foreign key constraint.
func nullableParentID(sess model.Session) any {
	if sess.ParentID == "" {
		return nil
	}
	return sess.ParentID
}

// DeleteSession removes a session and cascades to its messages, chunks, and
// summary via ON DELETE CASCADE.
func (s *Store) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return amanerrors.New(amanerrors.ErrCodeInternal, "delete session", err)
	}
	s.InvalidateEmbeddingCache()
	return nil
}

// GetSession fetches one session by id, returning nil if not found.
func (s *Store) GetSession(id string) (*model.Session, error) {
	row := s.db.QueryRow(sessionSelect+` WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeInternal, "get session", err)
	}
	return sess, nil
}

const sessionSelect = `
	SELECT id, harness, project_path, project_name, title, created_at, modified_at,
		is_child, child_type, COALESCE(parent_id, ''), message_count, turn_count,
		first_prompt_preview, source_path, source_mtime, indexed_at, auto_tags
	FROM sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*model.Session, error) {
	var sess model.Session
	var isChild int
	var tags string
	err := row.Scan(&sess.ID, &sess.Harness, &sess.ProjectPath, &sess.ProjectName, &sess.Title,
		&sess.CreatedAt, &sess.ModifiedAt, &isChild, &sess.ChildType, &sess.ParentID,
		&sess.MessageCount, &sess.TurnCount, &sess.FirstPromptPreview,
		&sess.SourcePath, &sess.SourceMtime, &sess.IndexedAt, &tags)
	if err != nil {
		return nil, err
	}
	sess.IsChild = isChild != 0
	_ = json.Unmarshal([]byte(tags), &sess.AutoTags)
	return &sess, nil
}

// allSessionsLimit is large enough that a GetSessions call passing it never
// truncates the sessions table. SQLite's LIMIT 0 means "zero rows", not
// "unlimited", so callers that want every row must pass a real cap instead
// of 0.
const allSessionsLimit = 1 << 30

// GetSessions returns sessions matching filter, ordered by modified_at
// descending, paginated by limit/offset.
func (s *Store) GetSessions(filter model.SessionFilter, limit, offset int) ([]model.Session, error) {
	query := sessionSelect + ` WHERE 1=1`
	var args []any

	if filter.Harness != "" {
		query += ` AND harness = ?`
		args = append(args, filter.Harness)
	}
	if filter.Project != "" {
		query += ` AND project_path = ?`
		args = append(args, filter.Project)
	}
	if filter.IsChild != nil {
		query += ` AND is_child = ?`
		args = append(args, boolToInt(*filter.IsChild))
	}
	query += ` ORDER BY modified_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeInternal, "get sessions", err)
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, amanerrors.New(amanerrors.ErrCodeInternal, "scan session row", err)
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

// GetRelatedChildren returns sessions whose parent_id points at parent,
// plus (read time, not index time) the heuristic match described in §4.2:
// same harness and project path, is_child true, no parent_id set, within
// the given time window of parent.ModifiedAt.
func (s *Store) GetRelatedChildren(parent model.Session, windowSeconds int64) ([]model.Session, error) {
	linked, err := s.GetSessions(model.SessionFilter{}, allSessionsLimit, 0)
	if err != nil {
		return nil, err
	}
	var out []model.Session
	seen := make(map[string]bool)
	for _, c := range linked {
		if c.ParentID == parent.ID {
			out = append(out, c)
			seen[c.ID] = true
		}
	}
	for _, c := range linked {
		if seen[c.ID] || !c.IsChild || c.ParentID != "" {
			continue
		}
		if c.Harness != parent.Harness || c.ProjectPath != parent.ProjectPath {
			continue
		}
		delta := c.ModifiedAt - parent.ModifiedAt
		if delta < 0 {
			delta = -delta
		}
		if delta <= windowSeconds {
			out = append(out, c)
		}
	}
	return out, nil
}

// CountSessions returns the total number of sessions, optionally filtered
// by project path (empty means all projects).
func (s *Store) CountSessions(projectPath string) (int, error) {
	var n int
	var err error
	if projectPath == "" {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n)
	} else {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE project_path = ?`, projectPath).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
