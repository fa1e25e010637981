package store

import (
	"database/sql"
	"encoding/json"

	amanerrors "github.com/ovachiever/agent-sessions/internal/errors"
	"github.com/ovachiever/agent-sessions/internal/model"
)

// MetaGet reads a key/value pair from the meta table. Returns ("", false)
// if the key is unset.
func (s *Store) MetaGet(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, amanerrors.New(amanerrors.ErrCodeInternal, "meta get", err)
	}
	return value, true, nil
}

// MetaSet writes a key/value pair into the meta table.
func (s *Store) MetaSet(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO meta(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return amanerrors.New(amanerrors.ErrCodeInternal, "meta set", err)
	}
	return nil
}

// LogSearch appends one entry to the append-only search log.
func (s *Store) LogSearch(entry model.SearchLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	top, err := json.Marshal(entry.TopSessionID)
	if err != nil {
		return amanerrors.ValidationError("marshal top session ids", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO search_log (query, result_count, top_sessions, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.Query, entry.ResultCount, string(top), entry.DurationMS, entry.CreatedAt)
	if err != nil {
		return amanerrors.New(amanerrors.ErrCodeInternal, "log search", err)
	}
	return nil
}

// GetSearchHistory returns the most recent search log entries, newest first.
func (s *Store) GetSearchHistory(limit int) ([]model.SearchLogEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, query, result_count, top_sessions, duration_ms, created_at
		FROM search_log ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeInternal, "get search history", err)
	}
	defer rows.Close()

	var out []model.SearchLogEntry
	for rows.Next() {
		var e model.SearchLogEntry
		var top string
		if err := rows.Scan(&e.ID, &e.Query, &e.ResultCount, &top, &e.DurationMS, &e.CreatedAt); err != nil {
			return nil, amanerrors.New(amanerrors.ErrCodeInternal, "scan search log row", err)
		}
		_ = json.Unmarshal([]byte(top), &e.TopSessionID)
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecomputeProjectStats recalculates project_stats for the given project
// paths (empty slice recomputes all projects seen in sessions).
func (s *Store) RecomputeProjectStats(projectPaths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT DISTINCT project_path FROM sessions`
	var args []any
	if len(projectPaths) > 0 {
		placeholders, qargs := inClause(projectPaths)
		query += ` WHERE project_path IN (` + placeholders + `)`
		args = qargs
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return amanerrors.New(amanerrors.ErrCodeInternal, "list distinct projects", err)
	}
	var projects []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return err
		}
		projects = append(projects, p)
	}
	rows.Close()

	for _, p := range projects {
		var name string
		var sessionCount, messageCount int
		var lastActivity int64
		err := s.db.QueryRow(`
			SELECT project_name, COUNT(*), COALESCE(SUM(message_count), 0), COALESCE(MAX(modified_at), 0)
			FROM sessions WHERE project_path = ? GROUP BY project_name
		`, p).Scan(&name, &sessionCount, &messageCount, &lastActivity)
		if err != nil {
			continue
		}
		_, err = s.db.Exec(`
			INSERT INTO project_stats (project_path, project_name, session_count, message_count, last_activity_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(project_path) DO UPDATE SET
				project_name = excluded.project_name,
				session_count = excluded.session_count,
				message_count = excluded.message_count,
				last_activity_at = excluded.last_activity_at
		`, p, name, sessionCount, messageCount, lastActivity)
		if err != nil {
			return amanerrors.New(amanerrors.ErrCodeInternal, "write project stats", err)
		}
	}
	return nil
}

// GetProjectStats returns stats for every known project, ordered by most
// recent activity.
func (s *Store) GetProjectStats() ([]model.ProjectStats, error) {
	rows, err := s.db.Query(`
		SELECT project_path, project_name, session_count, message_count, last_activity_at
		FROM project_stats ORDER BY last_activity_at DESC
	`)
	if err != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeInternal, "get project stats", err)
	}
	defer rows.Close()

	var out []model.ProjectStats
	for rows.Next() {
		var p model.ProjectStats
		if err := rows.Scan(&p.ProjectPath, &p.ProjectName, &p.SessionCount, &p.MessageCount, &p.LastActivityAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func inClause(values []string) (string, []any) {
	placeholders := ""
	args := make([]any, len(values))
	for i, v := range values {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = v
	}
	return placeholders, args
}
