// Package store implements the single-writer embedded relational store
// backing sessions, messages, chunks, summaries, project stats, and the
// search log. It uses modernc.org/sqlite (pure Go, no CGO) with WAL mode
// and FTS5 virtual tables for full-text search.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	amanerrors "github.com/ovachiever/agent-sessions/internal/errors"
)

// Config configures how the Store opens its database file.
type Config struct {
	// SQLiteCacheMB sets PRAGMA cache_size (negative KB semantics handled
	// internally). Default 64.
	SQLiteCacheMB int
	// BusyTimeoutMS sets PRAGMA busy_timeout. Default 5000.
	BusyTimeoutMS int
	// Driver selects the database/sql driver name: "sqlite" (default, pure
	// Go, modernc.org/sqlite) or "sqlite3" (CGO, github.com/mattn/go-sqlite3,
	// only registered when built with the sqlite3driver build tag).
	Driver string
}

// DefaultConfig returns the store's default tuning parameters.
func DefaultConfig() Config {
	return Config{
		SQLiteCacheMB: 64,
		BusyTimeoutMS: 5000,
		Driver:        "sqlite",
	}
}

// Store is the single-writer embedded database. A Store may be shared by
// many concurrent readers; writes are serialized through mu.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
	lock *flock.Flock

	cacheMu   sync.RWMutex
	chunkVecs []ChunkEmbedding // lazily loaded, invalidated on write
	cacheLoad bool
}

// Open creates or opens the database at path, applying PRAGMAs and forward
// migrations. If the file appears to be corrupt (failed integrity check or
// a missing messages_fts table after a schema version is recorded) it is
// deleted, along with its WAL, SHM and lock files, and recreated rather
// than left unusable.
func Open(path string, cfg Config) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, amanerrors.IOError("create store directory", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, amanerrors.IOError("acquire store lock", err)
	}
	if !locked {
		return nil, amanerrors.New(amanerrors.ErrCodeFileNotFound, fmt.Sprintf("store %s is locked by another process", path), nil).WithSuggestion("wait for the other process to finish, or remove the stale .lock file")
	}

	db, err := openSQLite(path, cfg)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	s := &Store{db: db, path: path, lock: lock}

	if err := s.validateIntegrity(); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		if rerr := recreateCorrupt(path); rerr != nil {
			return nil, amanerrors.Wrap(amanerrors.ErrCodeInternal, rerr)
		}
		return Open(path, cfg)
	}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, amanerrors.New(amanerrors.ErrCodeInternal, "schema migration failed", err)
	}

	return s, nil
}

func openSQLite(path string, cfg Config) (*sql.DB, error) {
	if cfg.SQLiteCacheMB <= 0 {
		cfg.SQLiteCacheMB = 64
	}
	if cfg.BusyTimeoutMS <= 0 {
		cfg.BusyTimeoutMS = 5000
	}
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}

	db, err := sql.Open(cfg.Driver, path)
	if err != nil {
		return nil, amanerrors.IOError("open sqlite database", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: single connection avoids lock contention under WAL

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeoutMS),
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA cache_size=-%d", cfg.SQLiteCacheMB*1024),
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, amanerrors.IOError(fmt.Sprintf("apply pragma %q", p), err)
		}
	}

	return db, nil
}

// validateIntegrity runs PRAGMA integrity_check and confirms the FTS5
// tables exist whenever the meta table already records a schema version.
// A fresh (empty) database always passes.
func (s *Store) validateIntegrity() error {
	var version string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version)
	if err != nil {
		// No meta table yet: either fresh DB or pre-migration, nothing to validate.
		return nil
	}

	var result string
	if err := s.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity_check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity_check reported: %s", result)
	}

	var name string
	err = s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='messages_fts'`).Scan(&name)
	if err != nil {
		return fmt.Errorf("messages_fts table missing: %w", err)
	}
	return nil
}

// recreateCorrupt removes a corrupt database file (and its WAL/SHM
// siblings) so the caller can reopen a fresh one.
func recreateCorrupt(path string) error {
	for _, suffix := range []string{"", "-wal", "-shm", ".lock"} {
		_ = os.Remove(path + suffix)
	}
	return nil
}

func (s *Store) migrate() error {
	var current int
	row := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`)
	if err := row.Scan(&current); err != nil {
		current = 0
	}

	for current < schemaVersion {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[current]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", current+1, err)
		}
		current++
		if _, err := tx.Exec(`INSERT INTO meta(key, value) VALUES ('schema_version', ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, fmt.Sprint(current)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record schema version %d: %w", current, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database connection and advisory lock.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Close()
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
	return err
}

// now returns the current time as epoch seconds. Separated out so tests can
// stub it if ever needed; production code just calls time.Now().Unix().
func now() int64 {
	return time.Now().Unix()
}

// InvalidateEmbeddingCache drops the in-process chunk embedding cache so
// the next GetAllChunkEmbeddings call reloads from disk. Callers must
// invoke this after any write that touches chunk embeddings.
func (s *Store) InvalidateEmbeddingCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.chunkVecs = nil
	s.cacheLoad = false
}
