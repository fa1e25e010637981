package store

// schemaVersion is the current schema version this binary expects. On open,
// migrations are applied forward from whatever version is recorded in the
// meta table up to this value.
const schemaVersion = 1

// migrations holds one SQL script per schema version, applied in order.
// A script at index i migrates from version i to version i+1.
var migrations = []string{
	schemaV1,
}

const schemaV1 = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id                   TEXT PRIMARY KEY,
	harness              TEXT NOT NULL,
	project_path         TEXT NOT NULL,
	project_name         TEXT NOT NULL,
	title                TEXT NOT NULL DEFAULT '',
	created_at           INTEGER NOT NULL,
	modified_at          INTEGER NOT NULL,
	is_child             INTEGER NOT NULL DEFAULT 0,
	child_type           TEXT NOT NULL DEFAULT '',
	parent_id            TEXT REFERENCES sessions(id) ON DELETE SET NULL,
	message_count        INTEGER NOT NULL DEFAULT 0,
	turn_count           INTEGER NOT NULL DEFAULT 0,
	first_prompt_preview TEXT NOT NULL DEFAULT '',
	source_path          TEXT NOT NULL DEFAULT '',
	source_mtime         INTEGER NOT NULL DEFAULT 0,
	indexed_at           INTEGER NOT NULL DEFAULT 0,
	auto_tags            TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_path);
CREATE INDEX IF NOT EXISTS idx_sessions_harness ON sessions(harness);
CREATE INDEX IF NOT EXISTS idx_sessions_parent ON sessions(parent_id);
CREATE INDEX IF NOT EXISTS idx_sessions_modified ON sessions(modified_at);

CREATE TABLE IF NOT EXISTS messages (
	id            TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	role          TEXT NOT NULL,
	content       TEXT NOT NULL DEFAULT '',
	timestamp     INTEGER NOT NULL DEFAULT 0,
	sequence      INTEGER NOT NULL,
	has_code      INTEGER NOT NULL DEFAULT 0,
	tool_mentions TEXT NOT NULL DEFAULT '[]',
	UNIQUE(session_id, sequence)
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);

CREATE TABLE IF NOT EXISTS chunks (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id      TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	message_id      TEXT REFERENCES messages(id) ON DELETE SET NULL,
	chunk_index     INTEGER NOT NULL,
	chunk_type      TEXT NOT NULL,
	content         TEXT NOT NULL DEFAULT '',
	metadata        TEXT NOT NULL DEFAULT '{}',
	embedding       BLOB,
	embedding_model TEXT NOT NULL DEFAULT '',
	created_at      INTEGER NOT NULL DEFAULT 0,
	UNIQUE(session_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_chunks_session ON chunks(session_id);
CREATE INDEX IF NOT EXISTS idx_chunks_embedding_model ON chunks(embedding_model);

CREATE TABLE IF NOT EXISTS summaries (
	session_id   TEXT PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
	text         TEXT NOT NULL,
	model_name   TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS project_stats (
	project_path     TEXT PRIMARY KEY,
	project_name     TEXT NOT NULL DEFAULT '',
	session_count    INTEGER NOT NULL DEFAULT 0,
	message_count    INTEGER NOT NULL DEFAULT 0,
	last_activity_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS search_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	query         TEXT NOT NULL,
	result_count  INTEGER NOT NULL,
	top_sessions  TEXT NOT NULL DEFAULT '[]',
	duration_ms   INTEGER NOT NULL,
	created_at    INTEGER NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
	content,
	session_id UNINDEXED,
	tokenize = 'porter unicode61 remove_diacritics 2'
);

CREATE VIRTUAL TABLE IF NOT EXISTS sessions_fts USING fts5(
	first_prompt_preview,
	project_name,
	auto_tags,
	session_id UNINDEXED,
	tokenize = 'porter unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
	INSERT INTO messages_fts(rowid, content, session_id) VALUES (new.rowid, new.content, new.session_id);
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content, session_id) VALUES ('delete', old.rowid, old.content, old.session_id);
END;

CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content, session_id) VALUES ('delete', old.rowid, old.content, old.session_id);
	INSERT INTO messages_fts(rowid, content, session_id) VALUES (new.rowid, new.content, new.session_id);
END;

CREATE TRIGGER IF NOT EXISTS sessions_ai AFTER INSERT ON sessions BEGIN
	INSERT INTO sessions_fts(rowid, first_prompt_preview, project_name, auto_tags, session_id)
	VALUES (new.rowid, new.first_prompt_preview, new.project_name, new.auto_tags, new.id);
END;

CREATE TRIGGER IF NOT EXISTS sessions_ad AFTER DELETE ON sessions BEGIN
	INSERT INTO sessions_fts(sessions_fts, rowid, first_prompt_preview, project_name, auto_tags, session_id)
	VALUES ('delete', old.rowid, old.first_prompt_preview, old.project_name, old.auto_tags, old.id);
END;

CREATE TRIGGER IF NOT EXISTS sessions_au AFTER UPDATE ON sessions BEGIN
	INSERT INTO sessions_fts(sessions_fts, rowid, first_prompt_preview, project_name, auto_tags, session_id)
	VALUES ('delete', old.rowid, old.first_prompt_preview, old.project_name, old.auto_tags, old.id);
	INSERT INTO sessions_fts(rowid, first_prompt_preview, project_name, auto_tags, session_id)
	VALUES (new.rowid, new.first_prompt_preview, new.project_name, new.auto_tags, new.id);
END;
`
