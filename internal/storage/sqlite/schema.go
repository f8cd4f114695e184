package sqlite

// Schema is the embedded SQLite schema, applied at open. Every statement is
// idempotent so reopening an existing database is safe.
//
// Slice- and struct-valued fields (embeddings, entities, keywords,
// participants, tags, the whole profile) are stored as JSON text. SQLite has
// no native vector type; embeddings are scanned back into memory and scored
// in Go.
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
	id            TEXT PRIMARY KEY,
	owner_id      TEXT NOT NULL,
	content       TEXT NOT NULL,
	source_type   TEXT NOT NULL DEFAULT '',
	source_id     TEXT NOT NULL DEFAULT '',
	context       TEXT NOT NULL DEFAULT 'personal',
	embedding     TEXT,
	summary       TEXT NOT NULL DEFAULT '',
	memory_type   TEXT NOT NULL DEFAULT 'fact',
	importance    INTEGER NOT NULL DEFAULT 5,
	sentiment     REAL NOT NULL DEFAULT 0,
	entities      TEXT,
	keywords      TEXT,
	created_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memories_owner_context ON memories(owner_id, context);
CREATE INDEX IF NOT EXISTS idx_memories_owner_created ON memories(owner_id, created_at);

CREATE TABLE IF NOT EXISTS tasks (
	id               TEXT PRIMARY KEY,
	owner_id         TEXT NOT NULL,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	context          TEXT NOT NULL DEFAULT 'personal',
	participants     TEXT,
	tags             TEXT,
	due_date         TIMESTAMP,
	linked_memory_id TEXT NOT NULL DEFAULT '',
	event_type       TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'pending',
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_owner_status ON tasks(owner_id, status);
CREATE INDEX IF NOT EXISTS idx_tasks_owner_due ON tasks(owner_id, due_date);

CREATE TABLE IF NOT EXISTS profiles (
	owner_id   TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS patterns (
	id                  TEXT PRIMARY KEY,
	owner_id            TEXT NOT NULL,
	pattern_type        TEXT NOT NULL,
	category            TEXT NOT NULL DEFAULT '',
	pattern             TEXT NOT NULL,
	confidence          REAL NOT NULL DEFAULT 0,
	evidence            TEXT,
	applicable_contexts TEXT,
	is_active           INTEGER NOT NULL DEFAULT 1,
	contradiction_count INTEGER NOT NULL DEFAULT 0,
	created_at          TIMESTAMP NOT NULL,
	updated_at          TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_patterns_owner_category ON patterns(owner_id, category, is_active);
`
