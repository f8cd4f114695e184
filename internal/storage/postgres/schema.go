package postgres

// Schema is the embedded PostgreSQL schema, applied at open. Every statement
// is idempotent so reopening an existing database is safe.
//
// Embeddings use the pgvector extension; list-valued fields are JSONB. The
// embedding column is dimensionless so the store works with whichever
// embedding model the deployment configures.
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
	id            TEXT PRIMARY KEY,
	owner_id      TEXT NOT NULL,
	content       TEXT NOT NULL,
	source_type   TEXT NOT NULL DEFAULT '',
	source_id     TEXT NOT NULL DEFAULT '',
	context       TEXT NOT NULL DEFAULT 'personal',
	embedding     vector,
	summary       TEXT NOT NULL DEFAULT '',
	memory_type   TEXT NOT NULL DEFAULT 'fact',
	importance    INTEGER NOT NULL DEFAULT 5,
	sentiment     DOUBLE PRECISION NOT NULL DEFAULT 0,
	entities      JSONB,
	keywords      JSONB,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memories_owner_context ON memories(owner_id, context);
CREATE INDEX IF NOT EXISTS idx_memories_owner_created ON memories(owner_id, created_at);

CREATE TABLE IF NOT EXISTS tasks (
	id               TEXT PRIMARY KEY,
	owner_id         TEXT NOT NULL,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	context          TEXT NOT NULL DEFAULT 'personal',
	participants     JSONB,
	tags             JSONB,
	due_date         TIMESTAMPTZ,
	linked_memory_id TEXT NOT NULL DEFAULT '',
	event_type       TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'pending',
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_owner_status ON tasks(owner_id, status);
CREATE INDEX IF NOT EXISTS idx_tasks_owner_due ON tasks(owner_id, due_date);

CREATE TABLE IF NOT EXISTS profiles (
	owner_id   TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS patterns (
	id                  TEXT PRIMARY KEY,
	owner_id            TEXT NOT NULL,
	pattern_type        TEXT NOT NULL,
	category            TEXT NOT NULL DEFAULT '',
	pattern             TEXT NOT NULL,
	confidence          DOUBLE PRECISION NOT NULL DEFAULT 0,
	evidence            JSONB,
	applicable_contexts JSONB,
	is_active           BOOLEAN NOT NULL DEFAULT TRUE,
	contradiction_count INTEGER NOT NULL DEFAULT 0,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_patterns_owner_category ON patterns(owner_id, category, is_active);
`
