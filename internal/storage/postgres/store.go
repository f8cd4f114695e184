// Package postgres provides the PostgreSQL storage backend for server
// deployments, with pgvector-backed semantic search.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pgvector/pgvector-go"

	"github.com/recollect-ai/recollect/internal/storage"
	"github.com/recollect-ai/recollect/pkg/types"
)

// Store implements every storage interface on a PostgreSQL database.
type Store struct {
	db                *sql.DB
	pgvectorAvailable bool
}

// New opens a PostgreSQL database with the given connection string and
// applies the schema. The pgvector extension is enabled when available;
// without it the store still works, but semantic search returns no matches.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}

	s := &Store{db: db}

	// pgvector must be enabled before the schema: the memories table declares
	// a vector column. Servers without the extension get a TEXT column via
	// the fallback schema and no vector search.
	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		log.Printf("postgres: pgvector extension not available (semantic search disabled): %v", err)
		s.pgvectorAvailable = false
	} else {
		s.pgvectorAvailable = true
	}

	schema := Schema
	if !s.pgvectorAvailable {
		schema = strings.Replace(schema, "embedding     vector,", "embedding     TEXT,", 1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to apply schema: %w", err)
	}

	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// marshalJSONB serialises a slice-valued field, storing NULL for empty values.
func marshalJSONB(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	case []types.Context:
		if len(t) == 0 {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// unmarshalJSONB deserialises a nullable JSONB column into dst.
func unmarshalJSONB(src sql.NullString, dst interface{}) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(src.String), dst)
}

// embeddingValue converts an embedding into the column value for this server.
func (s *Store) embeddingValue(embedding []float32) (interface{}, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	if s.pgvectorAvailable {
		return pgvector.NewVector(embedding), nil
	}
	data, err := json.Marshal(embedding)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// scanEmbedding converts a stored embedding column value back into a slice.
func (s *Store) scanEmbedding(raw sql.NullString) ([]float32, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	if s.pgvectorAvailable {
		var vec pgvector.Vector
		if err := vec.Scan([]byte(raw.String)); err != nil {
			return nil, err
		}
		return vec.Slice(), nil
	}
	var out []float32
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- MemoryStore ---

// InsertMemory stores a new memory.
func (s *Store) InsertMemory(ctx context.Context, memory *types.Memory) error {
	if memory == nil || memory.ID == "" || memory.OwnerID == "" {
		return fmt.Errorf("%w: memory ID and owner ID are required", storage.ErrInvalidInput)
	}
	if memory.Content == "" {
		return fmt.Errorf("%w: memory content is required", storage.ErrInvalidInput)
	}
	if memory.CreatedAt.IsZero() {
		memory.CreatedAt = time.Now().UTC()
	}

	embeddingVal, err := s.embeddingValue(memory.Embedding)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode embedding: %w", err)
	}
	entitiesJSON, err := marshalJSONB(memory.Entities)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal entities: %w", err)
	}
	keywordsJSON, err := marshalJSONB(memory.Keywords)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal keywords: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (
			id, owner_id, content, source_type, source_id, context,
			embedding, summary, memory_type, importance, sentiment,
			entities, keywords, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		memory.ID, memory.OwnerID, memory.Content, memory.SourceType, memory.SourceID,
		string(memory.Context), embeddingVal, memory.Summary, string(memory.MemoryType),
		memory.Importance, memory.Sentiment, entitiesJSON, keywordsJSON, memory.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return fmt.Errorf("%w: memory %s already exists", storage.ErrInvalidInput, memory.ID)
		}
		return fmt.Errorf("postgres: failed to insert memory: %w", err)
	}
	return nil
}

const memoryColumns = `id, owner_id, content, source_type, source_id, context,
	embedding::text, summary, memory_type, importance, sentiment, entities, keywords, created_at`

// scanMemory scans one memory row.
func (s *Store) scanMemory(row interface{ Scan(...interface{}) error }) (*types.Memory, error) {
	var (
		m                                 types.Memory
		contextStr, memoryType            string
		embeddingRaw, entities, keywords  sql.NullString
	)
	err := row.Scan(
		&m.ID, &m.OwnerID, &m.Content, &m.SourceType, &m.SourceID, &contextStr,
		&embeddingRaw, &m.Summary, &memoryType, &m.Importance, &m.Sentiment,
		&entities, &keywords, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Context = types.Context(contextStr)
	m.MemoryType = types.MemoryType(memoryType)
	if m.Embedding, err = s.scanEmbedding(embeddingRaw); err != nil {
		return nil, fmt.Errorf("postgres: failed to decode embedding: %w", err)
	}
	if err := unmarshalJSONB(entities, &m.Entities); err != nil {
		return nil, fmt.Errorf("postgres: failed to unmarshal entities: %w", err)
	}
	if err := unmarshalJSONB(keywords, &m.Keywords); err != nil {
		return nil, fmt.Errorf("postgres: failed to unmarshal keywords: %w", err)
	}
	return &m, nil
}

// GetMemory retrieves a memory by ID.
func (s *Store) GetMemory(ctx context.Context, ownerID, id string) (*types.Memory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = $1 AND owner_id = $2`, id, ownerID)
	m, err := s.scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get memory: %w", err)
	}
	return m, nil
}

// PatchMemory applies a partial update to an existing memory.
func (s *Store) PatchMemory(ctx context.Context, ownerID, id string, patch *types.MemoryPatch) error {
	if patch.IsZero() {
		return nil
	}

	m, err := s.GetMemory(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if patch.Summary != nil {
		m.Summary = *patch.Summary
	}
	if patch.MemoryType != nil {
		m.MemoryType = *patch.MemoryType
	}
	if patch.Importance != nil {
		m.Importance = types.ClampImportance(*patch.Importance)
	}
	if patch.Sentiment != nil {
		m.Sentiment = types.ClampSentiment(*patch.Sentiment)
	}
	if patch.Entities != nil {
		m.Entities = patch.Entities
	}
	if patch.Keywords != nil {
		m.Keywords = patch.Keywords
	}

	entitiesJSON, err := marshalJSONB(m.Entities)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal entities: %w", err)
	}
	keywordsJSON, err := marshalJSONB(m.Keywords)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal keywords: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE memories SET summary = $1, memory_type = $2, importance = $3, sentiment = $4,
			entities = $5, keywords = $6
		WHERE id = $7 AND owner_id = $8`,
		m.Summary, string(m.MemoryType), m.Importance, m.Sentiment,
		entitiesJSON, keywordsJSON, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to patch memory: %w", err)
	}
	return nil
}

// QueryMemories returns memories matching the query, newest first.
func (s *Store) QueryMemories(ctx context.Context, q storage.MemoryQuery) ([]*types.Memory, error) {
	if q.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner ID is required", storage.ErrInvalidInput)
	}
	q.Normalize()

	where := []string{"owner_id = $1"}
	args := []interface{}{q.OwnerID}

	if q.Context != "" {
		args = append(args, string(q.Context))
		where = append(where, fmt.Sprintf("context = $%d", len(args)))
	}
	if q.MemoryType != "" {
		args = append(args, string(q.MemoryType))
		where = append(where, fmt.Sprintf("memory_type = $%d", len(args)))
	}
	if !q.CreatedAfter.IsZero() {
		args = append(args, q.CreatedAfter)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !q.CreatedBefore.IsZero() {
		args = append(args, q.CreatedBefore)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}
	args = append(args, q.Limit)

	query := `SELECT ` + memoryColumns + ` FROM memories WHERE ` + strings.Join(where, " AND ") +
		fmt.Sprintf(` ORDER BY created_at DESC, id ASC LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query memories: %w", err)
	}
	defer rows.Close()

	var memories []*types.Memory
	for rows.Next() {
		m, err := s.scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan memory: %w", err)
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// SearchByEmbedding ranks the owner's memories by cosine similarity to the
// query embedding using pgvector's cosine distance operator. Without the
// extension there is nothing to rank against, so the result is empty.
func (s *Store) SearchByEmbedding(ctx context.Context, ownerID string, embedding []float32, limit int) ([]storage.SemanticMatch, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: query embedding is required", storage.ErrInvalidInput)
	}
	if !s.pgvectorAvailable {
		return nil, nil
	}
	if limit < 1 {
		limit = 10
	}

	// Cosine distance is in [0, 2]; 1 - distance is the raw cosine, clamped
	// at 0 so orthogonal-or-worse vectors never clear a relevance threshold.
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+memoryColumns+`, GREATEST(1 - (embedding <=> $2), 0) AS similarity
		FROM memories
		WHERE owner_id = $1 AND embedding IS NOT NULL
		ORDER BY embedding <=> $2, id ASC
		LIMIT $3`,
		ownerID, pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to search embeddings: %w", err)
	}
	defer rows.Close()

	var matches []storage.SemanticMatch
	for rows.Next() {
		var (
			m                                 types.Memory
			contextStr, memoryType            string
			embeddingRaw, entities, keywords  sql.NullString
			similarity                        float64
		)
		err := rows.Scan(
			&m.ID, &m.OwnerID, &m.Content, &m.SourceType, &m.SourceID, &contextStr,
			&embeddingRaw, &m.Summary, &memoryType, &m.Importance, &m.Sentiment,
			&entities, &keywords, &m.CreatedAt, &similarity,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan match: %w", err)
		}
		m.Context = types.Context(contextStr)
		m.MemoryType = types.MemoryType(memoryType)
		if m.Embedding, err = s.scanEmbedding(embeddingRaw); err != nil {
			return nil, fmt.Errorf("postgres: failed to decode embedding: %w", err)
		}
		if err := unmarshalJSONB(entities, &m.Entities); err != nil {
			return nil, fmt.Errorf("postgres: failed to unmarshal entities: %w", err)
		}
		if err := unmarshalJSONB(keywords, &m.Keywords); err != nil {
			return nil, fmt.Errorf("postgres: failed to unmarshal keywords: %w", err)
		}
		matches = append(matches, storage.SemanticMatch{Memory: &m, Similarity: similarity})
	}
	return matches, rows.Err()
}

// --- TaskStore ---

// InsertTask stores a new task.
func (s *Store) InsertTask(ctx context.Context, task *types.Task) error {
	if task == nil || task.ID == "" || task.OwnerID == "" {
		return fmt.Errorf("%w: task ID and owner ID are required", storage.ErrInvalidInput)
	}
	if task.Title == "" {
		return fmt.Errorf("%w: task title is required", storage.ErrInvalidInput)
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}
	if task.Status == "" {
		task.Status = types.TaskStatusPending
	}

	participantsJSON, err := marshalJSONB(task.Participants)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal participants: %w", err)
	}
	tagsJSON, err := marshalJSONB(task.Tags)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, owner_id, title, description, context, participants, tags,
			due_date, linked_memory_id, event_type, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		task.ID, task.OwnerID, task.Title, task.Description, string(task.Context),
		participantsJSON, tagsJSON, task.DueDate, task.LinkedMemoryID,
		task.EventType, task.Status, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return fmt.Errorf("%w: task %s already exists", storage.ErrInvalidInput, task.ID)
		}
		return fmt.Errorf("postgres: failed to insert task: %w", err)
	}
	return nil
}

const taskColumns = `id, owner_id, title, description, context, participants, tags,
	due_date, linked_memory_id, event_type, status, created_at, updated_at`

// scanTask scans one task row.
func scanTask(row interface{ Scan(...interface{}) error }) (*types.Task, error) {
	var (
		t                  types.Task
		contextStr         string
		participants, tags sql.NullString
		dueDate            sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.OwnerID, &t.Title, &t.Description, &contextStr,
		&participants, &tags, &dueDate, &t.LinkedMemoryID, &t.EventType,
		&t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Context = types.Context(contextStr)
	if dueDate.Valid {
		due := dueDate.Time
		t.DueDate = &due
	}
	if err := unmarshalJSONB(participants, &t.Participants); err != nil {
		return nil, fmt.Errorf("postgres: failed to unmarshal participants: %w", err)
	}
	if err := unmarshalJSONB(tags, &t.Tags); err != nil {
		return nil, fmt.Errorf("postgres: failed to unmarshal tags: %w", err)
	}
	return &t, nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, ownerID, id string) (*types.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND owner_id = $2`, id, ownerID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get task: %w", err)
	}
	return t, nil
}

// PatchTask applies a partial update to an existing task.
func (s *Store) PatchTask(ctx context.Context, ownerID, id string, patch *types.TaskPatch) error {
	if patch.IsZero() {
		return nil
	}

	t, err := s.GetTask(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.DueDate != nil {
		t.DueDate = patch.DueDate
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Tags != nil {
		t.Tags = patch.Tags
	}
	t.UpdatedAt = time.Now().UTC()

	tagsJSON, err := marshalJSONB(t.Tags)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE tasks SET title = $1, description = $2, due_date = $3, status = $4, tags = $5, updated_at = $6
		WHERE id = $7 AND owner_id = $8`,
		t.Title, t.Description, t.DueDate, t.Status, tagsJSON, t.UpdatedAt, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to patch task: %w", err)
	}
	return nil
}

// QueryTasks returns tasks matching the query, soonest due date first, tasks
// without a due date last.
func (s *Store) QueryTasks(ctx context.Context, q storage.TaskQuery) ([]*types.Task, error) {
	if q.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner ID is required", storage.ErrInvalidInput)
	}
	q.Normalize()

	where := []string{"owner_id = $1"}
	args := []interface{}{q.OwnerID}

	if q.Context != "" {
		args = append(args, string(q.Context))
		where = append(where, fmt.Sprintf("context = $%d", len(args)))
	}
	if q.Status != "" {
		args = append(args, q.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if !q.DueAfter.IsZero() {
		args = append(args, q.DueAfter)
		where = append(where, fmt.Sprintf("due_date >= $%d", len(args)))
	}
	if !q.DueBefore.IsZero() {
		args = append(args, q.DueBefore)
		where = append(where, fmt.Sprintf("due_date < $%d", len(args)))
	}
	args = append(args, q.Limit)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(where, " AND ") +
		fmt.Sprintf(` ORDER BY due_date ASC NULLS LAST, id ASC LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CompleteTask marks a task completed.
func (s *Store) CompleteTask(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = $1, updated_at = $2 WHERE id = $3 AND owner_id = $4`,
		types.TaskStatusCompleted, time.Now().UTC(), id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to complete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to get rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- ProfileStore ---

// GetProfile retrieves the owner's profile, or an empty profile when none is
// stored yet.
func (s *Store) GetProfile(ctx context.Context, ownerID string) (*types.Profile, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner ID is required", storage.ErrInvalidInput)
	}

	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM profiles WHERE owner_id = $1`, ownerID).Scan(&data)
	if err == sql.ErrNoRows {
		return &types.Profile{OwnerID: ownerID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get profile: %w", err)
	}

	var profile types.Profile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, fmt.Errorf("postgres: failed to unmarshal profile: %w", err)
	}
	profile.OwnerID = ownerID
	return &profile, nil
}

// ApplyProfilePatch deep-merges the patch into the stored profile inside a
// transaction and persists the result.
func (s *Store) ApplyProfilePatch(ctx context.Context, ownerID string, patch *types.ProfilePatch) (*types.Profile, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner ID is required", storage.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	profile := &types.Profile{OwnerID: ownerID}
	var data string
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM profiles WHERE owner_id = $1 FOR UPDATE`, ownerID).Scan(&data)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("postgres: failed to load profile: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal([]byte(data), profile); err != nil {
			return nil, fmt.Errorf("postgres: failed to unmarshal profile: %w", err)
		}
		profile.OwnerID = ownerID
	}

	profile.Apply(patch)
	profile.UpdatedAt = time.Now().UTC()

	merged, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to marshal profile: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (owner_id, data, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (owner_id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`,
		ownerID, string(merged), profile.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to save profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("postgres: failed to commit profile update: %w", err)
	}
	return profile, nil
}

// --- PatternStore ---

// InsertPattern stores a new learning pattern.
func (s *Store) InsertPattern(ctx context.Context, pattern *types.LearningPattern) error {
	if pattern == nil || pattern.ID == "" || pattern.OwnerID == "" {
		return fmt.Errorf("%w: pattern ID and owner ID are required", storage.ErrInvalidInput)
	}
	if pattern.Pattern == "" {
		return fmt.Errorf("%w: pattern text is required", storage.ErrInvalidInput)
	}
	now := time.Now().UTC()
	if pattern.CreatedAt.IsZero() {
		pattern.CreatedAt = now
	}
	if pattern.UpdatedAt.IsZero() {
		pattern.UpdatedAt = now
	}

	evidenceJSON, err := marshalJSONB(pattern.Evidence)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal evidence: %w", err)
	}
	contextsJSON, err := marshalJSONB(pattern.ApplicableContexts)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal contexts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO patterns (
			id, owner_id, pattern_type, category, pattern, confidence,
			evidence, applicable_contexts, is_active, contradiction_count,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		pattern.ID, pattern.OwnerID, pattern.PatternType, pattern.Category,
		pattern.Pattern, pattern.Confidence, evidenceJSON, contextsJSON,
		pattern.IsActive, pattern.ContradictionCount, pattern.CreatedAt, pattern.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return fmt.Errorf("%w: pattern %s already exists", storage.ErrInvalidInput, pattern.ID)
		}
		return fmt.Errorf("postgres: failed to insert pattern: %w", err)
	}
	return nil
}

// UpdatePattern overwrites an existing pattern.
func (s *Store) UpdatePattern(ctx context.Context, pattern *types.LearningPattern) error {
	if pattern == nil || pattern.ID == "" {
		return fmt.Errorf("%w: pattern ID is required", storage.ErrInvalidInput)
	}
	pattern.UpdatedAt = time.Now().UTC()

	evidenceJSON, err := marshalJSONB(pattern.Evidence)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal evidence: %w", err)
	}
	contextsJSON, err := marshalJSONB(pattern.ApplicableContexts)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal contexts: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE patterns SET pattern_type = $1, category = $2, pattern = $3, confidence = $4,
			evidence = $5, applicable_contexts = $6, is_active = $7, contradiction_count = $8,
			updated_at = $9
		WHERE id = $10 AND owner_id = $11`,
		pattern.PatternType, pattern.Category, pattern.Pattern, pattern.Confidence,
		evidenceJSON, contextsJSON, pattern.IsActive, pattern.ContradictionCount,
		pattern.UpdatedAt, pattern.ID, pattern.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to update pattern: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to get rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListActivePatterns returns active patterns matching the query, highest
// confidence first.
func (s *Store) ListActivePatterns(ctx context.Context, q storage.PatternQuery) ([]*types.LearningPattern, error) {
	if q.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner ID is required", storage.ErrInvalidInput)
	}

	where := []string{"owner_id = $1", "is_active = TRUE"}
	args := []interface{}{q.OwnerID}

	if q.Category != "" {
		args = append(args, q.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if q.MinConfidence > 0 {
		args = append(args, q.MinConfidence)
		where = append(where, fmt.Sprintf("confidence >= $%d", len(args)))
	}
	if q.Context != "" {
		// A pattern without explicit contexts applies everywhere.
		args = append(args, fmt.Sprintf(`"%s"`, q.Context))
		where = append(where, fmt.Sprintf("(applicable_contexts IS NULL OR applicable_contexts @> $%d::jsonb)", len(args)))
	}

	query := `SELECT id, owner_id, pattern_type, category, pattern, confidence,
		evidence, applicable_contexts, is_active, contradiction_count, created_at, updated_at
		FROM patterns WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY confidence DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query patterns: %w", err)
	}
	defer rows.Close()

	var patterns []*types.LearningPattern
	for rows.Next() {
		var (
			p                  types.LearningPattern
			evidence, contexts sql.NullString
		)
		err := rows.Scan(
			&p.ID, &p.OwnerID, &p.PatternType, &p.Category, &p.Pattern, &p.Confidence,
			&evidence, &contexts, &p.IsActive, &p.ContradictionCount,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan pattern: %w", err)
		}
		if err := unmarshalJSONB(evidence, &p.Evidence); err != nil {
			return nil, fmt.Errorf("postgres: failed to unmarshal evidence: %w", err)
		}
		if err := unmarshalJSONB(contexts, &p.ApplicableContexts); err != nil {
			return nil, fmt.Errorf("postgres: failed to unmarshal contexts: %w", err)
		}
		patterns = append(patterns, &p)
	}
	return patterns, rows.Err()
}

// DeactivatePattern marks a pattern inactive.
func (s *Store) DeactivatePattern(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE patterns SET is_active = FALSE, updated_at = $1 WHERE id = $2 AND owner_id = $3`,
		time.Now().UTC(), id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to deactivate pattern: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to get rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Compile-time assertions.
var (
	_ storage.Store            = (*Store)(nil)
	_ storage.SemanticSearcher = (*Store)(nil)
)
