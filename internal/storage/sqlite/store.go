// Package sqlite provides the embedded single-user storage backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/recollect-ai/recollect/internal/storage"
	"github.com/recollect-ai/recollect/pkg/types"
)

// Store implements every storage interface on a single SQLite database.
type Store struct {
	db *sql.DB
}

// New creates the data directory if needed and opens (or creates) the
// recollect database inside it.
func New(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: failed to create data directory: %w", err)
	}
	return Open(filepath.Join(dataPath, "recollect.db"))
}

// Open opens a SQLite database at the given path, configures WAL mode, and
// applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Using a single open
	// connection serialises writes and avoids SQLITE_BUSY errors under
	// concurrent load. WAL mode lets readers proceed without blocking the
	// writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// marshalJSON serialises a slice-valued field, storing NULL for empty values.
func marshalJSON(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	case []float32:
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

// unmarshalJSON deserialises a nullable JSON column into dst; NULL leaves dst
// at its zero value.
func unmarshalJSON(src sql.NullString, dst interface{}) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(src.String), dst)
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

	embeddingJSON, err := marshalJSON(memory.Embedding)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal embedding: %w", err)
	}
	entitiesJSON, err := marshalJSON(memory.Entities)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal entities: %w", err)
	}
	keywordsJSON, err := marshalJSON(memory.Keywords)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal keywords: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (
			id, owner_id, content, source_type, source_id, context,
			embedding, summary, memory_type, importance, sentiment,
			entities, keywords, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		memory.ID, memory.OwnerID, memory.Content, memory.SourceType, memory.SourceID,
		string(memory.Context), embeddingJSON, memory.Summary, string(memory.MemoryType),
		memory.Importance, memory.Sentiment, entitiesJSON, keywordsJSON, memory.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("%w: memory %s already exists", storage.ErrInvalidInput, memory.ID)
		}
		return fmt.Errorf("sqlite: failed to insert memory: %w", err)
	}
	return nil
}

const memoryColumns = `id, owner_id, content, source_type, source_id, context,
	embedding, summary, memory_type, importance, sentiment, entities, keywords, created_at`

// scanMemory scans one memory row.
func scanMemory(row interface{ Scan(...interface{}) error }) (*types.Memory, error) {
	var (
		m                                  types.Memory
		contextStr, memoryType             string
		embeddingJSON, entities, keywords  sql.NullString
	)
	err := row.Scan(
		&m.ID, &m.OwnerID, &m.Content, &m.SourceType, &m.SourceID, &contextStr,
		&embeddingJSON, &m.Summary, &memoryType, &m.Importance, &m.Sentiment,
		&entities, &keywords, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Context = types.Context(contextStr)
	m.MemoryType = types.MemoryType(memoryType)
	if err := unmarshalJSON(embeddingJSON, &m.Embedding); err != nil {
		return nil, fmt.Errorf("sqlite: failed to unmarshal embedding: %w", err)
	}
	if err := unmarshalJSON(entities, &m.Entities); err != nil {
		return nil, fmt.Errorf("sqlite: failed to unmarshal entities: %w", err)
	}
	if err := unmarshalJSON(keywords, &m.Keywords); err != nil {
		return nil, fmt.Errorf("sqlite: failed to unmarshal keywords: %w", err)
	}
	return &m, nil
}

// GetMemory retrieves a memory by ID.
func (s *Store) GetMemory(ctx context.Context, ownerID, id string) (*types.Memory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = ? AND owner_id = ?`, id, ownerID)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get memory: %w", err)
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

	entitiesJSON, err := marshalJSON(m.Entities)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal entities: %w", err)
	}
	keywordsJSON, err := marshalJSON(m.Keywords)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal keywords: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE memories SET summary = ?, memory_type = ?, importance = ?, sentiment = ?,
			entities = ?, keywords = ?
		WHERE id = ? AND owner_id = ?`,
		m.Summary, string(m.MemoryType), m.Importance, m.Sentiment,
		entitiesJSON, keywordsJSON, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to patch memory: %w", err)
	}
	return nil
}

// QueryMemories returns memories matching the query, newest first.
func (s *Store) QueryMemories(ctx context.Context, q storage.MemoryQuery) ([]*types.Memory, error) {
	if q.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner ID is required", storage.ErrInvalidInput)
	}
	q.Normalize()

	where := []string{"owner_id = ?"}
	args := []interface{}{q.OwnerID}

	if q.Context != "" {
		where = append(where, "context = ?")
		args = append(args, string(q.Context))
	}
	if q.MemoryType != "" {
		where = append(where, "memory_type = ?")
		args = append(args, string(q.MemoryType))
	}
	if !q.CreatedAfter.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, q.CreatedAfter)
	}
	if !q.CreatedBefore.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, q.CreatedBefore)
	}
	args = append(args, q.Limit)

	query := `SELECT ` + memoryColumns + ` FROM memories WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id ASC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query memories: %w", err)
	}
	defer rows.Close()

	var memories []*types.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan memory: %w", err)
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// SearchByEmbedding ranks the owner's memories by cosine similarity to the
// query embedding. SQLite has no vector index, so this is an in-process scan;
// fine for a single-user database.
func (s *Store) SearchByEmbedding(ctx context.Context, ownerID string, embedding []float32, limit int) ([]storage.SemanticMatch, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: query embedding is required", storage.ErrInvalidInput)
	}
	if limit < 1 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE owner_id = ? AND embedding IS NOT NULL`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var matches []storage.SemanticMatch
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan memory: %w", err)
		}
		sim, ok := cosineSimilarity(embedding, m.Embedding)
		if !ok {
			continue
		}
		matches = append(matches, storage.SemanticMatch{Memory: m, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Memory.ID < matches[j].Memory.ID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// cosineSimilarity returns the cosine of the angle between a and b, clamped
// to [0, 1]: orthogonal and opposed vectors both score 0, so unrelated
// content cannot clear a relevance threshold on geometry alone. Returns
// ok=false on dimension mismatch or a zero vector.
func cosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return max(cos, 0), true
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

	participantsJSON, err := marshalJSON(task.Participants)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal participants: %w", err)
	}
	tagsJSON, err := marshalJSON(task.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, owner_id, title, description, context, participants, tags,
			due_date, linked_memory_id, event_type, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.OwnerID, task.Title, task.Description, string(task.Context),
		participantsJSON, tagsJSON, task.DueDate, task.LinkedMemoryID,
		task.EventType, task.Status, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("%w: task %s already exists", storage.ErrInvalidInput, task.ID)
		}
		return fmt.Errorf("sqlite: failed to insert task: %w", err)
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
	if err := unmarshalJSON(participants, &t.Participants); err != nil {
		return nil, fmt.Errorf("sqlite: failed to unmarshal participants: %w", err)
	}
	if err := unmarshalJSON(tags, &t.Tags); err != nil {
		return nil, fmt.Errorf("sqlite: failed to unmarshal tags: %w", err)
	}
	return &t, nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, ownerID, id string) (*types.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get task: %w", err)
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

	tagsJSON, err := marshalJSON(t.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, due_date = ?, status = ?, tags = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		t.Title, t.Description, t.DueDate, t.Status, tagsJSON, t.UpdatedAt, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to patch task: %w", err)
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

	where := []string{"owner_id = ?"}
	args := []interface{}{q.OwnerID}

	if q.Context != "" {
		where = append(where, "context = ?")
		args = append(args, string(q.Context))
	}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, q.Status)
	}
	if !q.DueAfter.IsZero() {
		where = append(where, "due_date >= ?")
		args = append(args, q.DueAfter)
	}
	if !q.DueBefore.IsZero() {
		where = append(where, "due_date < ?")
		args = append(args, q.DueBefore)
	}
	args = append(args, q.Limit)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY due_date IS NULL, due_date ASC, id ASC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CompleteTask marks a task completed.
func (s *Store) CompleteTask(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		types.TaskStatusCompleted, time.Now().UTC(), id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to complete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to get rows affected: %w", err)
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
		`SELECT data FROM profiles WHERE owner_id = ?`, ownerID).Scan(&data)
	if err == sql.ErrNoRows {
		return &types.Profile{OwnerID: ownerID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get profile: %w", err)
	}

	var profile types.Profile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, fmt.Errorf("sqlite: failed to unmarshal profile: %w", err)
	}
	profile.OwnerID = ownerID
	return &profile, nil
}

// ApplyProfilePatch deep-merges the patch into the stored profile and
// persists the result. The whole profile is one JSON document, so the
// read-merge-write happens under the single-writer connection and stays
// atomic.
func (s *Store) ApplyProfilePatch(ctx context.Context, ownerID string, patch *types.ProfilePatch) (*types.Profile, error) {
	profile, err := s.GetProfile(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	profile.Apply(patch)
	profile.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to marshal profile: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (owner_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		ownerID, string(data), profile.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to save profile: %w", err)
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

	evidenceJSON, err := marshalJSON(pattern.Evidence)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal evidence: %w", err)
	}
	contextsJSON, err := marshalJSON(pattern.ApplicableContexts)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal contexts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO patterns (
			id, owner_id, pattern_type, category, pattern, confidence,
			evidence, applicable_contexts, is_active, contradiction_count,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pattern.ID, pattern.OwnerID, pattern.PatternType, pattern.Category,
		pattern.Pattern, pattern.Confidence, evidenceJSON, contextsJSON,
		pattern.IsActive, pattern.ContradictionCount, pattern.CreatedAt, pattern.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("%w: pattern %s already exists", storage.ErrInvalidInput, pattern.ID)
		}
		return fmt.Errorf("sqlite: failed to insert pattern: %w", err)
	}
	return nil
}

// UpdatePattern overwrites an existing pattern.
func (s *Store) UpdatePattern(ctx context.Context, pattern *types.LearningPattern) error {
	if pattern == nil || pattern.ID == "" {
		return fmt.Errorf("%w: pattern ID is required", storage.ErrInvalidInput)
	}
	pattern.UpdatedAt = time.Now().UTC()

	evidenceJSON, err := marshalJSON(pattern.Evidence)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal evidence: %w", err)
	}
	contextsJSON, err := marshalJSON(pattern.ApplicableContexts)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal contexts: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE patterns SET pattern_type = ?, category = ?, pattern = ?, confidence = ?,
			evidence = ?, applicable_contexts = ?, is_active = ?, contradiction_count = ?,
			updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		pattern.PatternType, pattern.Category, pattern.Pattern, pattern.Confidence,
		evidenceJSON, contextsJSON, pattern.IsActive, pattern.ContradictionCount,
		pattern.UpdatedAt, pattern.ID, pattern.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to update pattern: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to get rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanPattern scans one pattern row.
func scanPattern(row interface{ Scan(...interface{}) error }) (*types.LearningPattern, error) {
	var (
		p                  types.LearningPattern
		evidence, contexts sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.PatternType, &p.Category, &p.Pattern, &p.Confidence,
		&evidence, &contexts, &p.IsActive, &p.ContradictionCount,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(evidence, &p.Evidence); err != nil {
		return nil, fmt.Errorf("sqlite: failed to unmarshal evidence: %w", err)
	}
	if err := unmarshalJSON(contexts, &p.ApplicableContexts); err != nil {
		return nil, fmt.Errorf("sqlite: failed to unmarshal contexts: %w", err)
	}
	return &p, nil
}

// ListActivePatterns returns active patterns matching the query, highest
// confidence first. Context filtering happens in Go because applicable
// contexts live in a JSON column.
func (s *Store) ListActivePatterns(ctx context.Context, q storage.PatternQuery) ([]*types.LearningPattern, error) {
	if q.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner ID is required", storage.ErrInvalidInput)
	}

	where := []string{"owner_id = ?", "is_active = 1"}
	args := []interface{}{q.OwnerID}

	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if q.MinConfidence > 0 {
		where = append(where, "confidence >= ?")
		args = append(args, q.MinConfidence)
	}

	query := `SELECT id, owner_id, pattern_type, category, pattern, confidence,
		evidence, applicable_contexts, is_active, contradiction_count, created_at, updated_at
		FROM patterns WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY confidence DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query patterns: %w", err)
	}
	defer rows.Close()

	var patterns []*types.LearningPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan pattern: %w", err)
		}
		if q.Context != "" && !patternAppliesTo(p, q.Context) {
			continue
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// patternAppliesTo reports whether the pattern covers the given context. A
// pattern without explicit contexts applies everywhere.
func patternAppliesTo(p *types.LearningPattern, c types.Context) bool {
	if len(p.ApplicableContexts) == 0 {
		return true
	}
	for _, pc := range p.ApplicableContexts {
		if pc == c {
			return true
		}
	}
	return false
}

// DeactivatePattern marks a pattern inactive.
func (s *Store) DeactivatePattern(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE patterns SET is_active = 0, updated_at = ? WHERE id = ? AND owner_id = ?`,
		time.Now().UTC(), id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to deactivate pattern: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to get rows affected: %w", err)
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
