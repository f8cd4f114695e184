// Package storage provides composable storage interfaces for the Recollect
// engine.
//
// The storage layer is designed with small, focused interfaces that can be
// implemented independently and composed as needed. Both backends (sqlite for
// single-user local use, postgres for server deployments) implement all of
// them; the engine depends only on the interfaces it uses.
package storage

import (
	"context"

	"github.com/recollect-ai/recollect/pkg/types"
)

// MemoryStore persists classified memories.
type MemoryStore interface {
	// InsertMemory stores a new memory. The memory ID must be set and unique;
	// a duplicate ID returns ErrInvalidInput.
	InsertMemory(ctx context.Context, memory *types.Memory) error

	// GetMemory retrieves a memory by ID.
	// Returns ErrNotFound if the memory doesn't exist.
	GetMemory(ctx context.Context, ownerID, id string) (*types.Memory, error)

	// PatchMemory applies a partial update to an existing memory. Nil patch
	// fields leave the stored values untouched.
	// Returns ErrNotFound if the memory doesn't exist.
	PatchMemory(ctx context.Context, ownerID, id string, patch *types.MemoryPatch) error

	// QueryMemories returns memories matching the query, newest first.
	QueryMemories(ctx context.Context, q MemoryQuery) ([]*types.Memory, error)
}

// SemanticSearcher is an optional capability of a MemoryStore: ranking
// memories by embedding similarity. Backends without native vector support
// may still implement it with an in-process scan; callers that find the
// capability absent fall back to scoring query results themselves.
type SemanticSearcher interface {
	// SearchByEmbedding returns up to limit memories for the owner ranked by
	// cosine similarity to the query embedding, most similar first. Memories
	// without an embedding are skipped.
	SearchByEmbedding(ctx context.Context, ownerID string, embedding []float32, limit int) ([]SemanticMatch, error)
}

// TaskStore persists tasks derived from upcoming experiences.
type TaskStore interface {
	// InsertTask stores a new task. The task ID must be set and unique.
	InsertTask(ctx context.Context, task *types.Task) error

	// GetTask retrieves a task by ID.
	// Returns ErrNotFound if the task doesn't exist.
	GetTask(ctx context.Context, ownerID, id string) (*types.Task, error)

	// PatchTask applies a partial update to an existing task.
	// Returns ErrNotFound if the task doesn't exist.
	PatchTask(ctx context.Context, ownerID, id string, patch *types.TaskPatch) error

	// QueryTasks returns tasks matching the query, soonest due date first,
	// tasks without a due date last.
	QueryTasks(ctx context.Context, q TaskQuery) ([]*types.Task, error)

	// CompleteTask marks a task completed.
	// Returns ErrNotFound if the task doesn't exist.
	CompleteTask(ctx context.Context, ownerID, id string) error
}

// ProfileStore persists the single structured profile per owner.
type ProfileStore interface {
	// GetProfile retrieves the owner's profile. An owner with no stored
	// profile gets an empty profile, not ErrNotFound.
	GetProfile(ctx context.Context, ownerID string) (*types.Profile, error)

	// ApplyProfilePatch deep-merges the patch into the stored profile and
	// returns the updated profile. The merge never blanks populated fields.
	ApplyProfilePatch(ctx context.Context, ownerID string, patch *types.ProfilePatch) (*types.Profile, error)
}

// PatternStore persists consolidated learning patterns.
type PatternStore interface {
	// InsertPattern stores a new pattern. The pattern ID must be set and unique.
	InsertPattern(ctx context.Context, pattern *types.LearningPattern) error

	// UpdatePattern overwrites an existing pattern.
	// Returns ErrNotFound if the pattern doesn't exist.
	UpdatePattern(ctx context.Context, pattern *types.LearningPattern) error

	// ListActivePatterns returns active patterns matching the query, highest
	// confidence first.
	ListActivePatterns(ctx context.Context, q PatternQuery) ([]*types.LearningPattern, error)

	// DeactivatePattern marks a pattern inactive, keeping it for audit.
	// Returns ErrNotFound if the pattern doesn't exist.
	DeactivatePattern(ctx context.Context, ownerID, id string) error
}

// Store aggregates all storage capabilities behind one handle. Both backends
// satisfy it.
type Store interface {
	MemoryStore
	TaskStore
	ProfileStore
	PatternStore

	// Close releases any resources held by the store.
	Close() error
}
