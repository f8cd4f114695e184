package storage

import (
	"errors"
	"time"

	"github.com/recollect-ai/recollect/pkg/types"
)

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// MemoryQuery filters and bounds memory queries.
type MemoryQuery struct {
	// OwnerID scopes the query to a single owner. Required.
	OwnerID string

	// Context filters memories by life context (work, personal, family).
	// Empty string means all contexts.
	Context types.Context

	// MemoryType filters by memory type (fact, preference, ...).
	// Empty string means no filter.
	MemoryType types.MemoryType

	// CreatedAfter filters to memories created at or after this time.
	// Zero value means no lower bound.
	CreatedAfter time.Time

	// CreatedBefore filters to memories created strictly before this time.
	// Zero value means no upper bound.
	CreatedBefore time.Time

	// Limit bounds the result set (default: 100, max: 1000).
	Limit int
}

// Normalize applies defaults and caps to the query.
func (q *MemoryQuery) Normalize() {
	if q.Limit < 1 {
		q.Limit = 100
	}
	if q.Limit > 1000 {
		q.Limit = 1000
	}
}

// TaskQuery filters and bounds task queries.
type TaskQuery struct {
	// OwnerID scopes the query to a single owner. Required.
	OwnerID string

	// Context filters tasks by life context. Empty string means all contexts.
	Context types.Context

	// Status filters by task status (pending, completed, cancelled).
	// Empty string means no filter.
	Status string

	// DueAfter filters to tasks due at or after this time.
	// Zero value means no lower bound.
	DueAfter time.Time

	// DueBefore filters to tasks due strictly before this time.
	// Zero value means no upper bound.
	DueBefore time.Time

	// Limit bounds the result set (default: 100, max: 1000).
	Limit int
}

// Normalize applies defaults and caps to the query.
func (q *TaskQuery) Normalize() {
	if q.Limit < 1 {
		q.Limit = 100
	}
	if q.Limit > 1000 {
		q.Limit = 1000
	}
}

// PatternQuery filters learning-pattern queries.
type PatternQuery struct {
	// OwnerID scopes the query to a single owner. Required.
	OwnerID string

	// Category filters by pattern category (e.g. "scheduling", "preference").
	// Empty string means all categories.
	Category string

	// Context filters to patterns applicable in the given life context.
	// Empty string means no filter.
	Context types.Context

	// MinConfidence drops patterns below this confidence. Zero means no floor.
	MinConfidence float64
}

// SemanticMatch is one memory returned by vector search, paired with its
// cosine similarity to the query embedding in [0, 1].
type SemanticMatch struct {
	Memory     *types.Memory
	Similarity float64
}
