// Package types defines the core data structures for the recollect knowledge
// system: memories, scheduled tasks, owner profiles, and learning patterns,
// together with the shared enumerations and validation helpers used by the
// extraction and retrieval engines.
package types

// Context identifies the life area a piece of content belongs to.
type Context string

// Content contexts. Every memory, task, and pattern is scoped to exactly one.
const (
	ContextWork     Context = "work"
	ContextPersonal Context = "personal"
	ContextFamily   Context = "family"
)

// AllContexts lists every valid context, in the order used when a learning
// pattern is created without an explicit context.
var AllContexts = []Context{ContextWork, ContextPersonal, ContextFamily}

// IsValidContext checks if the given context is one of the three known areas.
func IsValidContext(c Context) bool {
	for _, v := range AllContexts {
		if v == c {
			return true
		}
	}
	return false
}

// MemoryType classifies the nature of a stored memory.
type MemoryType string

// Memory type constants.
const (
	MemoryTypeFact         MemoryType = "fact"
	MemoryTypePreference   MemoryType = "preference"
	MemoryTypeExperience   MemoryType = "experience"
	MemoryTypeSkill        MemoryType = "skill"
	MemoryTypeRelationship MemoryType = "relationship"
)

// ValidMemoryTypes is a slice of all valid memory types for validation.
var ValidMemoryTypes = []MemoryType{
	MemoryTypeFact,
	MemoryTypePreference,
	MemoryTypeExperience,
	MemoryTypeSkill,
	MemoryTypeRelationship,
}

// IsValidMemoryType checks if the given memory type is valid.
func IsValidMemoryType(t MemoryType) bool {
	for _, v := range ValidMemoryTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Task status constants.
const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
	TaskStatusCancelled = "cancelled"
)

// Importance bounds for memory metadata.
const (
	MinImportance = 1
	MaxImportance = 10
)

// ClampImportance forces an importance score into [1, 10] regardless of what
// the model returned.
func ClampImportance(v int) int {
	if v < MinImportance {
		return MinImportance
	}
	if v > MaxImportance {
		return MaxImportance
	}
	return v
}

// ClampSentiment forces a sentiment score into [-1, 1].
func ClampSentiment(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampConfidence forces a confidence score into [0, 1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
