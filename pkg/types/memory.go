package types

import "time"

// Memory is a single episodic record: something that happened, was felt, or
// was learned. Memories are append-only; after creation they change only
// through corrective patches and are never deleted in normal operation.
type Memory struct {
	// Core identification and provenance
	ID         string  `json:"id"`          // Unique identifier
	OwnerID    string  `json:"owner_id"`    // Owner this memory belongs to
	Content    string  `json:"content"`     // Raw memory content
	SourceType string  `json:"source_type"` // Where the content came from (e.g. "message", "note")
	SourceID   string  `json:"source_id"`   // Identifier of the source message/document
	Context    Context `json:"context"`     // Life area: work, personal, or family

	// Embedding for semantic search (document mode)
	Embedding []float32 `json:"embedding,omitempty"`

	// Extracted metadata
	Summary    string     `json:"summary,omitempty"`    // One/two-sentence summary
	MemoryType MemoryType `json:"memory_type"`          // fact, preference, experience, skill, relationship
	Importance int        `json:"importance"`           // 1-10
	Sentiment  float64    `json:"sentiment"`            // -1..1
	Entities   []string   `json:"entities,omitempty"`   // Named entities mentioned in the content
	Keywords   []string   `json:"keywords,omitempty"`   // Salient keywords

	CreatedAt time.Time `json:"created_at"`
}

// MemoryPatch carries a corrective update for an existing memory. Nil fields
// are left untouched; memories are otherwise immutable.
type MemoryPatch struct {
	Summary    *string     `json:"summary,omitempty"`
	MemoryType *MemoryType `json:"memory_type,omitempty"`
	Importance *int        `json:"importance,omitempty"`
	Sentiment  *float64    `json:"sentiment,omitempty"`
	Entities   []string    `json:"entities,omitempty"`
	Keywords   []string    `json:"keywords,omitempty"`
}

// IsZero reports whether the patch would change nothing.
func (p *MemoryPatch) IsZero() bool {
	if p == nil {
		return true
	}
	return p.Summary == nil && p.MemoryType == nil && p.Importance == nil &&
		p.Sentiment == nil && p.Entities == nil && p.Keywords == nil
}
