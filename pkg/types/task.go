package types

import "time"

// Task is a future-dated experience: a scheduled meeting, appointment, or
// other event extracted from EXPERIENCE-classified content. Unlike memories,
// tasks stay mutable (status, due date) until completed or cancelled.
type Task struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Context        Context    `json:"context"`
	Participants   []string   `json:"participants,omitempty"` // Ordered as mentioned in the source text
	Tags           []string   `json:"tags,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	LinkedMemoryID string     `json:"linked_memory_id,omitempty"` // Provenance memory, if one was stored
	EventType      string     `json:"event_type,omitempty"`       // meeting, appointment, call, ...
	Status         string     `json:"status"`                     // pending, completed, cancelled
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TaskPatch carries a partial update for a task. Nil fields are untouched.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

// IsZero reports whether the patch would change nothing.
func (p *TaskPatch) IsZero() bool {
	if p == nil {
		return true
	}
	return p.Title == nil && p.Description == nil && p.DueDate == nil &&
		p.Status == nil && p.Tags == nil
}
