package types

import "time"

// LearningPattern is an observed behavioral pattern ("prefers morning
// meetings", "always books the same dentist"). Patterns are created on first
// observation and consolidated on later ones: a new observation whose text
// overlaps an existing active pattern boosts that pattern's confidence and
// appends evidence instead of creating a duplicate record. Contradicted
// patterns are deactivated, never deleted.
type LearningPattern struct {
	ID                 string    `json:"id"`
	OwnerID            string    `json:"owner_id"`
	PatternType        string    `json:"pattern_type"` // e.g. "scheduling", "communication"
	Category           string    `json:"category"`
	Pattern            string    `json:"pattern"`
	Confidence         float64   `json:"confidence"` // 0..1
	Evidence           []string  `json:"evidence,omitempty"`
	ApplicableContexts []Context `json:"applicable_contexts,omitempty"`
	IsActive           bool      `json:"is_active"`
	ContradictionCount int       `json:"contradiction_count"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// BoostConfidence applies the bounded consolidation boost: the existing
// confidence is raised by a tenth of the new observation's confidence,
// capped at 1.0.
func (p *LearningPattern) BoostConfidence(observed float64) {
	p.Confidence = min(1.0, p.Confidence+ClampConfidence(observed)*0.1)
}
