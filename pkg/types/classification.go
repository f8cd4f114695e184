package types

// ContentKind is the three-way routing decision for a unit of incoming text.
type ContentKind string

// Content kinds. PROFILE is a durable self-description, MEMORY a completed
// event or experience, EXPERIENCE a dated or relatively-dated future event.
const (
	KindProfile    ContentKind = "profile"
	KindMemory     ContentKind = "memory"
	KindExperience ContentKind = "experience"
)

// ValidContentKinds lists all valid classification outcomes.
var ValidContentKinds = []ContentKind{KindProfile, KindMemory, KindExperience}

// IsValidContentKind checks if the given kind is valid.
func IsValidContentKind(k ContentKind) bool {
	for _, v := range ValidContentKinds {
		if v == k {
			return true
		}
	}
	return false
}

// Classification is the outcome of content classification: the routing
// decision every downstream component depends on.
type Classification struct {
	// Kind is the routing decision.
	Kind ContentKind `json:"kind"`

	// Confidence is the classifier's confidence in the decision (0..1).
	Confidence float64 `json:"confidence"`

	// Reasoning is free-text reasoning for the decision.
	Reasoning string `json:"reasoning,omitempty"`

	// Subtype is an optional refinement, e.g. "employment" for a PROFILE
	// statement or "meeting" for an EXPERIENCE.
	Subtype string `json:"subtype,omitempty"`
}
