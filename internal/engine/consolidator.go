package engine

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/recollect-ai/recollect/internal/config"
	"github.com/recollect-ai/recollect/internal/storage"
	"github.com/recollect-ai/recollect/pkg/types"
)

// contradictionDeactivateAt is how many recorded contradictions it takes to
// deactivate a pattern.
const contradictionDeactivateAt = 3

// contradictionPenalty is subtracted from confidence per contradiction.
const contradictionPenalty = 0.2

// Consolidator maintains the owner's learning patterns. A new observation is
// merged into an existing active pattern when their texts overlap, boosting
// that pattern's confidence instead of accumulating near-duplicates; only
// genuinely new behavior creates a new pattern record.
type Consolidator struct {
	patterns  storage.PatternStore
	prefixLen int
	minConf   float64
	logger    *log.Logger
}

// NewConsolidator creates a consolidator with the configured overlap window.
func NewConsolidator(patterns storage.PatternStore, cfg config.PatternsConfig, logger *log.Logger) *Consolidator {
	if logger == nil {
		logger = log.Default()
	}
	prefixLen := cfg.OverlapPrefixLen
	if prefixLen <= 0 {
		prefixLen = 20
	}
	return &Consolidator{
		patterns:  patterns,
		prefixLen: prefixLen,
		minConf:   cfg.MinConfidence,
		logger:    logger,
	}
}

// Observation is one observed behavior to consolidate.
type Observation struct {
	OwnerID     string
	PatternType string        // e.g. "scheduling", "preference"
	Category    string
	Pattern     string        // the behavior, stated as a sentence
	Confidence  float64       // how confident this single observation is, 0..1
	EvidenceID  string        // memory or task ID backing the observation
	Context     types.Context // optional; empty applies the pattern everywhere
}

// Observe merges the observation into an overlapping active pattern, or
// creates a new pattern when none overlaps. Returns the affected pattern and
// whether it was newly created.
func (c *Consolidator) Observe(ctx context.Context, obs Observation) (*types.LearningPattern, bool, error) {
	if obs.OwnerID == "" {
		return nil, false, &ValidationError{Field: "owner", Reason: "must not be empty"}
	}
	if strings.TrimSpace(obs.Pattern) == "" {
		return nil, false, &ValidationError{Field: "pattern", Reason: "must not be empty"}
	}

	active, err := c.patterns.ListActivePatterns(ctx, storage.PatternQuery{
		OwnerID:  obs.OwnerID,
		Category: obs.Category,
	})
	if err != nil {
		return nil, false, err
	}

	for _, existing := range active {
		if !c.overlaps(existing.Pattern, obs.Pattern) {
			continue
		}

		existing.BoostConfidence(obs.Confidence)
		if obs.EvidenceID != "" && !containsString(existing.Evidence, obs.EvidenceID) {
			existing.Evidence = append(existing.Evidence, obs.EvidenceID)
		}
		if obs.Context != "" && !containsContext(existing.ApplicableContexts, obs.Context) {
			existing.ApplicableContexts = append(existing.ApplicableContexts, obs.Context)
		}

		if err := c.patterns.UpdatePattern(ctx, existing); err != nil {
			return nil, false, err
		}
		c.logger.Debug("pattern reinforced", "id", existing.ID, "confidence", existing.Confidence)
		return existing, false, nil
	}

	pattern := &types.LearningPattern{
		ID:          uuid.NewString(),
		OwnerID:     obs.OwnerID,
		PatternType: obs.PatternType,
		Category:    obs.Category,
		Pattern:     strings.TrimSpace(obs.Pattern),
		Confidence:  types.ClampConfidence(obs.Confidence),
		IsActive:    true,
	}
	if obs.EvidenceID != "" {
		pattern.Evidence = []string{obs.EvidenceID}
	}
	if obs.Context != "" {
		pattern.ApplicableContexts = []types.Context{obs.Context}
	} else {
		pattern.ApplicableContexts = append([]types.Context(nil), types.AllContexts...)
	}

	if err := c.patterns.InsertPattern(ctx, pattern); err != nil {
		return nil, false, err
	}
	c.logger.Debug("pattern created", "id", pattern.ID, "pattern", pattern.Pattern)
	return pattern, true, nil
}

// Contradict records evidence against a pattern. Confidence drops with each
// contradiction; after enough of them (or once confidence falls below the
// applicable floor) the pattern is deactivated, never deleted.
func (c *Consolidator) Contradict(ctx context.Context, ownerID, patternID, evidenceID string) (*types.LearningPattern, error) {
	active, err := c.patterns.ListActivePatterns(ctx, storage.PatternQuery{OwnerID: ownerID})
	if err != nil {
		return nil, err
	}

	var pattern *types.LearningPattern
	for _, p := range active {
		if p.ID == patternID {
			pattern = p
			break
		}
	}
	if pattern == nil {
		return nil, storage.ErrNotFound
	}

	pattern.ContradictionCount++
	pattern.Confidence = types.ClampConfidence(pattern.Confidence - contradictionPenalty)
	if evidenceID != "" && !containsString(pattern.Evidence, evidenceID) {
		pattern.Evidence = append(pattern.Evidence, evidenceID)
	}
	if pattern.ContradictionCount >= contradictionDeactivateAt || pattern.Confidence < c.minConf {
		pattern.IsActive = false
		c.logger.Info("pattern deactivated after contradiction",
			"id", pattern.ID, "contradictions", pattern.ContradictionCount)
	}

	if err := c.patterns.UpdatePattern(ctx, pattern); err != nil {
		return nil, err
	}
	return pattern, nil
}

// overlaps reports whether the candidate's case-folded prefix window occurs
// anywhere in the existing pattern text. Containment rather than mutual
// prefix equality, so "schedules meetings in the morning, always" still
// merges into "Always schedules meetings in the morning before standup".
func (c *Consolidator) overlaps(existing, candidate string) bool {
	haystack := strings.ToLower(strings.TrimSpace(existing))
	needle := []rune(strings.ToLower(strings.TrimSpace(candidate)))
	if len(haystack) == 0 || len(needle) == 0 {
		return false
	}
	n := c.prefixLen
	if len(needle) < n {
		n = len(needle)
	}
	return strings.Contains(haystack, string(needle[:n]))
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsContext(list []types.Context, c types.Context) bool {
	for _, v := range list {
		if v == c {
			return true
		}
	}
	return false
}
