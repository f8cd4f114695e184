package engine

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/recollect-ai/recollect/internal/config"
	"github.com/recollect-ai/recollect/internal/llm"
	"github.com/recollect-ai/recollect/internal/storage"
	"github.com/recollect-ai/recollect/pkg/types"
)

// Result sources.
const (
	SourceProfile  = "profile"
	SourceMemories = "memories"
	SourceTasks    = "tasks"
)

// SearchEngine answers natural-language questions over the owner's knowledge.
// Structured profile fields are consulted first — a durable fact beats
// episodic recall — then memories are ranked by four fused signals: semantic
// similarity, entity overlap, temporal fit, and keyword overlap.
type SearchEngine struct {
	memories storage.MemoryStore
	profiles storage.ProfileStore
	embedder llm.EmbeddingGenerator
	cfg      config.SearchConfig
	logger   *log.Logger

	// semantic is set when the memory store can rank by embedding itself.
	semantic storage.SemanticSearcher
}

// NewSearchEngine creates a search engine over the given stores. When the
// memory store also implements storage.SemanticSearcher (both bundled
// backends do), vector ranking is delegated to it.
func NewSearchEngine(
	memories storage.MemoryStore,
	profiles storage.ProfileStore,
	embedder llm.EmbeddingGenerator,
	cfg config.SearchConfig,
	logger *log.Logger,
) *SearchEngine {
	if logger == nil {
		logger = log.Default()
	}
	e := &SearchEngine{
		memories: memories,
		profiles: profiles,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}
	if ss, ok := memories.(storage.SemanticSearcher); ok {
		e.semantic = ss
	}
	return e
}

// SearchRequest is a natural-language question scoped to an owner.
type SearchRequest struct {
	OwnerID string
	Query   string
	Context types.Context // optional; empty searches all contexts
	Limit   int           // optional; defaults to the configured max
}

// SearchResult is one ranked answer. Profile hits carry the resolved field
// and rendered answer; memory hits carry the memory and its score breakdown.
type SearchResult struct {
	Source     string
	FieldPath  string // set for profile hits
	Answer     string // rendered value for profile hits
	Memory     *types.Memory
	Task       *types.Task // set for task hits from the hybrid resolver
	Score      float64
	Components ScoreComponents
}

// ScoreComponents is the per-signal breakdown of a fused memory score.
type ScoreComponents struct {
	Semantic float64
	Entity   float64
	Temporal float64
	Keyword  float64
}

// Search resolves the query, profile first. Profile hits are pinned above
// every memory result; memories are fused-scored, thresholded, and ordered
// deterministically (score desc, newest first, then ID).
func (e *SearchEngine) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, &ValidationError{Field: "query", Reason: "must not be empty"}
	}
	if req.OwnerID == "" {
		return nil, &ValidationError{Field: "owner", Reason: "must not be empty"}
	}
	if req.Limit <= 0 {
		req.Limit = e.cfg.MaxResults
	}

	var results []SearchResult

	profile, err := e.profiles.GetProfile(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	results = append(results, resolveProfile(profile, req.Query)...)

	memoryResults, err := e.searchMemories(ctx, req)
	if err != nil {
		return nil, err
	}
	results = append(results, memoryResults...)

	// Profile hits stay pinned on top; everything else by fused score.
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if (a.Source == SourceProfile) != (b.Source == SourceProfile) {
			return a.Source == SourceProfile
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Memory != nil && b.Memory != nil {
			if !a.Memory.CreatedAt.Equal(b.Memory.CreatedAt) {
				return a.Memory.CreatedAt.After(b.Memory.CreatedAt)
			}
			return a.Memory.ID < b.Memory.ID
		}
		return a.FieldPath < b.FieldPath
	})

	if len(results) > req.Limit {
		results = results[:req.Limit]
	}

	e.logger.Debug("search resolved", "owner", req.OwnerID, "results", len(results))
	return results, nil
}

// searchMemories retrieves candidates and applies the four-signal fusion.
func (e *SearchEngine) searchMemories(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	queryEmbedding, err := e.embedder.Embed(ctx, req.Query, llm.ModeQuery)
	if err != nil {
		// Semantic signal unavailable; degrade to the lexical signals rather
		// than failing the whole query.
		e.logger.Warn("query embedding failed, searching without semantic signal", "err", err)
		queryEmbedding = nil
	}

	candidates, err := e.gatherCandidates(ctx, req, queryEmbedding)
	if err != nil {
		return nil, err
	}

	terms := queryTerms(req.Query)
	recency := hasRecencyIntent(req.Query)
	now := time.Now()

	var results []SearchResult
	for _, cand := range candidates {
		if req.Context != "" && cand.Memory.Context != req.Context {
			continue
		}

		comp := ScoreComponents{
			Semantic: cand.Similarity,
			Entity:   entityScore(cand.Memory, terms),
			Temporal: temporalScore(cand.Memory, now, recency),
			Keyword:  keywordScore(cand.Memory, terms),
		}
		score := e.cfg.SemanticWeight*comp.Semantic +
			e.cfg.EntityWeight*comp.Entity +
			e.cfg.TemporalWeight*comp.Temporal +
			e.cfg.KeywordWeight*comp.Keyword

		if score < e.cfg.SimilarityThreshold {
			continue
		}

		results = append(results, SearchResult{
			Source:     SourceMemories,
			Memory:     cand.Memory,
			Score:      score,
			Components: comp,
		})
	}
	return results, nil
}

// gatherCandidates pulls scored candidates from the vector index when one is
// available and the query embedded; otherwise it falls back to recent
// memories with a neutral semantic score.
func (e *SearchEngine) gatherCandidates(ctx context.Context, req SearchRequest, queryEmbedding []float32) ([]storage.SemanticMatch, error) {
	// Over-fetch so the lexical signals can promote candidates the vector
	// ranking put below the cut.
	pool := req.Limit * 10
	if pool < 100 {
		pool = 100
	}

	if e.semantic != nil && len(queryEmbedding) > 0 {
		matches, err := e.semantic.SearchByEmbedding(ctx, req.OwnerID, queryEmbedding, pool)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			return matches, nil
		}
	}

	memories, err := e.memories.QueryMemories(ctx, storage.MemoryQuery{
		OwnerID: req.OwnerID,
		Context: req.Context,
		Limit:   pool,
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(memories, func(m *types.Memory, _ int) storage.SemanticMatch {
		return storage.SemanticMatch{Memory: m, Similarity: 0.5}
	}), nil
}

var termSplitRe = regexp.MustCompile(`[^a-z0-9']+`)

// queryStopwords are dropped from lexical matching.
var queryStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "do": true, "does": true, "did": true, "what": true,
	"whats": true, "what's": true, "when": true, "where": true, "who": true,
	"whos": true, "who's": true, "how": true, "why": true, "my": true,
	"i": true, "me": true, "of": true, "to": true, "in": true, "on": true,
	"at": true, "for": true, "about": true, "with": true, "and": true,
	"or": true, "it": true, "that": true, "this": true, "have": true,
	"has": true, "had": true,
}

// queryTerms lowercases and tokenizes the query, dropping stopwords.
func queryTerms(query string) []string {
	words := termSplitRe.Split(strings.ToLower(query), -1)
	return lo.Filter(words, func(w string, _ int) bool {
		return w != "" && !queryStopwords[w]
	})
}

// hasRecencyIntent reports whether the query asks about recent events.
func hasRecencyIntent(query string) bool {
	lower := strings.ToLower(query)
	for _, marker := range []string{
		"recent", "recently", "lately", "latest", "last ", "yesterday",
		"this week", "this month", "just ",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// entityScore is the fraction of query terms that name one of the memory's
// entities. Normalizing by the query keeps a focused question ("Sarah") at
// full strength against an entity-rich memory instead of diluting it by how
// many entities the memory happens to carry.
func entityScore(m *types.Memory, terms []string) float64 {
	if len(m.Entities) == 0 || len(terms) == 0 {
		return 0
	}
	entitiesLower := lo.Map(m.Entities, func(e string, _ int) string { return strings.ToLower(e) })
	matched := 0
	for _, term := range terms {
		for _, entity := range entitiesLower {
			if strings.Contains(entity, term) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(terms))
}

// keywordScore is the fraction of query terms found among the memory's
// keywords or content.
func keywordScore(m *types.Memory, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	contentLower := strings.ToLower(m.Content)
	keywordsLower := lo.Map(m.Keywords, func(k string, _ int) string { return strings.ToLower(k) })

	matched := 0
	for _, term := range terms {
		if lo.Contains(keywordsLower, term) || strings.Contains(contentLower, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// temporalScore decays with age on a 30-day scale when the query carries
// recency intent; without that intent the signal is neutral so old durable
// memories are not penalised.
func temporalScore(m *types.Memory, now time.Time, recencyIntent bool) float64 {
	if !recencyIntent {
		return 0.5
	}
	ageDays := now.Sub(m.CreatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-ageDays / 30)
}
