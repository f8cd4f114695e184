package engine

import (
	"context"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/recollect-ai/recollect/internal/storage"
	"github.com/recollect-ai/recollect/pkg/types"
)

// HybridResolver disambiguates questions that could refer to either an
// upcoming task or a past memory ("when is my meeting with John?"). Pending
// tasks are consulted first: a scheduled future event is almost always the
// better answer when one matches. Only when no task matches does the query
// fall through to the fused memory search.
type HybridResolver struct {
	tasks  storage.TaskStore
	search *SearchEngine
	logger *log.Logger
}

// NewHybridResolver creates a resolver over the given task store and search
// engine.
func NewHybridResolver(tasks storage.TaskStore, search *SearchEngine, logger *log.Logger) *HybridResolver {
	if logger == nil {
		logger = log.Default()
	}
	return &HybridResolver{tasks: tasks, search: search, logger: logger}
}

// taskMatch pairs a task with how many query terms it matched.
type taskMatch struct {
	task    *types.Task
	matched int
}

// Resolve answers the query, tasks first. Matching tasks are ranked by
// match count, then soonest due date, then ID; when none match, the result
// comes from the profile-and-memory search.
func (r *HybridResolver) Resolve(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	if req.OwnerID == "" {
		return nil, &ValidationError{Field: "owner", Reason: "must not be empty"}
	}
	terms := queryTerms(req.Query)
	if len(terms) == 0 {
		return nil, &ValidationError{Field: "query", Reason: "must contain at least one searchable term"}
	}
	if req.Limit <= 0 {
		req.Limit = r.search.cfg.MaxResults
	}

	pending, err := r.tasks.QueryTasks(ctx, storage.TaskQuery{
		OwnerID: req.OwnerID,
		Context: req.Context,
		Status:  types.TaskStatusPending,
	})
	if err != nil {
		return nil, err
	}

	matches := lo.FilterMap(pending, func(t *types.Task, _ int) (taskMatch, bool) {
		n := countTaskMatches(t, terms)
		return taskMatch{task: t, matched: n}, n > 0
	})

	if len(matches) == 0 {
		r.logger.Debug("no pending task matched, falling back to memory search", "owner", req.OwnerID)
		return r.search.Search(ctx, req)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.matched != b.matched {
			return a.matched > b.matched
		}
		switch {
		case a.task.DueDate == nil && b.task.DueDate != nil:
			return false
		case a.task.DueDate != nil && b.task.DueDate == nil:
			return true
		case a.task.DueDate != nil && b.task.DueDate != nil && !a.task.DueDate.Equal(*b.task.DueDate):
			return a.task.DueDate.Before(*b.task.DueDate)
		}
		return a.task.ID < b.task.ID
	})

	if len(matches) > req.Limit {
		matches = matches[:req.Limit]
	}

	return lo.Map(matches, func(m taskMatch, _ int) SearchResult {
		return SearchResult{
			Source: SourceTasks,
			Task:   m.task,
			Score:  float64(m.matched) / float64(len(terms)),
		}
	}), nil
}

// countTaskMatches counts how many query terms appear in the task's title,
// description, participants, tags, or event type.
func countTaskMatches(t *types.Task, terms []string) int {
	haystack := make([]string, 0, 4+len(t.Participants)+len(t.Tags))
	haystack = append(haystack, t.Title, t.Description, t.EventType)
	haystack = append(haystack, t.Participants...)
	haystack = append(haystack, t.Tags...)

	fields := lo.Map(haystack, func(s string, _ int) string { return strings.ToLower(s) })

	matched := 0
	for _, term := range terms {
		for _, f := range fields {
			if f != "" && strings.Contains(f, term) {
				matched++
				break
			}
		}
	}
	return matched
}
