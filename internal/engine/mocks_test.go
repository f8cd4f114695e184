package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/recollect-ai/recollect/internal/llm"
	"github.com/recollect-ai/recollect/internal/storage"
	"github.com/recollect-ai/recollect/pkg/types"
)

// fakeGenerator replays canned completions in order. When the responses run
// out the last one repeats, which keeps retry paths simple to script.
type fakeGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	tokens    int
	calls     int
}

func (g *fakeGenerator) Complete(_ context.Context, _ string) (*llm.Completion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	g.calls++
	if i < len(g.errs) && g.errs[i] != nil {
		return nil, g.errs[i]
	}
	if len(g.responses) == 0 {
		return &llm.Completion{Text: "{}", TokensUsed: g.tokens}, nil
	}
	if i >= len(g.responses) {
		i = len(g.responses) - 1
	}
	return &llm.Completion{Text: g.responses[i], TokensUsed: g.tokens}, nil
}

func (g *fakeGenerator) GetModel() string { return "fake-model" }

// fakeEmbedder returns a fixed vector for every input, or a scripted error.
type fakeEmbedder struct {
	vector []float32
	err    error
}

func (e *fakeEmbedder) Embed(_ context.Context, _ string, _ llm.EmbeddingMode) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector, nil
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string, _ llm.EmbeddingMode) (*llm.EmbeddingResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = e.vector
	}
	return &llm.EmbeddingResult{Vectors: vectors}, nil
}

func (e *fakeEmbedder) GetModel() string { return "fake-embedding" }

// memStore is an in-memory storage.Store. It deliberately does NOT implement
// storage.SemanticSearcher so tests exercise the lexical fallback; semStore
// layers the vector path on top.
type memStore struct {
	mu       sync.Mutex
	memories map[string]*types.Memory
	tasks    map[string]*types.Task
	profiles map[string]*types.Profile
	patterns map[string]*types.LearningPattern
}

func newMemStore() *memStore {
	return &memStore{
		memories: map[string]*types.Memory{},
		tasks:    map[string]*types.Task{},
		profiles: map[string]*types.Profile{},
		patterns: map[string]*types.LearningPattern{},
	}
}

func (s *memStore) InsertMemory(_ context.Context, m *types.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.memories[m.ID]; ok {
		return storage.ErrInvalidInput
	}
	cp := *m
	s.memories[m.ID] = &cp
	return nil
}

func (s *memStore) GetMemory(_ context.Context, ownerID, id string) (*types.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if !ok || m.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) PatchMemory(_ context.Context, ownerID, id string, patch *types.MemoryPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if !ok || m.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	if patch.Summary != nil {
		m.Summary = *patch.Summary
	}
	if patch.MemoryType != nil {
		m.MemoryType = *patch.MemoryType
	}
	if patch.Importance != nil {
		m.Importance = types.ClampImportance(*patch.Importance)
	}
	if patch.Sentiment != nil {
		m.Sentiment = types.ClampSentiment(*patch.Sentiment)
	}
	if patch.Entities != nil {
		m.Entities = patch.Entities
	}
	if patch.Keywords != nil {
		m.Keywords = patch.Keywords
	}
	return nil
}

func (s *memStore) QueryMemories(_ context.Context, q storage.MemoryQuery) ([]*types.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.Normalize()
	var out []*types.Memory
	for _, m := range s.memories {
		if m.OwnerID != q.OwnerID {
			continue
		}
		if q.Context != "" && m.Context != q.Context {
			continue
		}
		if q.MemoryType != "" && m.MemoryType != q.MemoryType {
			continue
		}
		if !q.CreatedAfter.IsZero() && m.CreatedAt.Before(q.CreatedAfter) {
			continue
		}
		if !q.CreatedBefore.IsZero() && m.CreatedAt.After(q.CreatedBefore) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *memStore) InsertTask(_ context.Context, t *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; ok {
		return storage.ErrInvalidInput
	}
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *memStore) GetTask(_ context.Context, ownerID, id string) (*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) PatchTask(_ context.Context, ownerID, id string, patch *types.TaskPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.DueDate != nil {
		due := *patch.DueDate
		t.DueDate = &due
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Tags != nil {
		t.Tags = patch.Tags
	}
	return nil
}

func (s *memStore) QueryTasks(_ context.Context, q storage.TaskQuery) ([]*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Task
	for _, t := range s.tasks {
		if t.OwnerID != q.OwnerID {
			continue
		}
		if q.Context != "" && t.Context != q.Context {
			continue
		}
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		if !q.DueAfter.IsZero() && (t.DueDate == nil || t.DueDate.Before(q.DueAfter)) {
			continue
		}
		if !q.DueBefore.IsZero() && (t.DueDate == nil || !t.DueDate.Before(q.DueBefore)) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.DueDate == nil && b.DueDate != nil:
			return false
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		}
		return a.ID < b.ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *memStore) CompleteTask(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	t.Status = types.TaskStatusCompleted
	return nil
}

func (s *memStore) GetProfile(_ context.Context, ownerID string) (*types.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[ownerID]; ok {
		cp := *p
		return &cp, nil
	}
	return &types.Profile{OwnerID: ownerID}, nil
}

func (s *memStore) ApplyProfilePatch(_ context.Context, ownerID string, patch *types.ProfilePatch) (*types.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[ownerID]
	if !ok {
		p = &types.Profile{OwnerID: ownerID}
		s.profiles[ownerID] = p
	}
	p.Apply(patch)
	cp := *p
	return &cp, nil
}

func (s *memStore) InsertPattern(_ context.Context, p *types.LearningPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patterns[p.ID]; ok {
		return storage.ErrInvalidInput
	}
	cp := *p
	s.patterns[p.ID] = &cp
	return nil
}

func (s *memStore) UpdatePattern(_ context.Context, p *types.LearningPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patterns[p.ID]; !ok {
		return storage.ErrNotFound
	}
	cp := *p
	s.patterns[p.ID] = &cp
	return nil
}

func (s *memStore) ListActivePatterns(_ context.Context, q storage.PatternQuery) ([]*types.LearningPattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.LearningPattern
	for _, p := range s.patterns {
		if p.OwnerID != q.OwnerID || !p.IsActive {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if p.Confidence < q.MinConfidence {
			continue
		}
		if q.Context != "" && len(p.ApplicableContexts) > 0 && !containsContext(p.ApplicableContexts, q.Context) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memStore) DeactivatePattern(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[id]
	if !ok || p.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	p.IsActive = false
	return nil
}

func (s *memStore) Close() error { return nil }

// semStore layers a scripted vector index over memStore.
type semStore struct {
	*memStore
	matches []storage.SemanticMatch
}

func (s *semStore) SearchByEmbedding(_ context.Context, ownerID string, _ []float32, limit int) ([]storage.SemanticMatch, error) {
	var out []storage.SemanticMatch
	for _, m := range s.matches {
		if m.Memory.OwnerID == ownerID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Compile-time assertions.
var (
	_ storage.Store            = (*memStore)(nil)
	_ storage.SemanticSearcher = (*semStore)(nil)
	_ llm.TextGenerator        = (*fakeGenerator)(nil)
	_ llm.EmbeddingGenerator   = (*fakeEmbedder)(nil)
)
