package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recollect-ai/recollect/internal/storage"
	"github.com/recollect-ai/recollect/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testMemory(id string) *types.Memory {
	return &types.Memory{
		ID:         id,
		OwnerID:    "owner-1",
		Content:    "Met Sarah for coffee to discuss the migration project",
		SourceType: "message",
		Context:    types.ContextWork,
		Summary:    "Coffee with Sarah about the migration",
		MemoryType: types.MemoryTypeExperience,
		Importance: 6,
		Sentiment:  0.4,
		Entities:   []string{"Sarah"},
		Keywords:   []string{"coffee", "migration"},
		Embedding:  []float32{0.1, 0.2, 0.3},
	}
}

func TestMemoryInsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := testMemory("mem-1")
	require.NoError(t, s.InsertMemory(ctx, m))

	got, err := s.GetMemory(ctx, "owner-1", "mem-1")
	require.NoError(t, err)
	assert.Equal(t, m.Content, got.Content)
	assert.Equal(t, types.ContextWork, got.Context)
	assert.Equal(t, []string{"Sarah"}, got.Entities)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got.Embedding)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestMemoryGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetMemory(context.Background(), "owner-1", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryGetWrongOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertMemory(ctx, testMemory("mem-1")))

	_, err := s.GetMemory(ctx, "other-owner", "mem-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryDuplicateInsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertMemory(ctx, testMemory("mem-1")))
	assert.ErrorIs(t, s.InsertMemory(ctx, testMemory("mem-1")), storage.ErrInvalidInput)
}

func TestMemoryInsertValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.InsertMemory(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, s.InsertMemory(ctx, &types.Memory{ID: "x", OwnerID: "o"}), storage.ErrInvalidInput)
	assert.ErrorIs(t, s.InsertMemory(ctx, &types.Memory{Content: "c", OwnerID: "o"}), storage.ErrInvalidInput)
}

func TestMemoryPatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertMemory(ctx, testMemory("mem-1")))

	imp := 9
	summary := "Corrected summary"
	err := s.PatchMemory(ctx, "owner-1", "mem-1", &types.MemoryPatch{
		Importance: &imp,
		Summary:    &summary,
	})
	require.NoError(t, err)

	got, err := s.GetMemory(ctx, "owner-1", "mem-1")
	require.NoError(t, err)
	assert.Equal(t, 9, got.Importance)
	assert.Equal(t, "Corrected summary", got.Summary)
	// Untouched fields survive.
	assert.Equal(t, []string{"Sarah"}, got.Entities)
	assert.InDelta(t, 0.4, got.Sentiment, 1e-9)
}

func TestMemoryPatchClampsValues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertMemory(ctx, testMemory("mem-1")))

	imp := 42
	sent := -7.0
	require.NoError(t, s.PatchMemory(ctx, "owner-1", "mem-1", &types.MemoryPatch{
		Importance: &imp,
		Sentiment:  &sent,
	}))

	got, err := s.GetMemory(ctx, "owner-1", "mem-1")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Importance)
	assert.InDelta(t, -1.0, got.Sentiment, 1e-9)
}

func TestMemoryPatchNotFound(t *testing.T) {
	s := newTestStore(t)
	imp := 5
	err := s.PatchMemory(context.Background(), "owner-1", "missing", &types.MemoryPatch{Importance: &imp})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestQueryMemoriesFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	work := testMemory("mem-work")
	personal := testMemory("mem-personal")
	personal.Context = types.ContextPersonal
	personal.MemoryType = types.MemoryTypePreference
	other := testMemory("mem-other")
	other.OwnerID = "owner-2"

	require.NoError(t, s.InsertMemory(ctx, work))
	require.NoError(t, s.InsertMemory(ctx, personal))
	require.NoError(t, s.InsertMemory(ctx, other))

	all, err := s.QueryMemories(ctx, storage.MemoryQuery{OwnerID: "owner-1"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	workOnly, err := s.QueryMemories(ctx, storage.MemoryQuery{OwnerID: "owner-1", Context: types.ContextWork})
	require.NoError(t, err)
	require.Len(t, workOnly, 1)
	assert.Equal(t, "mem-work", workOnly[0].ID)

	prefs, err := s.QueryMemories(ctx, storage.MemoryQuery{OwnerID: "owner-1", MemoryType: types.MemoryTypePreference})
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, "mem-personal", prefs[0].ID)
}

func TestQueryMemoriesTimeWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := testMemory("mem-old")
	old.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := testMemory("mem-recent")
	recent.CreatedAt = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.InsertMemory(ctx, old))
	require.NoError(t, s.InsertMemory(ctx, recent))

	got, err := s.QueryMemories(ctx, storage.MemoryQuery{
		OwnerID:      "owner-1",
		CreatedAfter: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "mem-recent", got[0].ID)
}

func TestSearchByEmbedding(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	near := testMemory("mem-near")
	near.Embedding = []float32{1, 0, 0}
	far := testMemory("mem-far")
	far.Embedding = []float32{-1, 0, 0}
	none := testMemory("mem-none")
	none.Embedding = nil
	require.NoError(t, s.InsertMemory(ctx, near))
	require.NoError(t, s.InsertMemory(ctx, far))
	require.NoError(t, s.InsertMemory(ctx, none))

	matches, err := s.SearchByEmbedding(ctx, "owner-1", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "mem-near", matches[0].Memory.ID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
	assert.Equal(t, "mem-far", matches[1].Memory.ID)
	assert.InDelta(t, 0.0, matches[1].Similarity, 1e-6)
}

func TestSearchByEmbeddingHonorsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		m := testMemory("mem-" + id)
		require.NoError(t, s.InsertMemory(ctx, m))
	}

	matches, err := s.SearchByEmbedding(ctx, "owner-1", []float32{0.1, 0.2, 0.3}, 2)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestCosineSimilarity(t *testing.T) {
	sim, ok := cosineSimilarity([]float32{1, 0}, []float32{1, 0})
	require.True(t, ok)
	assert.InDelta(t, 1.0, sim, 1e-9)

	// Orthogonal vectors are unrelated: similarity 0, not a midpoint score.
	sim, ok = cosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.True(t, ok)
	assert.InDelta(t, 0.0, sim, 1e-9)

	// Opposed vectors clamp to 0 rather than going negative.
	sim, ok = cosineSimilarity([]float32{1, 0}, []float32{-1, 0})
	require.True(t, ok)
	assert.InDelta(t, 0.0, sim, 1e-9)

	_, ok = cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
	assert.False(t, ok)
	_, ok = cosineSimilarity([]float32{0, 0}, []float32{1, 0})
	assert.False(t, ok)
}

func testTask(id string) *types.Task {
	due := time.Date(2026, 9, 4, 15, 0, 0, 0, time.UTC)
	return &types.Task{
		ID:           id,
		OwnerID:      "owner-1",
		Title:        "Meeting with John",
		Context:      types.ContextWork,
		Participants: []string{"John"},
		Tags:         []string{"meeting"},
		DueDate:      &due,
		EventType:    "meeting",
	}
}

func TestTaskInsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertTask(ctx, testTask("task-1")))

	got, err := s.GetTask(ctx, "owner-1", "task-1")
	require.NoError(t, err)
	assert.Equal(t, "Meeting with John", got.Title)
	assert.Equal(t, types.TaskStatusPending, got.Status)
	assert.Equal(t, []string{"John"}, got.Participants)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, 2026, got.DueDate.Year())
}

func TestTaskPatchAndComplete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertTask(ctx, testTask("task-1")))

	newDue := time.Date(2026, 9, 5, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.PatchTask(ctx, "owner-1", "task-1", &types.TaskPatch{DueDate: &newDue}))

	got, err := s.GetTask(ctx, "owner-1", "task-1")
	require.NoError(t, err)
	assert.Equal(t, newDue, got.DueDate.UTC())
	assert.Equal(t, "Meeting with John", got.Title)

	require.NoError(t, s.CompleteTask(ctx, "owner-1", "task-1"))
	got, err = s.GetTask(ctx, "owner-1", "task-1")
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusCompleted, got.Status)
}

func TestTaskCompleteNotFound(t *testing.T) {
	s := newTestStore(t)
	assert.ErrorIs(t, s.CompleteTask(context.Background(), "owner-1", "missing"), storage.ErrNotFound)
}

func TestQueryTasksOrderedByDueDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	later := testTask("task-later")
	laterDue := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	later.DueDate = &laterDue
	soon := testTask("task-soon")
	soonDue := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	soon.DueDate = &soonDue
	undated := testTask("task-undated")
	undated.DueDate = nil

	require.NoError(t, s.InsertTask(ctx, later))
	require.NoError(t, s.InsertTask(ctx, undated))
	require.NoError(t, s.InsertTask(ctx, soon))

	got, err := s.QueryTasks(ctx, storage.TaskQuery{OwnerID: "owner-1"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "task-soon", got[0].ID)
	assert.Equal(t, "task-later", got[1].ID)
	assert.Equal(t, "task-undated", got[2].ID)
}

func TestQueryTasksStatusFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertTask(ctx, testTask("task-1")))
	require.NoError(t, s.InsertTask(ctx, testTask("task-2")))
	require.NoError(t, s.CompleteTask(ctx, "owner-1", "task-2"))

	pending, err := s.QueryTasks(ctx, storage.TaskQuery{OwnerID: "owner-1", Status: types.TaskStatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "task-1", pending[0].ID)
}

func TestProfileEmptyWhenUnset(t *testing.T) {
	s := newTestStore(t)
	profile, err := s.GetProfile(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", profile.OwnerID)
	assert.Empty(t, profile.PersonalInfo.Name)
}

func TestProfileApplyPatchPersists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	company := "Microsoft"
	position := "Engineer"
	updated, err := s.ApplyProfilePatch(ctx, "owner-1", &types.ProfilePatch{
		WorkInfo: &types.WorkInfoPatch{Company: &company, Position: &position},
	})
	require.NoError(t, err)
	assert.Equal(t, "Microsoft", updated.WorkInfo.Employment.Company)

	// Later patch merges without blanking.
	city := "Seattle"
	updated, err = s.ApplyProfilePatch(ctx, "owner-1", &types.ProfilePatch{
		PersonalInfo: &types.PersonalInfoPatch{City: &city},
	})
	require.NoError(t, err)
	assert.Equal(t, "Seattle", updated.PersonalInfo.Location.City)
	assert.Equal(t, "Microsoft", updated.WorkInfo.Employment.Company)

	// Round-trips through the database.
	got, err := s.GetProfile(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "Microsoft", got.WorkInfo.Employment.Company)
	assert.Equal(t, "Seattle", got.PersonalInfo.Location.City)
}

func testPattern(id string) *types.LearningPattern {
	return &types.LearningPattern{
		ID:                 id,
		OwnerID:            "owner-1",
		PatternType:        "scheduling",
		Category:           "scheduling",
		Pattern:            "prefers morning meetings before 10am",
		Confidence:         0.6,
		Evidence:           []string{"mem-1"},
		ApplicableContexts: []types.Context{types.ContextWork},
		IsActive:           true,
	}
}

func TestPatternInsertListUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testPattern("pat-1")
	require.NoError(t, s.InsertPattern(ctx, p))

	patterns, err := s.ListActivePatterns(ctx, storage.PatternQuery{OwnerID: "owner-1"})
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, "prefers morning meetings before 10am", patterns[0].Pattern)

	p.BoostConfidence(0.8)
	p.Evidence = append(p.Evidence, "mem-2")
	require.NoError(t, s.UpdatePattern(ctx, p))

	patterns, err = s.ListActivePatterns(ctx, storage.PatternQuery{OwnerID: "owner-1"})
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.InDelta(t, 0.68, patterns[0].Confidence, 1e-9)
	assert.Equal(t, []string{"mem-1", "mem-2"}, patterns[0].Evidence)
}

func TestPatternContextFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	workOnly := testPattern("pat-work")
	everywhere := testPattern("pat-any")
	everywhere.ApplicableContexts = nil
	require.NoError(t, s.InsertPattern(ctx, workOnly))
	require.NoError(t, s.InsertPattern(ctx, everywhere))

	family, err := s.ListActivePatterns(ctx, storage.PatternQuery{
		OwnerID: "owner-1",
		Context: types.ContextFamily,
	})
	require.NoError(t, err)
	require.Len(t, family, 1)
	assert.Equal(t, "pat-any", family[0].ID)
}

func TestPatternDeactivate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertPattern(ctx, testPattern("pat-1")))

	require.NoError(t, s.DeactivatePattern(ctx, "owner-1", "pat-1"))

	patterns, err := s.ListActivePatterns(ctx, storage.PatternQuery{OwnerID: "owner-1"})
	require.NoError(t, err)
	assert.Empty(t, patterns)

	assert.ErrorIs(t, s.DeactivatePattern(ctx, "owner-1", "missing"), storage.ErrNotFound)
}

func TestPatternMinConfidenceFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	weak := testPattern("pat-weak")
	weak.Confidence = 0.2
	strong := testPattern("pat-strong")
	strong.Confidence = 0.9
	require.NoError(t, s.InsertPattern(ctx, weak))
	require.NoError(t, s.InsertPattern(ctx, strong))

	patterns, err := s.ListActivePatterns(ctx, storage.PatternQuery{
		OwnerID:       "owner-1",
		MinConfidence: 0.3,
	})
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, "pat-strong", patterns[0].ID)
}

func TestStoreReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.InsertMemory(ctx, testMemory("mem-1")))
	require.NoError(t, s.Close())

	s2, err := New(dir)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.GetMemory(ctx, "owner-1", "mem-1")
	require.NoError(t, err)
	assert.Equal(t, "mem-1", got.ID)
}
