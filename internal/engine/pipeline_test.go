package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recollect-ai/recollect/internal/storage"
	"github.com/recollect-ai/recollect/pkg/types"
)

// stubClassifier returns a fixed classification, bypassing the rule table.
type stubClassifier struct {
	cls *types.Classification
	err error
}

func (s *stubClassifier) Classify(context.Context, string, types.Context) (*types.Classification, error) {
	return s.cls, s.err
}

const metadataJSON = `{
	"entities": ["John"],
	"keywords": ["meeting"],
	"memory_type": "experience",
	"importance": 6,
	"sentiment": 0.2,
	"summary": "A meeting summary."
}`

func newTestPipeline(store storage.Store, classifier Classifier, profileJSON string) *Pipeline {
	meta := NewLLMMetadataExtractor(&fakeGenerator{responses: []string{metadataJSON}}, nil)
	prof := NewLLMProfileExtractor(&fakeGenerator{responses: []string{profileJSON}})
	return NewPipeline(store, classifier, meta, prof, &fakeEmbedder{vector: []float32{0.1, 0.2}}, nil)
}

func TestIngestProfileRoute(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(store, &RuleClassifier{}, `{"company": "Microsoft", "position": "Software Engineer"}`)

	res, err := p.Ingest(context.Background(), IngestRequest{
		OwnerID: "owner-1",
		Content: "I work at Microsoft as a software engineer",
		Context: types.ContextWork,
	})
	require.NoError(t, err)

	assert.Equal(t, types.KindProfile, res.Classification.Kind)
	require.NotNil(t, res.Profile)
	assert.Nil(t, res.Memory)
	assert.Nil(t, res.Task)

	assert.Equal(t, "Microsoft", res.Profile.WorkInfo.Employment.Company)
	assert.Equal(t, "Software Engineer", res.Profile.WorkInfo.Employment.Position)
	assert.Contains(t, res.UpdatedFields, "workInfo.employment.company")

	stored, err := store.GetProfile(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "Microsoft", stored.WorkInfo.Employment.Company)
}

func TestIngestProfileMergeNeverBlanks(t *testing.T) {
	store := newMemStore()

	p1 := newTestPipeline(store, &RuleClassifier{}, `{"company": "Microsoft", "position": "Software Engineer"}`)
	_, err := p1.Ingest(context.Background(), IngestRequest{
		OwnerID: "owner-1", Content: "I work at Microsoft as a software engineer",
	})
	require.NoError(t, err)

	// A later extraction touching only residence leaves employment intact.
	p2 := newTestPipeline(store, &RuleClassifier{}, `{"city": "Seattle"}`)
	res, err := p2.Ingest(context.Background(), IngestRequest{
		OwnerID: "owner-1", Content: "I live in Seattle",
	})
	require.NoError(t, err)

	assert.Equal(t, "Seattle", res.Profile.PersonalInfo.Location.City)
	assert.Equal(t, "Microsoft", res.Profile.WorkInfo.Employment.Company)
	assert.Equal(t, "Software Engineer", res.Profile.WorkInfo.Employment.Position)
}

func TestIngestMemoryRoute(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(store, &RuleClassifier{}, `{}`)

	res, err := p.Ingest(context.Background(), IngestRequest{
		OwnerID:    "owner-1",
		Content:    "Had a great conversation about the product roadmap",
		Context:    types.ContextWork,
		SourceType: "message",
		SourceID:   "msg-42",
	})
	require.NoError(t, err)

	assert.Equal(t, types.KindMemory, res.Classification.Kind)
	require.NotNil(t, res.Memory)
	assert.Nil(t, res.Task)
	assert.Nil(t, res.Profile)

	m := res.Memory
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "msg-42", m.SourceID)
	assert.Equal(t, types.MemoryTypeExperience, m.MemoryType)
	assert.Equal(t, 6, m.Importance)
	assert.Equal(t, []float32{0.1, 0.2}, m.Embedding)

	stored, err := store.GetMemory(context.Background(), "owner-1", m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Content, stored.Content)
}

func TestIngestExperienceCreatesLinkedTask(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(store, &RuleClassifier{}, `{}`)

	res, err := p.Ingest(context.Background(), IngestRequest{
		OwnerID: "owner-1",
		Content: "Meeting with John tomorrow at 3pm",
		Context: types.ContextWork,
	})
	require.NoError(t, err)

	assert.Equal(t, types.KindExperience, res.Classification.Kind)
	require.NotNil(t, res.Memory)
	require.NotNil(t, res.Task)

	task := res.Task
	assert.Equal(t, res.Memory.ID, task.LinkedMemoryID)
	assert.Equal(t, types.TaskStatusPending, task.Status)
	assert.Equal(t, "meeting", task.EventType)
	assert.Contains(t, task.Tags, "meeting")
	assert.Equal(t, []string{"John"}, task.Participants)

	require.NotNil(t, task.DueDate)
	tomorrow := time.Now().AddDate(0, 0, 1)
	assert.Equal(t, tomorrow.Day(), task.DueDate.Day())
	assert.Equal(t, 15, task.DueDate.Hour())

	stored, err := store.GetTask(context.Background(), "owner-1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, stored.Title)
}

func TestIngestDatelessExperienceStoresMemoryOnly(t *testing.T) {
	store := newMemStore()
	cls := &stubClassifier{cls: &types.Classification{Kind: types.KindExperience, Confidence: 0.9}}
	p := newTestPipeline(store, cls, `{}`)

	res, err := p.Ingest(context.Background(), IngestRequest{
		OwnerID: "owner-1",
		Content: "Coffee with Anna sometime soon",
	})
	require.NoError(t, err)

	require.NotNil(t, res.Memory)
	assert.Nil(t, res.Task)

	tasks, err := store.QueryTasks(context.Background(), storage.TaskQuery{OwnerID: "owner-1"})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestIngestEmptyProfilePatchFallsBackToMemory(t *testing.T) {
	store := newMemStore()
	cls := &stubClassifier{cls: &types.Classification{Kind: types.KindProfile, Confidence: 0.9}}
	p := newTestPipeline(store, cls, `{}`)

	res, err := p.Ingest(context.Background(), IngestRequest{
		OwnerID: "owner-1",
		Content: "Something vaguely about myself",
	})
	require.NoError(t, err)

	assert.Nil(t, res.Profile)
	require.NotNil(t, res.Memory)
}

func TestIngestClassificationErrorFailsIngest(t *testing.T) {
	store := newMemStore()
	cls := &stubClassifier{err: &ClassificationError{Reason: "unparseable model response"}}
	p := newTestPipeline(store, cls, `{}`)

	_, err := p.Ingest(context.Background(), IngestRequest{
		OwnerID: "owner-1",
		Content: "anything",
	})

	var cerr *ClassificationError
	require.ErrorAs(t, err, &cerr)

	// Nothing was stored: no guessing at a route.
	memories, qerr := store.QueryMemories(context.Background(), storage.MemoryQuery{OwnerID: "owner-1"})
	require.NoError(t, qerr)
	assert.Empty(t, memories)
}

func TestIngestStoresMemoryWithoutEmbeddingOnFailure(t *testing.T) {
	store := newMemStore()
	meta := NewLLMMetadataExtractor(&fakeGenerator{responses: []string{metadataJSON}}, nil)
	prof := NewLLMProfileExtractor(&fakeGenerator{responses: []string{`{}`}})
	p := NewPipeline(store, &RuleClassifier{}, meta, prof, &fakeEmbedder{err: errors.New("provider down")}, nil)

	res, err := p.Ingest(context.Background(), IngestRequest{
		OwnerID: "owner-1",
		Content: "A quiet evening walk by the river",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Memory)
	assert.Nil(t, res.Memory.Embedding)
}

func TestIngestValidation(t *testing.T) {
	p := newTestPipeline(newMemStore(), &RuleClassifier{}, `{}`)
	var verr *ValidationError

	_, err := p.Ingest(context.Background(), IngestRequest{Content: "x"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "owner", verr.Field)

	_, err = p.Ingest(context.Background(), IngestRequest{OwnerID: "o", Content: "   "})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "content", verr.Field)

	_, err = p.Ingest(context.Background(), IngestRequest{OwnerID: "o", Content: "x", Context: "school"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "context", verr.Field)
}

func TestIngestDefaultsContextToPersonal(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(store, &RuleClassifier{}, `{}`)

	res, err := p.Ingest(context.Background(), IngestRequest{
		OwnerID: "owner-1",
		Content: "Tried the new ramen shop, loved it",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Memory)
	assert.Equal(t, types.ContextPersonal, res.Memory.Context)
}
