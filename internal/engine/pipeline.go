package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/recollect-ai/recollect/internal/llm"
	"github.com/recollect-ai/recollect/internal/storage"
	"github.com/recollect-ai/recollect/pkg/types"
)

// Pipeline is the ingest path: classify incoming content, then route it to
// the profile, memory, or task stores with whatever enrichment its kind
// needs. One Ingest call produces at most one profile update, one memory,
// and one task.
type Pipeline struct {
	store      storage.Store
	classifier Classifier
	metadata   MetadataExtractor
	profile    ProfileExtractor
	embedder   llm.EmbeddingGenerator
	chunker    *llm.Chunker
	logger     *log.Logger
}

// NewPipeline wires the ingest pipeline. The chunker is created internally
// with embedding-friendly defaults.
func NewPipeline(
	store storage.Store,
	classifier Classifier,
	metadata MetadataExtractor,
	profile ProfileExtractor,
	embedder llm.EmbeddingGenerator,
	logger *log.Logger,
) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		store:      store,
		classifier: classifier,
		metadata:   metadata,
		profile:    profile,
		embedder:   embedder,
		chunker:    llm.NewChunker(),
		logger:     logger,
	}
}

// IngestRequest is one unit of content to absorb.
type IngestRequest struct {
	OwnerID    string
	Content    string
	Context    types.Context // defaults to personal when empty
	SourceType string        // e.g. "message", "note"
	SourceID   string
}

// IngestResult reports what an ingest produced. Fields are nil when the
// routing did not touch them.
type IngestResult struct {
	Classification *types.Classification
	Memory         *types.Memory
	Task           *types.Task
	Profile        *types.Profile
	UpdatedFields  []string // dotted profile paths the ingest wrote
}

// Ingest classifies the content and routes it. PROFILE content patches the
// structured profile, MEMORY content becomes an embedded memory, EXPERIENCE
// content with a resolvable future date becomes a task linked to a memory.
// Classification failure fails the ingest; enrichment failures degrade.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if req.OwnerID == "" {
		return nil, &ValidationError{Field: "owner", Reason: "must not be empty"}
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if req.Context == "" {
		req.Context = types.ContextPersonal
	}
	if !types.IsValidContext(req.Context) {
		return nil, &ValidationError{Field: "context", Reason: "must be work, personal, or family"}
	}

	classification, err := p.classifier.Classify(ctx, req.Content, req.Context)
	if err != nil {
		return nil, err
	}
	result := &IngestResult{Classification: classification}

	p.logger.Debug("content classified",
		"owner", req.OwnerID, "kind", classification.Kind,
		"confidence", classification.Confidence)

	switch classification.Kind {
	case types.KindProfile:
		if err := p.ingestProfile(ctx, req, classification, result); err != nil {
			return nil, err
		}
	case types.KindExperience:
		if err := p.ingestExperience(ctx, req, classification, result); err != nil {
			return nil, err
		}
	default:
		memory, err := p.storeMemory(ctx, req, classification.Subtype)
		if err != nil {
			return nil, err
		}
		result.Memory = memory
	}

	return result, nil
}

// ingestProfile extracts a patch and deep-merges it into the stored profile.
// When the extractor finds nothing durable the content falls back to the
// memory path so it is not lost.
func (p *Pipeline) ingestProfile(ctx context.Context, req IngestRequest, cls *types.Classification, result *IngestResult) error {
	patch, err := p.profile.Extract(ctx, req.Content, cls.Subtype)
	if err != nil {
		return err
	}

	if patch.IsZero() {
		p.logger.Warn("profile extraction found no fields, storing as memory",
			"owner", req.OwnerID)
		memory, err := p.storeMemory(ctx, req, cls.Subtype)
		if err != nil {
			return err
		}
		result.Memory = memory
		return nil
	}

	updated, err := p.store.ApplyProfilePatch(ctx, req.OwnerID, patch)
	if err != nil {
		return err
	}

	result.Profile = updated
	result.UpdatedFields = patch.FieldPaths()
	p.logger.Info("profile updated",
		"owner", req.OwnerID, "fields", strings.Join(result.UpdatedFields, ","))
	return nil
}

// ingestExperience stores a memory for the experience and, when a future date
// was resolved, a task linked back to that memory. Dateless experiences stay
// memories only.
func (p *Pipeline) ingestExperience(ctx context.Context, req IngestRequest, cls *types.Classification, result *IngestResult) error {
	memory, err := p.storeMemory(ctx, req, cls.Subtype)
	if err != nil {
		return err
	}
	result.Memory = memory

	sched := DetectSchedule(req.Content)
	if sched == nil || sched.DueDate == nil {
		p.logger.Debug("experience carries no resolvable date, stored as memory only",
			"owner", req.OwnerID)
		return nil
	}

	now := time.Now()
	var tags []string
	if sched.EventType != "" {
		tags = []string{sched.EventType}
	}
	task := &types.Task{
		ID:             uuid.NewString(),
		OwnerID:        req.OwnerID,
		Title:          taskTitle(memory.Summary, req.Content),
		Description:    req.Content,
		Context:        req.Context,
		Participants:   sched.Participants,
		Tags:           tags,
		DueDate:        sched.DueDate,
		LinkedMemoryID: memory.ID,
		EventType:      sched.EventType,
		Status:         types.TaskStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := p.store.InsertTask(ctx, task); err != nil {
		return err
	}

	result.Task = task
	p.logger.Info("task scheduled",
		"owner", req.OwnerID, "task", task.ID, "due", task.DueDate.Format(time.RFC3339))
	return nil
}

// storeMemory runs metadata extraction and embedding concurrently, then
// persists the memory. A failed embedding stores the memory without one
// (lexical search still finds it); a failed metadata call fails the ingest,
// only malformed responses degrade inside the extractor.
func (p *Pipeline) storeMemory(ctx context.Context, req IngestRequest, subtype string) (*types.Memory, error) {
	var (
		wg        sync.WaitGroup
		meta      *Metadata
		metaErr   error
		embedding []float32
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		meta, metaErr = p.metadata.Extract(ctx, req.Content, req.Context, subtype)
	}()
	go func() {
		defer wg.Done()
		var embedErr error
		embedding, embedErr = p.embedContent(ctx, req.Content)
		if embedErr != nil {
			p.logger.Warn("embedding failed, storing memory without one", "err", embedErr)
			embedding = nil
		}
	}()
	wg.Wait()

	if metaErr != nil {
		return nil, metaErr
	}

	memory := &types.Memory{
		ID:         uuid.NewString(),
		OwnerID:    req.OwnerID,
		Content:    req.Content,
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		Context:    req.Context,
		Embedding:  embedding,
		Summary:    meta.Summary,
		MemoryType: meta.MemoryType,
		Importance: meta.Importance,
		Sentiment:  meta.Sentiment,
		Entities:   meta.Entities,
		Keywords:   meta.Keywords,
		CreatedAt:  time.Now(),
	}
	if err := p.store.InsertMemory(ctx, memory); err != nil {
		return nil, err
	}

	p.logger.Debug("memory stored",
		"owner", req.OwnerID, "memory", memory.ID, "type", memory.MemoryType,
		"tokens", meta.TokensUsed)
	return memory, nil
}

// embedContent embeds the content in document mode. Long content is chunked,
// embedded in one batch, and the chunk vectors averaged into a single memory
// embedding.
func (p *Pipeline) embedContent(ctx context.Context, content string) ([]float32, error) {
	chunks := p.chunker.Chunk(content)
	switch len(chunks) {
	case 0:
		return nil, nil
	case 1:
		return p.embedder.Embed(ctx, chunks[0], llm.ModeDocument)
	}

	batch, err := p.embedder.EmbedBatch(ctx, chunks, llm.ModeDocument)
	if err != nil {
		return nil, err
	}
	return averageVectors(batch.Vectors), nil
}

// averageVectors computes the element-wise mean of equal-length vectors.
func averageVectors(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	if len(vectors) == 1 {
		return vectors[0]
	}

	dim := len(vectors[0])
	sum := make([]float64, dim)
	count := 0
	for _, v := range vectors {
		if len(v) != dim {
			continue
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
		count++
	}
	if count == 0 {
		return nil
	}

	avg := make([]float32, dim)
	for i, s := range sum {
		avg[i] = float32(s / float64(count))
	}
	return avg
}

// taskTitle picks a short task title: the extracted summary when one exists,
// otherwise the content itself, truncated.
func taskTitle(summary, content string) string {
	if s := strings.TrimSpace(summary); s != "" {
		return truncateRunes(s, 120)
	}
	return truncateRunes(strings.TrimSpace(content), 120)
}
