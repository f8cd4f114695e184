package engine

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/recollect-ai/recollect/internal/llm"
	"github.com/recollect-ai/recollect/pkg/types"
)

// Metadata is the derived annotation set for a piece of content. TokensUsed
// is the provider-reported cost of the extraction call; zero for the
// deterministic fallback.
type Metadata struct {
	Entities   []string
	Keywords   []string
	MemoryType types.MemoryType
	Importance int
	Sentiment  float64
	Summary    string
	TokensUsed int
}

// MetadataExtractor derives entities, keywords, importance, sentiment, and a
// summary from content. A malformed model response degrades to neutral
// defaults; an outright provider failure is an error.
type MetadataExtractor interface {
	Extract(ctx context.Context, content string, contentContext types.Context, subtype string) (*Metadata, error)
}

// LLMMetadataExtractor extracts metadata with a single model completion. A
// malformed response degrades to the deterministic fallback so parseable
// content is stored either way; a provider failure that survives the retry
// loop surfaces as an error, never as silently empty metadata.
type LLMMetadataExtractor struct {
	generator llm.TextGenerator
	retry     llm.RetryConfig
	logger    *log.Logger
}

// NewLLMMetadataExtractor creates an extractor backed by the given text
// generator.
func NewLLMMetadataExtractor(generator llm.TextGenerator, logger *log.Logger) *LLMMetadataExtractor {
	if logger == nil {
		logger = log.Default()
	}
	return &LLMMetadataExtractor{
		generator: generator,
		retry:     llm.DefaultRetryConfig,
		logger:    logger,
	}
}

// Extract sends the metadata prompt and parses the strict-JSON reply.
func (e *LLMMetadataExtractor) Extract(ctx context.Context, content string, contentContext types.Context, subtype string) (*Metadata, error) {
	prompt := llm.MetadataPrompt(content, contentContext, subtype)

	var completion *llm.Completion
	err := llm.Retry(ctx, e.retry, func() error {
		var callErr error
		completion, callErr = e.generator.Complete(ctx, prompt)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	parsed, err := llm.ParseMetadataResponse(completion.Text)
	if err != nil {
		e.logger.Warn("metadata extraction degraded to defaults", "reason", "unparseable response", "err", err)
		meta := FallbackMetadata(content)
		meta.TokensUsed = completion.TokensUsed
		return meta, nil
	}

	return &Metadata{
		Entities:   parsed.Entities,
		Keywords:   parsed.Keywords,
		MemoryType: types.MemoryType(parsed.MemoryType),
		Importance: parsed.Importance,
		Sentiment:  parsed.Sentiment,
		Summary:    parsed.Summary,
		TokensUsed: completion.TokensUsed,
	}, nil
}

// FallbackMetadata is the deterministic annotation used when extraction
// cannot produce a usable response: no entities or keywords, type fact,
// neutral importance and sentiment, and the content itself (truncated)
// as the summary.
func FallbackMetadata(content string) *Metadata {
	return &Metadata{
		Entities:   []string{},
		Keywords:   []string{},
		MemoryType: types.MemoryTypeFact,
		Importance: 5,
		Sentiment:  0,
		Summary:    truncateRunes(content, 100),
	}
}

// truncateRunes shortens s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Compile-time assertion.
var _ MetadataExtractor = (*LLMMetadataExtractor)(nil)
