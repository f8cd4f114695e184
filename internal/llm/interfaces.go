// Package llm provides the language-model and embedding provider clients used
// by the classification, extraction, and retrieval engines. It includes
// strict JSON-only prompt templates, tolerant response parsers, and circuit
// breaker plus rate limiter protection around every provider call.
package llm

import "context"

// EmbeddingMode selects how a text is embedded. Stored content uses document
// mode; search input uses query mode. Providers that distinguish the two
// (nomic-style models) prefix the input accordingly; others ignore the mode.
type EmbeddingMode string

const (
	// ModeDocument embeds text that will be stored and searched against.
	ModeDocument EmbeddingMode = "document"

	// ModeQuery embeds search input.
	ModeQuery EmbeddingMode = "query"
)

// Completion is the result of a text completion call.
type Completion struct {
	Text       string
	TokensUsed int
}

// EmbeddingResult is the result of a batch embedding call. Vectors are
// returned in input order.
type EmbeddingResult struct {
	Vectors    [][]float32
	TokensUsed int
}

// TextGenerator is the interface for LLM text completion.
// All extraction prompts use single-string completion style (not chat).
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
	GetModel() string
}

// EmbeddingGenerator is the interface for generating vector embeddings.
// EmbedBatch must accept multiple texts in one round trip; Embed is the
// single-text degenerate case.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string, mode EmbeddingMode) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, mode EmbeddingMode) (*EmbeddingResult, error)
	GetModel() string
}
