package llm

import (
	"strings"
	"unicode"

	"github.com/samber/lo"
)

// Chunker splits long content into embedding-sized pieces. Splitting is
// sentence-aware so each chunk stays semantically coherent, and consecutive
// chunks share a configurable overlap so context spanning a boundary is not
// lost. The ingest pipeline embeds all chunks in one batch and averages the
// vectors into a single memory embedding.
type Chunker struct {
	MaxChunkTokens int // maximum chunk size in estimated tokens (default: 512)
	OverlapTokens  int // overlap carried between chunks (default: 64)
}

// NewChunker returns a chunker with embedding-friendly defaults.
func NewChunker() *Chunker {
	return &Chunker{MaxChunkTokens: 512, OverlapTokens: 64}
}

// Chunk splits content into overlapping chunks, collapsing consecutive
// duplicates the overlap seeding can produce. Chunk order is preserved, so
// repeated passages elsewhere in the content keep their positions. Content
// that fits within MaxChunkTokens comes back as a single chunk;
// whitespace-only content yields no chunks.
func (c *Chunker) Chunk(content string) []string {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	maxTokens := c.MaxChunkTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	overlap := c.OverlapTokens
	if overlap < 0 {
		overlap = 0
	}

	if EstimateTokens(content) <= maxTokens {
		return []string{content}
	}

	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder
	currentTokens := 0
	var carried []string // tail of the previous chunk, reused as overlap

	for _, sentence := range sentences {
		sentenceTokens := EstimateTokens(sentence)

		if currentTokens+sentenceTokens > maxTokens && currentTokens > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentTokens = 0

			// Seed the next chunk with as many trailing sentences as the
			// overlap budget allows.
			overlapTokens := 0
			start := len(carried)
			for i := len(carried) - 1; i >= 0; i-- {
				st := EstimateTokens(carried[i])
				if overlapTokens+st > overlap {
					break
				}
				overlapTokens += st
				start = i
			}
			for _, s := range carried[start:] {
				current.WriteString(s)
				currentTokens += EstimateTokens(s)
			}
			carried = carried[start:]
		}

		current.WriteString(sentence)
		currentTokens += sentenceTokens
		carried = append(carried, sentence)

		// Bound the carried tail; overlap never needs more than this.
		if len(carried) > 50 {
			carried = carried[len(carried)-50:]
		}
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return lo.Filter(chunks, func(chunk string, i int) bool {
		return i == 0 || chunks[i-1] != chunk
	})
}

// EstimateTokens estimates the token count of text with the ~4 characters
// per token heuristic that holds for English under GPT-style tokenizers.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// splitSentences splits text on sentence terminators, keeping the terminator
// and trailing space with the sentence. A terminator only ends a sentence
// when the following word starts with an uppercase letter, which keeps most
// abbreviations intact.
func splitSentences(text string) []string {
	if text == "" {
		return nil
	}

	var sentences []string
	var current strings.Builder
	runes := []rune(text)

	flush := func() {
		if strings.TrimSpace(current.String()) != "" {
			sentences = append(sentences, current.String())
		}
		current.Reset()
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		if r != '.' && r != '!' && r != '?' {
			continue
		}

		if i+1 >= len(runes) {
			flush()
			continue
		}

		if unicode.IsSpace(runes[i+1]) {
			current.WriteRune(runes[i+1])
			i++
			if i+1 >= len(runes) || unicode.IsUpper(runes[i+1]) || unicode.IsDigit(runes[i+1]) {
				flush()
			}
		}
	}

	flush()
	return sentences
}
