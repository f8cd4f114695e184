package llm

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkShortContentSingleChunk(t *testing.T) {
	c := NewChunker()
	chunks := c.Chunk("Met Sarah for coffee. We talked about the project.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Met Sarah for coffee. We talked about the project.", chunks[0])
}

func TestChunkEmptyContent(t *testing.T) {
	c := NewChunker()
	assert.Empty(t, c.Chunk(""))
	assert.Empty(t, c.Chunk("   \n\t "))
}

func TestChunkLongContentSplitsOnSentences(t *testing.T) {
	c := &Chunker{MaxChunkTokens: 20, OverlapTokens: 0}

	var b strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "Sentence number %d talks about topic %d in passing. ", i, i)
	}
	chunks := c.Chunk(b.String())

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		// Each chunk ends at a sentence boundary (terminator plus optional space).
		trimmed := strings.TrimRight(chunk, " ")
		assert.True(t, strings.HasSuffix(trimmed, "."), "chunk %q not sentence-aligned", chunk)
	}
}

func TestChunkOverlapCarriesContext(t *testing.T) {
	c := &Chunker{MaxChunkTokens: 30, OverlapTokens: 15}

	content := "First sentence sets the scene here. Second sentence continues the thought. " +
		"Third sentence adds more detail still. Fourth sentence wraps everything up nicely. " +
		"Fifth sentence is the closing line."
	chunks := c.Chunk(content)
	require.Greater(t, len(chunks), 1)

	// Some sentence from the end of chunk N reappears at the start of chunk N+1.
	for i := 1; i < len(chunks); i++ {
		head := strings.TrimSpace(chunks[i])
		firstSentence := head
		if idx := strings.Index(head, ". "); idx != -1 {
			firstSentence = head[:idx+1]
		}
		assert.Contains(t, chunks[i-1], firstSentence,
			"chunk %d does not start with overlap from chunk %d", i, i-1)
	}
}

func TestChunkCollapsesConsecutiveDuplicates(t *testing.T) {
	c := &Chunker{MaxChunkTokens: 12, OverlapTokens: 0}
	content := strings.Repeat("Same exact sentence repeated verbatim here. ", 6)
	chunks := c.Chunk(content)

	for i := 1; i < len(chunks); i++ {
		assert.NotEqual(t, chunks[i-1], chunks[i], "consecutive duplicate chunk at %d", i)
	}
}

func TestChunkKeepsRepeatedPassagesApart(t *testing.T) {
	// The same refrain appears at the start and the end with distinct
	// material between; both occurrences must survive in order.
	c := &Chunker{MaxChunkTokens: 12, OverlapTokens: 0}
	refrain := "Standup moved to nine tomorrow morning. "
	content := refrain +
		"Alice presented the quarterly numbers today. " +
		"Bob raised concerns about the rollout plan. " +
		refrain
	chunks := c.Chunk(content)

	count := 0
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk) == strings.TrimSpace(refrain) {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}

func TestSplitSentencesKeepsAbbreviations(t *testing.T) {
	sentences := splitSentences("I saw Dr. chen today. He was helpful.")
	// "Dr. chen" does not split because the next word is lowercase.
	require.Len(t, sentences, 2)
	assert.Contains(t, sentences[0], "Dr. chen")
}
