package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestSplit_DropsPunctuationAndBlanks(t *testing.T) {
	got := Split("First one. Second?! Third...   \n. Fourth")
	assert.Equal(t, []string{"First one", "Second", "Third", "Fourth"}, got)
}

func TestChunk_EmptyInput(t *testing.T) {
	assert.Empty(t, Chunk("", "doc", "Doc", DefaultChunkSize, DefaultOverlap))
	assert.Empty(t, Chunk("  ... !! ", "doc", "Doc", DefaultChunkSize, DefaultOverlap))
}

func TestChunk_TinyChunkSizeSeparatesSentences(t *testing.T) {
	chunks := Chunk("A. B. C.", "doc", "Doc", 1, 0)
	require.Len(t, chunks, 3)
	for i, want := range []string{"A", "B", "C"} {
		assert.Equal(t, want, chunks[i].Text)
		assert.Equal(t, i, chunks[i].ChunkIndex)
		assert.Equal(t, fmt.Sprintf("doc-chunk-%d", i), chunks[i].ID)
		assert.Equal(t, "doc", chunks[i].DocumentID)
		assert.Equal(t, "Doc", chunks[i].DocumentName)
		assert.Nil(t, chunks[i].Embedding)
	}
}

func TestChunk_TinyChunkSizeWithDefaultOverlapCarriesWords(t *testing.T) {
	chunks := Chunk("A. B. C.", "doc", "Doc", 1, DefaultOverlap)
	require.Len(t, chunks, 3)
	assert.Equal(t, "A", chunks[0].Text)
	assert.Equal(t, "A B", chunks[1].Text)
	assert.Equal(t, "A B C", chunks[2].Text)
}

func TestChunk_OverlapCarriesLastWords(t *testing.T) {
	text := "one two three four. five six seven eight. nine ten."
	// 10/5 = 2 words carried over.
	chunks := Chunk(text, "d", "D", 40, 10)
	require.Len(t, chunks, 2)
	assert.Equal(t, "one two three four five six seven eight", chunks[0].Text)
	assert.Equal(t, "seven eight nine ten", chunks[1].Text)
}

func TestChunk_LongSentenceIsNotSplit(t *testing.T) {
	long := strings.Repeat("word ", 300)
	chunks := Chunk(long+". short.", "d", "D", 100, 0)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.TrimSpace(long), chunks[0].Text)
	assert.Equal(t, "short", chunks[1].Text)
}

func TestChunk_SingleChunkWhenUnderSize(t *testing.T) {
	chunks := Chunk("Go is fun. Go is fast.", "d", "D", DefaultChunkSize, DefaultOverlap)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Go is fun Go is fast", chunks[0].Text)
}

func TestChunk_OverlapLargerThanSizeIsAccepted(t *testing.T) {
	chunks := Chunk("alpha beta. gamma delta. epsilon zeta.", "d", "D", 12, 100)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
	}
}

func TestChunk_Deterministic(t *testing.T) {
	text := sampleText(40)
	a := Chunk(text, "doc", "Doc", 120, 30)
	b := Chunk(text, "doc", "Doc", 120, 30)
	assert.Equal(t, a, b)
}

func TestChunk_IDsAreUniqueAndGapless(t *testing.T) {
	chunks := Chunk(sampleText(60), "report", "Report", 150, 40)
	require.Greater(t, len(chunks), 3)
	seen := map[string]struct{}{}
	for i, c := range chunks {
		assert.Equal(t, fmt.Sprintf("report-chunk-%d", i), c.ID)
		_, dup := seen[c.ID]
		assert.False(t, dup)
		seen[c.ID] = struct{}{}
	}
}

func TestChunk_NoSentenceDropped(t *testing.T) {
	text := sampleText(50)
	chunks := Chunk(text, "d", "D", 90, 20)
	joined := ""
	for _, c := range chunks {
		joined += " " + c.Text + " "
	}
	for _, s := range Split(text) {
		assert.Contains(t, joined, " "+s+" ")
	}
}

func TestSentenceChunker_Defaults(t *testing.T) {
	c := NewSentenceChunker(0, -5)
	assert.Equal(t, DefaultChunkSize, c.chunkSize)
	assert.Equal(t, 0, c.overlap)

	chunks := c.Chunk(domain.Document{ID: "x", Name: "X", Text: "Hello there. General Kenobi!"})
	require.Len(t, chunks, 1)
	assert.Equal(t, "x-chunk-0", chunks[0].ID)
	assert.Equal(t, "X", chunks[0].DocumentName)
}

func sampleText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Sentence number %d talks about topic %d. ", i, i%7)
	}
	return b.String()
}
