package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func results() []domain.SearchResult {
	return []domain.SearchResult{
		{Chunk: domain.Chunk{ID: "a-chunk-0", DocumentName: "a.pdf", Text: "Alpha text"}, Similarity: 0.9},
		{Chunk: domain.Chunk{ID: "b-chunk-3", DocumentName: "b.txt", Text: "Beta text"}, Similarity: 0.4},
	}
}

func TestContext_Format(t *testing.T) {
	got := Context(results())
	want := "[Source 1: a.pdf]\nAlpha text\n\n---\n\n[Source 2: b.txt]\nBeta text\n"
	assert.Equal(t, want, got)
	assert.Empty(t, Context(nil))
}

func TestBuild_ContainsInstructionsAndQuestion(t *testing.T) {
	p := Build(Context(results()), "What is alpha?")
	assert.Contains(t, p, "Answer based ONLY on the context provided")
	assert.Contains(t, p, NotFound)
	assert.Contains(t, p, "[Source 1: a.pdf]")
	assert.True(t, strings.HasSuffix(p, "\n\nQuestion: What is alpha?"))
}

func TestParse_RoundTrip(t *testing.T) {
	ctx := Context(results())
	c, q, ok := Parse(Build(ctx, "Why?"))
	require.True(t, ok)
	assert.Equal(t, ctx, c)
	assert.Equal(t, "Why?", q)

	c, q, ok = Parse(Build("", "Anything?"))
	require.True(t, ok)
	assert.Empty(t, c)
	assert.Equal(t, "Anything?", q)

	_, _, ok = Parse("hello there")
	assert.False(t, ok)
}

func TestSections(t *testing.T) {
	secs := Sections(Context(results()))
	require.Len(t, secs, 2)
	assert.Equal(t, Section{Rank: 1, DocumentName: "a.pdf", Text: "Alpha text"}, secs[0])
	assert.Equal(t, Section{Rank: 2, DocumentName: "b.txt", Text: "Beta text"}, secs[1])
	assert.Nil(t, Sections(""))
}

func TestSections_SeparatorInsideChunkText(t *testing.T) {
	ctx := Context([]domain.SearchResult{
		{Chunk: domain.Chunk{DocumentName: "notes.md", Text: "Intro\n---\n\nSecond part"}},
		{Chunk: domain.Chunk{DocumentName: "b [v2].txt", Text: "Beta text"}},
	})
	secs := Sections(ctx)
	require.Len(t, secs, 2)
	assert.Equal(t, Section{Rank: 1, DocumentName: "notes.md", Text: "Intro\n---\n\nSecond part"}, secs[0])
	assert.Equal(t, Section{Rank: 2, DocumentName: "b [v2].txt", Text: "Beta text"}, secs[1])
}
