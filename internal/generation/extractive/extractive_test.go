package extractive

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/prompt"
)

func renderedPrompt(question string, results ...domain.SearchResult) []domain.Message {
	return []domain.Message{{Role: domain.RoleUser, Content: prompt.Build(prompt.Context(results), question)}}
}

func TestGenerate_QuotesRelevantSentenceWithCitation(t *testing.T) {
	g := New(nil, 1)
	msgs := renderedPrompt("When is payment due?",
		domain.SearchResult{Chunk: domain.Chunk{DocumentName: "terms.pdf", Text: "The office opens at nine."}},
		domain.SearchResult{Chunk: domain.Chunk{DocumentName: "invoice.pdf", Text: "Payment is due within thirty days. Thanks."}},
	)
	out, err := g.Generate(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, "Payment is due within thirty days. [Source 2]", out)
}

func TestGenerate_QuotesSpanOfChunkedText(t *testing.T) {
	text := "The office opens at nine every weekday morning. " +
		"Parking is available behind the building for staff. " +
		"Payment is due within thirty days of the invoice date. " +
		"Late fees apply after that period ends."
	chunks := chunker.Chunk(text, "d", "terms.txt", 800, 200)
	require.Len(t, chunks, 1)

	out, err := New(nil, 1).Generate(context.Background(),
		renderedPrompt("When is payment due?", domain.SearchResult{Chunk: chunks[0]}))
	require.NoError(t, err)
	assert.Equal(t, "Payment is due within thirty days of the invoice date [Source 1]", out)
}

func TestGenerate_MaxSentencesBoundsChunkedAnswer(t *testing.T) {
	text := "Payment is due within thirty days. Payment by card adds a fee. " +
		"Payment reminders are sent weekly. The office opens at nine."
	chunks := chunker.Chunk(text, "d", "terms.txt", 800, 200)
	require.Len(t, chunks, 1)

	out, err := New(nil, 2).Generate(context.Background(),
		renderedPrompt("payment", domain.SearchResult{Chunk: chunks[0]}))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "[Source 1]"))
	assert.NotContains(t, out, "office")
}

func TestGenerate_KeepsChunkTextAfterSeparatorLine(t *testing.T) {
	msgs := renderedPrompt("colour of pears",
		domain.SearchResult{Chunk: domain.Chunk{DocumentName: "notes.md", Text: "Apples are red\n---\n\nPears are green"}},
		domain.SearchResult{Chunk: domain.Chunk{DocumentName: "fruit.txt", Text: "Bananas are yellow"}},
	)
	out, err := New(nil, 1).Generate(context.Background(), msgs)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "Pears are green [Source 1]"), out)
}

func TestGenerate_EmptyContextSaysNotFound(t *testing.T) {
	out, err := New(nil, 0).Generate(context.Background(), renderedPrompt("Anything?"))
	require.NoError(t, err)
	assert.Contains(t, out, prompt.NotFound)
}

func TestGenerate_NoOverlapSaysNotFound(t *testing.T) {
	msgs := renderedPrompt("quantum chromodynamics",
		domain.SearchResult{Chunk: domain.Chunk{DocumentName: "a", Text: "Bananas are yellow."}})
	out, err := New(nil, 0).Generate(context.Background(), msgs)
	require.NoError(t, err)
	assert.Contains(t, out, prompt.NotFound)
}

func TestGenerate_UsesLastUserTurn(t *testing.T) {
	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "earlier question"},
		{Role: domain.RoleModel, Content: "earlier answer"},
	}
	msgs = append(msgs, renderedPrompt("colour of bananas",
		domain.SearchResult{Chunk: domain.Chunk{DocumentName: "a", Text: "Bananas are yellow."}})...)
	out, err := New(nil, 0).Generate(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, "Bananas are yellow. [Source 1]", out)
}

func TestGenerate_Errors(t *testing.T) {
	_, err := New(nil, 0).Generate(context.Background(), []domain.Message{{Role: domain.RoleModel, Content: "x"}})
	assert.ErrorIs(t, err, ErrNoPrompt)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(nil, 0).Generate(ctx, renderedPrompt("q"))
	assert.ErrorIs(t, err, context.Canceled)
}
