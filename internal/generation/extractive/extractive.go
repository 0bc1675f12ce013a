// Package extractive answers from the prompt's own context without a remote
// model: it picks the context spans closest to the question and cites
// the source they came from.
package extractive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/prompt"
	"docqa/internal/summarizer"
)

// DefaultMaxSentences is the number of sentences quoted per answer.
const DefaultMaxSentences = 3

// ErrNoPrompt is returned when the conversation has no user turn.
var ErrNoPrompt = errors.New("no user message to answer")

// Ranker orders sentences by relevance to a question.
type Ranker interface {
	Rank(question string, sentences []string) []summarizer.Ranked
}

// Generator implements domain.Generator.
type Generator struct {
	ranker       Ranker
	maxSentences int
}

// New creates a generator quoting at most maxSentences sentences.
func New(ranker Ranker, maxSentences int) *Generator {
	if ranker == nil {
		ranker = summarizer.NewFrequencySummarizer()
	}
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	return &Generator{ranker: ranker, maxSentences: maxSentences}
}

type candidate struct {
	rank int
	text string
}

// Generate answers the last user message. A message that is not a rendered
// prompt is treated as a bare question with no context.
func (g *Generator) Generate(ctx context.Context, messages []domain.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	last := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			last = i
			break
		}
	}
	if last < 0 {
		return "", ErrNoPrompt
	}

	rendered, question, ok := prompt.Parse(messages[last].Content)
	if !ok {
		question = messages[last].Content
	}

	var cands []candidate
	for _, sec := range prompt.Sections(rendered) {
		for _, sent := range summarizer.Segments(sec.Text, 0) {
			cands = append(cands, candidate{rank: sec.Rank, text: sent})
		}
	}
	if len(cands) == 0 {
		return prompt.NotFound + ".", nil
	}

	texts := make([]string, len(cands))
	for i, c := range cands {
		texts[i] = c.text
	}
	var picked []summarizer.Ranked
	for _, r := range g.ranker.Rank(question, texts) {
		if r.Score <= 0 || len(picked) == g.maxSentences {
			break
		}
		picked = append(picked, r)
	}
	if len(picked) == 0 {
		return prompt.NotFound + ".", nil
	}

	var b strings.Builder
	for i, r := range picked {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s [Source %d]", r.Sentence, cands[r.Index].rank)
	}
	return b.String(), nil
}
