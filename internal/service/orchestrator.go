package service

import (
	"context"
	"fmt"
	"log/slog"

	"docqa/internal/domain"
	"docqa/internal/prompt"
	"docqa/internal/similarity"
)

// Orchestrator answers one question over a chunk collection: embed the query,
// retrieve the most similar chunks, render the grounded prompt and generate.
type Orchestrator struct {
	embedder  domain.Embedder
	generator domain.Generator
	topK      int
	logger    *slog.Logger
}

type OrchestratorOption func(*Orchestrator)

// WithTopK sets how many chunks are retrieved per question.
func WithTopK(k int) OrchestratorOption {
	return func(o *Orchestrator) { o.topK = k }
}

func WithOrchestratorLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

func NewOrchestrator(embedder domain.Embedder, generator domain.Generator, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		embedder:  embedder,
		generator: generator,
		topK:      similarity.DefaultK,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.topK <= 0 {
		o.topK = similarity.DefaultK
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Answer runs the pipeline with default options.
func Answer(ctx context.Context, query string, chunks []domain.Chunk, embedder domain.Embedder, generator domain.Generator, history []domain.Message) (domain.RAGResponse, error) {
	return NewOrchestrator(embedder, generator).Answer(ctx, query, chunks, history)
}

// Answer embeds query, retrieves the top chunks and asks the generator with
// history followed by the rendered prompt. Sources are the retrieved chunks
// whether or not the answer uses them. history is not modified.
func (o *Orchestrator) Answer(ctx context.Context, query string, chunks []domain.Chunk, history []domain.Message) (domain.RAGResponse, error) {
	o.logger.Info("rag query start", "query_len", len(query), "chunks", len(chunks), "history", len(history))

	qvec, err := o.embedder.Embed(ctx, query)
	if err != nil {
		o.logger.Error("rag query embedding failed", "err", err)
		return domain.RAGResponse{}, fmt.Errorf("%w: %w", domain.ErrQueryEmbedding, err)
	}

	results, err := similarity.TopK(qvec, chunks, o.topK)
	if err != nil {
		return domain.RAGResponse{}, fmt.Errorf("rag: retrieve: %w", err)
	}
	o.logger.Info("rag retrieval done", "results", len(results))

	messages := make([]domain.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, domain.Message{
		Role:    domain.RoleUser,
		Content: prompt.Build(prompt.Context(results), query),
	})

	if err := ctx.Err(); err != nil {
		return domain.RAGResponse{}, err
	}
	answer, err := o.generator.Generate(ctx, messages)
	if err != nil {
		o.logger.Error("rag generation failed", "err", err)
		return domain.RAGResponse{}, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	if results == nil {
		results = []domain.SearchResult{}
	}
	return domain.RAGResponse{Answer: answer, Sources: results}, nil
}
