// Package embedding attaches embeddings to chunks by calling an external
// embedding service once per chunk. Individual failures are reported as
// outcomes and never abort the batch.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"docqa/internal/domain"
)

// ProgressFunc receives the number of attempted chunks and the batch size.
type ProgressFunc func(current, total int)

// EmbeddingError describes why a single chunk could not be embedded.
type EmbeddingError struct {
	Index   int
	ChunkID string
	Err     error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embed chunk %s: %v", e.ChunkID, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// Outcome is the result of embedding the chunk at Index. On success Chunk
// carries the embedding and Err is nil; on failure Err is an *EmbeddingError.
type Outcome struct {
	Index int
	Chunk domain.Chunk
	Err   error
}

func (o Outcome) OK() bool { return o.Err == nil }

var errEmptyEmbedding = errors.New("empty embedding returned")

// BatchEmbedder embeds chunk collections sequentially, one request in flight.
type BatchEmbedder struct {
	embedder domain.Embedder
	pacer    Pacer
	logger   *slog.Logger
}

type Option func(*BatchEmbedder)

// WithPacer sets the pacing policy applied before every request.
func WithPacer(p Pacer) Option {
	return func(b *BatchEmbedder) { b.pacer = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *BatchEmbedder) { b.logger = l }
}

func NewBatchEmbedder(embedder domain.Embedder, opts ...Option) *BatchEmbedder {
	b := &BatchEmbedder{
		embedder: embedder,
		pacer:    NewRatePacer(DefaultInterval),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(b)
	}
	if b.pacer == nil {
		b.pacer = NoPacer{}
	}
	return b
}

// Stream lazily embeds chunks in input order and yields one Outcome per
// attempted chunk. It stops early when ctx is cancelled or the consumer stops
// iterating; the input slice is never modified.
func (b *BatchEmbedder) Stream(ctx context.Context, chunks []domain.Chunk) iter.Seq[Outcome] {
	return func(yield func(Outcome) bool) {
		for i, ch := range chunks {
			if err := b.pacer.Wait(ctx); err != nil {
				return
			}
			if !yield(b.embedOne(ctx, i, ch)) {
				return
			}
		}
	}
}

func (b *BatchEmbedder) embedOne(ctx context.Context, idx int, ch domain.Chunk) Outcome {
	vec, err := b.embedder.Embed(ctx, ch.Text)
	if err == nil && len(vec) == 0 {
		err = errEmptyEmbedding
	}
	if err != nil {
		return Outcome{Index: idx, Chunk: ch, Err: &EmbeddingError{Index: idx, ChunkID: ch.ID, Err: err}}
	}
	ch.Embedding = vec
	return Outcome{Index: idx, Chunk: ch}
}

// EmbedAll embeds every chunk and returns the ones that succeeded, in input
// order, with embeddings attached. Failed chunks are logged and dropped.
// onProgress, when set, is called after every attempt. The error is non-nil
// only when ctx was cancelled; the chunks embedded so far are still returned.
func (b *BatchEmbedder) EmbedAll(ctx context.Context, chunks []domain.Chunk, onProgress ProgressFunc) ([]domain.Chunk, error) {
	total := len(chunks)
	embedded := make([]domain.Chunk, 0, total)
	attempts := 0
	for o := range b.Stream(ctx, chunks) {
		attempts++
		if o.OK() {
			embedded = append(embedded, o.Chunk)
		} else {
			b.logger.Warn("embedding chunk failed, skipping", "chunk_id", o.Chunk.ID, "err", o.Err)
		}
		if onProgress != nil {
			onProgress(attempts, total)
		}
	}
	if attempts < total {
		if err := ctx.Err(); err != nil {
			return embedded, err
		}
	}
	b.logger.Debug("embedding batch done", "embedded", len(embedded), "total", total)
	return embedded, nil
}

// Collect drains a stream into successful chunks and failures.
func Collect(seq iter.Seq[Outcome]) (ok []domain.Chunk, failed []*EmbeddingError) {
	for o := range seq {
		if o.OK() {
			ok = append(ok, o.Chunk)
			continue
		}
		var ee *EmbeddingError
		if errors.As(o.Err, &ee) {
			failed = append(failed, ee)
		}
	}
	return ok, failed
}
