package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/similarity"
	"docqa/internal/summarizer"
)

// Status is the lifecycle state of a document in a workspace.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

const (
	progressChunked = 40.0
	progressDone    = 100.0
)

// Summarizer condenses a document into a few sentences.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// DocumentState is a document together with its processing state.
type DocumentState struct {
	domain.Document
	Status        Status  `json:"status"`
	Progress      float64 `json:"progress"`
	Summary       string  `json:"summary,omitempty"`
	ChunkCount    int     `json:"chunkCount"`
	EmbeddedCount int     `json:"embeddedCount"`
	Error         string  `json:"error,omitempty"`
}

// Progress is reported while a document is being added.
type Progress struct {
	DocumentID string
	Status     Status
	Percent    float64
}

// Stats summarises the workspace contents.
type Stats struct {
	Documents  int `json:"documents"`
	Ready      int `json:"ready"`
	Chunks     int `json:"chunks"`
	Embeddings int `json:"embeddings"`
	Pages      int `json:"pages"`
}

type entry struct {
	state  DocumentState
	chunks []domain.Chunk
}

// Workspace holds the documents of one session and answers questions over
// them. Adds are serialized; questions run against a snapshot of the chunks.
type Workspace struct {
	mu     sync.RWMutex
	addMu  sync.Mutex
	docs   []*entry
	logger *slog.Logger

	embedder         domain.Embedder
	chunker          *chunker.SentenceChunker
	batch            *embedding.BatchEmbedder
	orchestrator     *Orchestrator
	summarizer       Summarizer
	summarySentences int

	pacer embedding.Pacer
	topK  int
}

type WorkspaceOption func(*Workspace)

// WithChunking sets the chunk size and overlap in characters.
func WithChunking(size, overlap int) WorkspaceOption {
	return func(w *Workspace) { w.chunker = chunker.NewSentenceChunker(size, overlap) }
}

// WithRetrievalTopK sets how many chunks back each answer.
func WithRetrievalTopK(k int) WorkspaceOption {
	return func(w *Workspace) { w.topK = k }
}

// WithEmbeddingPacer sets the pacing between chunk embedding requests.
func WithEmbeddingPacer(p embedding.Pacer) WorkspaceOption {
	return func(w *Workspace) { w.pacer = p }
}

// WithSummarizer sets the document summarizer and summary length.
func WithSummarizer(s Summarizer, maxSentences int) WorkspaceOption {
	return func(w *Workspace) {
		w.summarizer = s
		w.summarySentences = maxSentences
	}
}

func WithLogger(l *slog.Logger) WorkspaceOption {
	return func(w *Workspace) { w.logger = l }
}

func NewWorkspace(embedder domain.Embedder, generator domain.Generator, opts ...WorkspaceOption) *Workspace {
	w := &Workspace{
		embedder:         embedder,
		chunker:          chunker.NewSentenceChunker(chunker.DefaultChunkSize, chunker.DefaultOverlap),
		summarizer:       summarizer.NewFrequencySummarizer(),
		summarySentences: summarizer.DefaultMaxSentences,
		pacer:            embedding.NewRatePacer(embedding.DefaultInterval),
		topK:             similarity.DefaultK,
		logger:           slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	w.batch = embedding.NewBatchEmbedder(embedder, embedding.WithPacer(w.pacer), embedding.WithLogger(w.logger))
	w.orchestrator = NewOrchestrator(embedder, generator, WithTopK(w.topK), WithOrchestratorLogger(w.logger))
	return w
}

// Add chunks and embeds doc and makes it available to Ask. Chunks whose
// embedding fails are kept without an embedding and never retrieved.
// A cancelled ctx leaves the document in the error state.
func (w *Workspace) Add(ctx context.Context, doc domain.Document, onProgress func(Progress)) (DocumentState, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return DocumentState{}, domain.ErrEmptyDocument
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	w.addMu.Lock()
	defer w.addMu.Unlock()

	e := &entry{state: DocumentState{Document: doc, Status: StatusProcessing}}
	w.mu.Lock()
	w.docs = append(w.docs, e)
	w.mu.Unlock()

	report := func(percent float64) {
		w.mu.Lock()
		e.state.Progress = percent
		w.mu.Unlock()
		if onProgress != nil {
			onProgress(Progress{DocumentID: doc.ID, Status: StatusProcessing, Percent: percent})
		}
	}
	fail := func(err error) (DocumentState, error) {
		w.mu.Lock()
		e.state.Status = StatusError
		e.state.Error = err.Error()
		st := e.state
		w.mu.Unlock()
		w.logger.Error("document processing failed", "doc_id", doc.ID, "name", doc.Name, "err", err)
		if onProgress != nil {
			onProgress(Progress{DocumentID: doc.ID, Status: StatusError, Percent: st.Progress})
		}
		return st, err
	}

	report(0)
	chunks := w.chunker.Chunk(doc)
	if len(chunks) == 0 {
		return fail(domain.ErrEmptyDocument)
	}
	w.mu.Lock()
	e.state.ChunkCount = len(chunks)
	w.mu.Unlock()
	report(progressChunked)

	p, prepared := w.embedder.(domain.Preparer)
	if prepared {
		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			texts[i] = ch.Text
		}
		if err := p.Prepare(texts); err != nil {
			return fail(fmt.Errorf("prepare embedder: %w", err))
		}
	}

	embedded, err := w.batch.EmbedAll(ctx, chunks, func(current, total int) {
		report(progressChunked + float64(current)/float64(total)*(progressDone-progressChunked))
	})
	if err != nil {
		return fail(err)
	}
	byID := make(map[string][]float64, len(embedded))
	for _, ch := range embedded {
		byID[ch.ID] = ch.Embedding
	}
	for i := range chunks {
		chunks[i].Embedding = byID[chunks[i].ID]
	}
	if prepared {
		w.reweight(ctx, e)
	}

	summary, err := w.summarizer.Summarize(doc.Text, w.summarySentences)
	if err != nil {
		w.logger.Warn("summarize document failed", "doc_id", doc.ID, "err", err)
	}

	w.mu.Lock()
	e.chunks = chunks
	e.state.EmbeddedCount = len(embedded)
	e.state.Summary = summary
	e.state.Status = StatusReady
	e.state.Progress = progressDone
	st := e.state
	w.mu.Unlock()
	if onProgress != nil {
		onProgress(Progress{DocumentID: doc.ID, Status: StatusReady, Percent: progressDone})
	}
	w.logger.Info("document ready", "doc_id", doc.ID, "name", doc.Name, "chunks", len(chunks), "embedded", len(embedded))
	return st, nil
}

// reweight re-embeds the chunks of ready documents once a Preparer has seen
// new text, so stored vectors and queries share the same corpus statistics.
// On error the remaining documents keep their previous vectors.
func (w *Workspace) reweight(ctx context.Context, skip *entry) {
	w.mu.RLock()
	var targets []*entry
	for _, e := range w.docs {
		if e != skip && e.state.Status == StatusReady {
			targets = append(targets, e)
		}
	}
	w.mu.RUnlock()

	for _, e := range targets {
		w.mu.RLock()
		fresh := slices.Clone(e.chunks)
		w.mu.RUnlock()
		for i := range fresh {
			if fresh[i].Embedding == nil {
				continue
			}
			vec, err := w.embedder.Embed(ctx, fresh[i].Text)
			if err != nil {
				w.logger.Warn("re-embed chunk failed", "doc_id", fresh[i].DocumentID, "chunk_id", fresh[i].ID, "err", err)
				return
			}
			fresh[i].Embedding = vec
		}
		w.mu.Lock()
		e.chunks = fresh
		w.mu.Unlock()
	}
}

// Remove drops the document with id. It reports whether it existed.
func (w *Workspace) Remove(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, e := range w.docs {
		if e.state.ID == id {
			w.docs = append(w.docs[:i], w.docs[i+1:]...)
			return true
		}
	}
	return false
}

// Document returns the state of the document with id.
func (w *Workspace) Document(id string) (DocumentState, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, e := range w.docs {
		if e.state.ID == id {
			return e.state, true
		}
	}
	return DocumentState{}, false
}

// Documents lists documents in the order they were added.
func (w *Workspace) Documents() []DocumentState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]DocumentState, len(w.docs))
	for i, e := range w.docs {
		out[i] = e.state
	}
	return out
}

// Chunks returns the chunks of every ready document.
func (w *Workspace) Chunks() []domain.Chunk {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []domain.Chunk
	for _, e := range w.docs {
		if e.state.Status == StatusReady {
			out = append(out, e.chunks...)
		}
	}
	return out
}

func (w *Workspace) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var s Stats
	for _, e := range w.docs {
		s.Documents++
		s.Pages += e.state.PageCount
		if e.state.Status != StatusReady {
			continue
		}
		s.Ready++
		s.Chunks += len(e.chunks)
		s.Embeddings += e.state.EmbeddedCount
	}
	return s
}

// Ask answers question over the ready documents.
func (w *Workspace) Ask(ctx context.Context, question string, history []domain.Message) (domain.RAGResponse, error) {
	return w.orchestrator.Answer(ctx, question, w.Chunks(), history)
}
