package domain

import "context"

// Embedder converts free text into a numeric vector representation.
// It is called once per chunk and once per query; no batching is assumed.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Generator produces a reply for a conversation whose last message is the
// newest user turn.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// Preparer is implemented by embedders that learn corpus statistics before
// embedding (for example TF-IDF weighting).
type Preparer interface {
	Prepare(corpus []string) error
}
