// Package similarity ranks chunks against a query vector by brute-force
// cosine similarity. It builds no index; corpora are expected to be small.
package similarity

import (
	"fmt"
	"math"
	"sort"

	"docqa/internal/domain"
)

// DefaultK is the number of results returned when k is not positive.
const DefaultK = 3

// Cosine returns dot(a,b)/(|a||b|). Vectors of different length are an error.
// If either vector has zero magnitude the similarity is 0.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", domain.ErrDimensionMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	magnitude := math.Sqrt(na) * math.Sqrt(nb)
	if magnitude == 0 {
		return 0, nil
	}
	// rounding can push |a·a| slightly past |a|²
	return math.Max(-1, math.Min(1, dot/magnitude)), nil
}

// TopK scores every embedded chunk against query and returns the k best,
// most similar first. Chunks without an embedding are skipped. Ties keep
// the input order.
func TopK(query []float64, chunks []domain.Chunk, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = DefaultK
	}
	results := make([]domain.SearchResult, 0, len(chunks))
	for _, ch := range chunks {
		if !ch.HasEmbedding() {
			continue
		}
		score, err := Cosine(query, ch.Embedding)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", ch.ID, err)
		}
		results = append(results, domain.SearchResult{Chunk: ch, Similarity: score})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}
