// Package tfidf is an offline embedder: tokens are hashed into a fixed number
// of buckets and weighted by a smoothed IDF learned from the prepared corpus.
package tfidf

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"sync"
)

// DefaultDimension is the number of hash buckets.
const DefaultDimension = 1024

// Embedder implements domain.Embedder and domain.Preparer.
// Prepare may be called repeatedly; document frequencies accumulate, so
// vectors stay the same length as more documents arrive.
type Embedder struct {
	mu           sync.RWMutex
	dimension    int
	df           []int
	docs         int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewEmbedder creates an embedder with the given number of buckets.
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{
		dimension:    dimension,
		df:           make([]int, dimension),
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		stopwords:    defaultStopwords(),
	}
}

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Prepare adds the texts of corpus to the document-frequency statistics.
func (e *Embedder) Prepare(corpus []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, text := range corpus {
		seen := make(map[int]struct{})
		for _, tok := range e.tokenize(text) {
			b := e.bucket(tok)
			if _, ok := seen[b]; ok {
				continue
			}
			seen[b] = struct{}{}
			e.df[b]++
		}
		e.docs++
	}
	return nil
}

// Embed computes the L2-normalised TF-IDF vector of text. Text without any
// known token yields the zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float64, e.dimension)
	tokens := e.tokenize(text)
	if len(tokens) == 0 {
		return vec, nil
	}
	tf := make(map[int]int)
	for _, tok := range tokens {
		tf[e.bucket(tok)]++
	}

	e.mu.RLock()
	n := float64(e.docs)
	for b, count := range tf {
		// Smoothed IDF
		idf := math.Log((1+n)/(1+float64(e.df[b]))) + 1.0
		vec[b] = float64(count) / float64(len(tokens)) * idf
	}
	e.mu.RUnlock()

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

func (e *Embedder) bucket(token string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(e.dimension))
}

func (e *Embedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "how", "when", "where", "does", "do", "did",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
