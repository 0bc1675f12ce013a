package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
)

const (
	DefaultChunkSize = 800
	DefaultOverlap   = 200

	// charsPerWord converts the character overlap budget into a word count.
	charsPerWord = 5
)

var sentenceBoundary = regexp.MustCompile(`[.!?]+`)

// Split breaks text on runs of sentence-terminal punctuation and drops blank
// fragments. The punctuation itself is not kept.
func Split(text string) []string {
	parts := sentenceBoundary.Split(text, -1)
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Chunk splits text into overlapping chunks of roughly chunkSize characters.
// A sentence is never cut, so chunkSize is a soft ceiling. When a chunk closes,
// its last overlap/5 words seed the next one.
func Chunk(text, documentID, documentName string, chunkSize, overlap int) []domain.Chunk {
	var chunks []domain.Chunk
	emit := func(buf string) {
		idx := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:           domain.ChunkID(documentID, idx),
			Text:         buf,
			DocumentID:   documentID,
			DocumentName: documentName,
			ChunkIndex:   idx,
		})
	}

	carry := overlap / charsPerWord
	buf := ""
	for _, sentence := range Split(text) {
		if buf != "" && utf8.RuneCountInString(buf)+utf8.RuneCountInString(sentence) > chunkSize {
			emit(buf)
			buf = join(lastWords(buf, carry), sentence)
			continue
		}
		buf = join(buf, sentence)
	}
	if strings.TrimSpace(buf) != "" {
		emit(buf)
	}
	return chunks
}

func lastWords(s string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(s)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

func join(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}

// SentenceChunker splits documents into sentence-aligned chunks with overlap.
type SentenceChunker struct {
	chunkSize int
	overlap   int
}

func NewSentenceChunker(chunkSize, overlap int) *SentenceChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	return &SentenceChunker{chunkSize: chunkSize, overlap: overlap}
}

func (c *SentenceChunker) Chunk(document domain.Document) []domain.Chunk {
	return Chunk(document.Text, document.ID, document.Name, c.chunkSize, c.overlap)
}
