package domain

import (
	"fmt"
	"time"
)

// DocumentKind tells where a document's text came from.
type DocumentKind string

const (
	KindText DocumentKind = "text"
	KindPDF  DocumentKind = "pdf"
	KindURL  DocumentKind = "url"
)

// Document is a unit of ingested text before chunking.
type Document struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Kind      DocumentKind `json:"kind"`
	Text      string       `json:"-"`
	URL       string       `json:"url,omitempty"`
	PageCount int          `json:"pageCount"`
	Size      int64        `json:"size,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Chunk is a bounded, possibly overlapping span of a document's text.
// Embedding stays nil until the chunk has been embedded.
type Chunk struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	DocumentID   string    `json:"documentId"`
	DocumentName string    `json:"documentName"`
	ChunkIndex   int       `json:"chunkIndex"`
	Embedding    []float64 `json:"embedding,omitempty"`
}

// ChunkID derives the stable identifier of the chunk at index within a document.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", documentID, index)
}

// HasEmbedding reports whether the chunk can take part in similarity search.
func (c Chunk) HasEmbedding() bool { return len(c.Embedding) > 0 }

// SearchResult pairs a chunk with its similarity to a query.
type SearchResult struct {
	Chunk      Chunk   `json:"chunk"`
	Similarity float64 `json:"similarity"`
}

// RAGResponse is the answer to one question together with the retrieved sources,
// most similar first.
type RAGResponse struct {
	Answer  string         `json:"answer"`
	Sources []SearchResult `json:"sources"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one turn of a conversation sent to a Generator.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
