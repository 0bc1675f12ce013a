package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is returned when two vectors of different length are compared.
	ErrDimensionMismatch = errors.New("vectors must have same dimensions")
	// ErrQueryEmbedding marks a failed embedding of the question itself.
	ErrQueryEmbedding = errors.New("query embedding failed")
	// ErrGeneration marks a failed call to the generation service.
	ErrGeneration = errors.New("generation failed")
	// ErrEmptyDocument is returned when a document yields no chunks.
	ErrEmptyDocument = errors.New("document has no text content")
)

// ServiceError is a failure reported by an external embedding or generation service.
type ServiceError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *ServiceError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s api error: %d - %s", e.Provider, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s api error: %d", e.Provider, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s api error: %v", e.Provider, e.Err)
	default:
		return e.Provider + " api error"
	}
}

func (e *ServiceError) Unwrap() error { return e.Err }
