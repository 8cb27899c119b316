// ABOUTME: Typed pipeline errors distinguishing recoverable stage failures.
// ABOUTME: Stage failures become failed-but-persisted records; storage errors propagate.
package engine

import "fmt"

// ExtractionError marks a failure while extracting text from a document.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("text extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError marks a failure while computing embeddings.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// MatchError marks a failure while searching the reference index.
type MatchError struct {
	Err error
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("matching failed: %v", e.Err)
}

func (e *MatchError) Unwrap() error { return e.Err }

// StorageError marks a failure persisting to the registry. Unlike the
// stage errors above it cannot be absorbed into a record, so it propagates.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("registry write failed: %v", e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
