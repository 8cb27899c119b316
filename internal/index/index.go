// ABOUTME: Similarity index interface over precomputed reference vectors.
// ABOUTME: Results carry row positions so callers map back to reference datasets.
package index

import "errors"

// ErrEmpty is returned when a search runs against an empty candidate set.
var ErrEmpty = errors.New("empty candidate set")

// Result is one ranked candidate: the row position in the indexed set and
// its cosine similarity score, clamped to [-1, 1].
type Result struct {
	Row   int
	Score float64
}

// Index ranks reference vectors by cosine similarity to a query vector.
type Index interface {
	// Search returns up to topK results ranked by score, highest first.
	// Ties keep the input row order. An empty index returns ErrEmpty.
	Search(vector []float64, topK int) ([]Result, error)
}
