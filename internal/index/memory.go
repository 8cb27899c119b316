// ABOUTME: In-memory brute-force cosine similarity index.
// ABOUTME: Stable tie ordering by input row; safe for concurrent searches.
package index

import (
	"sort"

	"github.com/2389-research/attest/internal/embeddings"
)

// Memory is a brute-force index over a fixed vector set. Reference sets here
// are a few thousand rows at most, so a linear scan per query is fine.
type Memory struct {
	vectors [][]float64
}

// NewMemory creates an index over the given vectors. Row positions in
// results refer to positions in this slice.
func NewMemory(vectors [][]float64) *Memory {
	return &Memory{vectors: vectors}
}

// Len returns the number of indexed vectors.
func (m *Memory) Len() int { return len(m.vectors) }

// Search ranks all vectors by cosine similarity to the query, highest first.
func (m *Memory) Search(vector []float64, topK int) ([]Result, error) {
	if len(m.vectors) == 0 {
		return nil, ErrEmpty
	}
	if topK <= 0 {
		topK = 10
	}

	results := make([]Result, len(m.vectors))
	for i, v := range m.vectors {
		results[i] = Result{Row: i, Score: embeddings.CosineSimilarity(v, vector)}
	}

	// Stable keeps ties in input row order, which makes ranking
	// deterministic across runs.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}
