// ABOUTME: Embedding provider interface and cosine similarity for semantic matching.
// ABOUTME: Implementations are a local hashed-token embedder and an OpenAI-compatible client.
package embeddings

import (
	"context"
	"math"
)

// Embedder generates vector embeddings from text.
// Embedding is deterministic for identical input and model version, and a
// blank input yields the zero vector so downstream comparisons stay defined.
type Embedder interface {
	// Embed returns a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch returns one vector per input, preserving input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimension returns the dimensionality of the output vectors.
	Dimension() int

	// Name identifies the embedder implementation and model.
	Name() string
}

// CosineSimilarity computes the cosine similarity between two vectors,
// clamped to [-1, 1]. Mismatched or zero vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return clamp(score)
}

func clamp(score float64) float64 {
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}

// IsZero reports whether every component of the vector is zero.
func IsZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
