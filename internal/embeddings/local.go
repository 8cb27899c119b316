// ABOUTME: Deterministic local embedder using hashed token counts.
// ABOUTME: Offline default and test double; no model download or network needed.
package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// LocalDimension is the vector size of the hashed-token embedder.
const LocalDimension = 256

var tokenRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\d+`)

// LocalEmbedder maps texts to fixed-size vectors by hashing lowercased
// tokens into buckets and L2-normalizing the counts. It captures lexical
// overlap only, not deep semantics, but it is fully deterministic and works
// offline, which keeps validation usable without a model endpoint.
type LocalEmbedder struct{}

// NewLocalEmbedder creates the hashed-token embedder.
func NewLocalEmbedder() *LocalEmbedder { return &LocalEmbedder{} }

// Name identifies the embedder implementation.
func (e *LocalEmbedder) Name() string { return "local-hash-v1" }

// Dimension returns the fixed output vector size.
func (e *LocalEmbedder) Dimension() int { return LocalDimension }

// Embed returns the hashed-token vector for text. Blank text yields the
// zero vector rather than an error.
func (e *LocalEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, LocalDimension)
	tokens := tokenRe.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return vec, nil
	}

	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%LocalDimension]++
	}

	var norm float64
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

// EmbedBatch embeds each text in order.
func (e *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
