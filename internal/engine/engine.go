// ABOUTME: Pipeline stages and shared wiring for the mapping and validation engine.
// ABOUTME: Defines stage progression and the index builder used by both pipelines.
package engine

import (
	"github.com/2389-research/attest/internal/index"
)

// Pipeline stages, in order. Failed is terminal and can occur after any stage.
const (
	StageReceived   = "received"
	StageExtracted  = "extracted"
	StageEmbedded   = "embedded"
	StageMatched    = "matched"
	StageClassified = "classified"
	StagePersisted  = "persisted"
	StageFailed     = "failed"
)

// IndexBuilder constructs a similarity index over reference vectors.
// The default builds an in-memory index; a remote vector store can be
// substituted through configuration.
type IndexBuilder func(vectors [][]float64) (index.Index, error)

// MemoryIndexBuilder is the default in-process index.
func MemoryIndexBuilder(vectors [][]float64) (index.Index, error) {
	return index.NewMemory(vectors), nil
}
