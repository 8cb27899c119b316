// ABOUTME: JSON sidecar persistence for precomputed reference embeddings.
// ABOUTME: Sidecars are keyed to row count and model name and regenerated on mismatch.
package embeddings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Set is a matrix of precomputed embeddings aligned by row position to a
// reference dataset. If the model or the row count changes, the set is stale
// and must be regenerated.
type Set struct {
	Model     string      `json:"model"`
	Dimension int         `json:"dimension"`
	Count     int         `json:"count"`
	Vectors   [][]float64 `json:"vectors"`
}

// Stale reports whether the set no longer matches the reference data.
func (s *Set) Stale(rowCount int, model string) bool {
	return s.Count != rowCount || s.Model != model || len(s.Vectors) != rowCount
}

// LoadSet reads an embedding sidecar file. A missing file returns os.ErrNotExist.
func LoadSet(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Set
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse embedding sidecar %s: %w", path, err)
	}
	return &s, nil
}

// SaveSet writes the embedding sidecar atomically: temp file then rename, so
// concurrent readers never observe a torn write.
func SaveSet(path string, s *Set) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding sidecar: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create sidecar dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sidecar-*")
	if err != nil {
		return fmt.Errorf("failed to create sidecar temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write sidecar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close sidecar temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace sidecar: %w", err)
	}
	return nil
}
