// ABOUTME: Parquet-backed dataset helpers with exclusive-lock append semantics.
// ABOUTME: Appends are read-all, add row, rewrite-whole-file under a file lock.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/parquet-go/parquet-go"
)

// readDataset reads every row of a parquet dataset. A missing file is an
// empty dataset, not an error.
func readDataset[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}
	return rows, nil
}

// writeDataset rewrites a parquet dataset atomically: temp file then rename.
func writeDataset[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create dataset dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, rows); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write dataset %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace dataset %s: %w", path, err)
	}
	return nil
}

// appendDataset appends one row under an exclusive lock. Reads tolerate a
// concurrent writer because the rewrite is atomic; writers serialize on the
// lock so appends never interleave.
func appendDataset[T any](path string, row T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create dataset dir: %w", err)
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock dataset %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	rows, err := readDataset[T](path)
	if err != nil {
		return err
	}
	rows = append(rows, row)
	return writeDataset(path, rows)
}
