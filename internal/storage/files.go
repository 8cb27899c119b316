// ABOUTME: Evidence file archival into the managed data directory.
// ABOUTME: Copies uploads under timestamped names so originals are never touched.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const (
	evidenceFilesDir = "evidence_files"
	storedNameFormat = "20060102_150405"
)

// FileStore archives evidence files inside the data directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at the given data dir.
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{dir: filepath.Join(dataDir, evidenceFilesDir)}
}

// Dir returns the archive directory.
func (s *FileStore) Dir() string { return s.dir }

// Store copies the source file into the archive under a timestamped name
// and returns the stored path. The source file is left untouched.
func (s *FileStore) Store(srcPath string, now time.Time) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create evidence dir: %w", err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to open evidence file: %w", err)
	}
	defer func() { _ = src.Close() }()

	name := fmt.Sprintf("%s_%s", now.Format(storedNameFormat), filepath.Base(srcPath))
	dstPath := filepath.Join(s.dir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create stored copy: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to copy evidence file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to finalize stored copy: %w", err)
	}
	return dstPath, nil
}
