// ABOUTME: OCR engine abstraction with a Tesseract-binary implementation.
// ABOUTME: Engines are transport-agnostic so local binaries or remote APIs can back them.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
)

// OCREngine recognizes text in a raster image.
type OCREngine interface {
	// Recognize runs OCR over the image and returns the raw recognized text.
	Recognize(ctx context.Context, img image.Image) (string, error)

	// Available reports whether the engine can run on this system.
	Available() bool
}

// TesseractEngine shells out to the tesseract binary for OCR.
type TesseractEngine struct {
	binary string
}

// NewTesseractEngine creates an engine using the given binary name,
// defaulting to "tesseract" on PATH.
func NewTesseractEngine(binary string) *TesseractEngine {
	if binary == "" {
		binary = "tesseract"
	}
	return &TesseractEngine{binary: binary}
}

// Available reports whether the tesseract binary can be found.
func (t *TesseractEngine) Available() bool {
	_, err := exec.LookPath(t.binary)
	return err == nil
}

// Recognize encodes the image to a temporary PNG and runs tesseract on it.
// PSM 6 treats the input as a uniform block of text, which suits screenshots
// and scanned evidence pages.
func (t *TesseractEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	tmpDir, err := os.MkdirTemp("", "attest-ocr-*")
	if err != nil {
		return "", fmt.Errorf("failed to create OCR temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	inPath := filepath.Join(tmpDir, "input.png")
	f, err := os.Create(inPath)
	if err != nil {
		return "", fmt.Errorf("failed to create OCR input file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to encode OCR input image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to flush OCR input image: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.binary, inPath, "stdout", "--oem", "3", "--psm", "6")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w: %s", err, stderr.String())
	}
	return stdout.String(), nil
}
