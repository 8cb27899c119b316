// ABOUTME: Universal evidence/policy text extraction for PDF, DOCX, and image files.
// ABOUTME: Dispatches by extension and normalizes extracted text with a bounded preview.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// PreviewLength is the number of characters kept in the extracted-text preview.
const PreviewLength = 500

// Extraction is the result of extracting text from a document artifact.
type Extraction struct {
	Text     string
	Preview  string
	FileType string // "pdf", "docx", or "image"
	FileName string
	FileSize int64
}

// imageExtensions are the raster formats accepted for OCR.
var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".tiff": true,
	".bmp": true, ".gif": true, ".webp": true,
}

// Extractor extracts plain text from supported document files.
type Extractor struct {
	ocr OCREngine
	log *zap.Logger
}

// NewExtractor creates an extractor using the given OCR engine for images.
// A nil engine disables image extraction.
func NewExtractor(ocr OCREngine, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{ocr: ocr, log: log}
}

// Supported reports whether the file extension is an accepted artifact format.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".pdf" || ext == ".docx" || imageExtensions[ext]
}

// ExtractFile extracts plain text from a PDF, DOCX, or image file.
// Unsupported extensions are rejected before any extraction begins.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*Extraction, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(path) {
		return nil, fmt.Errorf("unsupported file type %q (supported: PDF, DOCX, PNG, JPG, JPEG, TIFF, BMP, GIF, WEBP)", ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("evidence file not found: %w", err)
	}

	var text, fileType string
	switch {
	case ext == ".pdf":
		fileType = "pdf"
		text, err = extractPDF(path)
	case ext == ".docx":
		fileType = "docx"
		text, err = extractDOCX(path)
	default:
		fileType = "image"
		if e.ocr == nil {
			return nil, fmt.Errorf("no OCR engine available for image extraction")
		}
		text, err = e.extractImage(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	text = CleanText(text)
	e.log.Debug("extracted text",
		zap.String("file", filepath.Base(path)),
		zap.String("type", fileType),
		zap.Int("chars", len(text)))

	return &Extraction{
		Text:     text,
		Preview:  Preview(text),
		FileType: fileType,
		FileName: filepath.Base(path),
		FileSize: info.Size(),
	}, nil
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanText normalizes extracted text by collapsing runs of whitespace.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// Preview returns the first PreviewLength characters of text, with an
// ellipsis when truncated.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength]) + "..."
}
