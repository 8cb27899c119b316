// ABOUTME: PDF text extraction using the ledongthuc/pdf reader.
// ABOUTME: Concatenates plain text from all pages of the document.
package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// extractPDF reads the plain-text content of every page in the PDF.
func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract text from PDF %s: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("failed to read PDF text stream: %w", err)
	}
	return buf.String(), nil
}
