// ABOUTME: DOCX text extraction from the word/document.xml part of the archive.
// ABOUTME: Pulls paragraph text runs and joins paragraphs with newlines.
package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// extractDOCX reads paragraph text from a .docx file. A DOCX is a zip
// archive whose textual content lives in word/document.xml as <w:t> runs.
func extractDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX %s: %w", path, err)
	}
	defer func() { _ = zr.Close() }()

	var doc io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("failed to open document part: %w", err)
			}
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("invalid DOCX %s: missing word/document.xml", path)
	}
	defer func() { _ = doc.Close() }()

	return parseDocumentXML(doc)
}

// parseDocumentXML walks the WordprocessingML stream, collecting text runs
// and inserting a newline at each paragraph end.
func parseDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}
