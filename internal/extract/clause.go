// ABOUTME: Clause splitting for policy documents before embedding.
// ABOUTME: Handles paragraph sentences, numbered/lettered clauses, and bullet lists.
package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// minClauseLength filters out headings, page numbers, and list markers.
const minClauseLength = 20

var (
	numberedRe = regexp.MustCompile(`^\d+(\.\d+)*[.)]?\s+`)
	letteredRe = regexp.MustCompile(`^[a-zA-Z][.)]\s+`)
	bulletRe   = regexp.MustCompile(`^[•\-*]\s+`)
)

// SplitClauses splits policy text into clause-sized spans suitable for
// embedding. Clauses shorter than minClauseLength characters are dropped.
func SplitClauses(text string) []string {
	var clauses []string
	for _, block := range splitBlocks(text) {
		for _, s := range splitSentences(block) {
			s = strings.TrimSpace(s)
			if len(s) >= minClauseLength {
				clauses = append(clauses, s)
			}
		}
	}
	return clauses
}

// splitBlocks breaks the text on list structure: blank lines, bullets, and
// numbered or lettered clause markers at line starts.
func splitBlocks(text string) []string {
	var blocks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			blocks = append(blocks, current.String())
			current.Reset()
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if numberedRe.MatchString(trimmed) || letteredRe.MatchString(trimmed) || bulletRe.MatchString(trimmed) {
			flush()
			trimmed = numberedRe.ReplaceAllString(trimmed, "")
			trimmed = letteredRe.ReplaceAllString(trimmed, "")
			trimmed = bulletRe.ReplaceAllString(trimmed, "")
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(trimmed)
	}
	flush()
	return blocks
}

// splitSentences splits a block after sentence enders followed by whitespace
// and an uppercase letter. Go regexes have no lookbehind, so this scans runes.
func splitSentences(block string) []string {
	runes := []rune(block)
	var sentences []string
	start := 0

	for i := 0; i < len(runes)-1; i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 || j >= len(runes) {
			continue
		}
		if unicode.IsUpper(runes[j]) {
			sentences = append(sentences, string(runes[start:i+1]))
			start = j
			i = j - 1
		}
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}
