// ABOUTME: Candidate merging for control match results.
// ABOUTME: Dedupes per control ID and collapses near-duplicate matched text.
package engine

import (
	"strings"

	"github.com/2389-research/attest/internal/models"
)

// nearDuplicateRatio is the text similarity at or above which two
// candidates are considered the same underlying control statement.
const nearDuplicateRatio = 0.6

// mergeCandidates collapses a ranked candidate list. Candidates sharing an
// SCF ID keep only the highest-scoring entry, and candidates whose matched
// text is nearly identical are merged the same way. Input order (highest
// score first) is preserved for the survivors.
func mergeCandidates(candidates []models.ControlMatch) []models.ControlMatch {
	var merged []models.ControlMatch
	seen := make(map[string]bool)

	for _, cand := range candidates {
		if seen[cand.SCFID] {
			continue
		}
		dup := false
		for _, kept := range merged {
			if textRatio(cand.Text, kept.Text) >= nearDuplicateRatio {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen[cand.SCFID] = true
		merged = append(merged, cand)
	}
	return merged
}

// textRatio measures similarity between two strings as the Dice coefficient
// over character bigrams, case-insensitive. Returns a value in [0, 1].
func textRatio(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}

	ba := bigrams(a)
	bb := bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}

	var overlap int
	for gram, n := range ba {
		if m, ok := bb[gram]; ok {
			if m < n {
				overlap += m
			} else {
				overlap += n
			}
		}
	}
	return 2 * float64(overlap) / float64(total(ba)+total(bb))
}

func bigrams(s string) map[string]int {
	runes := []rune(s)
	grams := make(map[string]int)
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])]++
	}
	return grams
}

func total(grams map[string]int) int {
	var n int
	for _, c := range grams {
		n += c
	}
	return n
}
