// ABOUTME: Core data models for controls, evidence artifacts, clauses, and registry records.
// ABOUTME: Provides constructor functions and confidence-tier classification.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Control is one row of the SCF reference catalog. Immutable once imported.
type Control struct {
	SCFID       string
	Domain      string
	Description string
	ERLRef      string
}

// Artifact is one Evidence Request List requirement linked to a control.
type Artifact struct {
	ERLID       string
	SCFID       string
	AreaFocus   string
	Name        string
	Description string
}

// CombinedText joins the artifact name and description for embedding.
func (a Artifact) CombinedText() string {
	return strings.TrimSpace(strings.TrimSpace(a.Name) + " " + strings.TrimSpace(a.Description))
}

// Clause is an extracted span of policy text, identified by source and position.
type Clause struct {
	PolicyID string
	Index    int
	Text     string
}

// Tier is the confidence classification derived from a similarity score.
type Tier string

const (
	TierHigh    Tier = "High"
	TierMedium  Tier = "Medium"
	TierLow     Tier = "Low"
	TierVeryLow Tier = "Very Low"
)

// Cutoffs holds the fixed score cutoffs used for tier classification.
// The medium cutoff is configuration, not a derived value.
type Cutoffs struct {
	High   float64
	Medium float64
}

// DefaultCutoffs mirror the shipped configuration defaults.
var DefaultCutoffs = Cutoffs{High: 0.65, Medium: 0.55}

// ClassifyTier maps a similarity score to a confidence tier.
func ClassifyTier(score float64, c Cutoffs) Tier {
	switch {
	case score >= c.High:
		return TierHigh
	case score >= c.Medium:
		return TierMedium
	default:
		return TierLow
	}
}

// DefaultValidThreshold is the score at or above which evidence is Valid.
const DefaultValidThreshold = 0.6

// DefaultMappingThreshold is the score at or above which a control candidate
// is kept for tiering. It sits below the medium cutoff so the low tier is
// reachable; only candidates under it collapse to the very-low fallback.
const DefaultMappingThreshold = 0.5

// ClassifyValid reports whether a confidence score meets the validity threshold.
// Valid iff score >= threshold, so classification is monotonic in the score.
func ClassifyValid(score, threshold float64) bool {
	return score >= threshold
}

// ControlMatch is one ranked candidate from a clause-to-control search.
type ControlMatch struct {
	SCFID  string
	Domain string
	Text   string
	Score  float64
	Tier   Tier
}

// MappingRecord links a policy clause to a control with its score and tier.
// Records are append-only in the registry and never mutated after creation.
type MappingRecord struct {
	ID          uuid.UUID
	Timestamp   time.Time
	PolicyID    string
	ClauseIndex int
	ClauseText  string
	SCFID       string
	Domain      string
	MatchedText string
	Score       float64
	Tier        Tier
	Explanation string
	Success     bool
	Stage       string
	Error       string
}

// NewMappingRecord creates a mapping record with generated UUID and timestamp.
func NewMappingRecord(clause Clause, match ControlMatch) *MappingRecord {
	return &MappingRecord{
		ID:          uuid.New(),
		Timestamp:   time.Now(),
		PolicyID:    clause.PolicyID,
		ClauseIndex: clause.Index,
		ClauseText:  clause.Text,
		SCFID:       match.SCFID,
		Domain:      match.Domain,
		MatchedText: match.Text,
		Score:       match.Score,
		Tier:        match.Tier,
		Success:     true,
	}
}

// EvidenceRecord captures one validation attempt for an uploaded evidence file.
// Failed attempts are persisted too, preserving the audit trail.
type EvidenceRecord struct {
	ID                  uuid.UUID
	Timestamp           time.Time
	SCFID               string
	FileName            string
	StoredPath          string
	FileType            string
	FileSize            int64
	Valid               bool
	Confidence          float64
	MatchedERLID        string
	MatchedArtifactName string
	MatchedArtifactDesc string
	MatchedAreaFocus    string
	Explanation         string
	TextPreview         string
	Threshold           float64
	Success             bool
	Stage               string
	Error               string
}

// NewEvidenceRecord creates an evidence record with generated UUID and timestamp.
func NewEvidenceRecord(scfID, fileName string) *EvidenceRecord {
	return &EvidenceRecord{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		SCFID:     scfID,
		FileName:  fileName,
	}
}

// SupportQuery is a support-contact submission destined for the remote
// key-value store, with a local-file fallback when it is unreachable.
type SupportQuery struct {
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
