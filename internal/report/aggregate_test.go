// ABOUTME: Tests for registry aggregation.
// ABOUTME: Covers totals, domain coverage ordering, histogram buckets, and failure counts.
package report

import (
	"testing"

	"github.com/2389-research/attest/internal/models"
)

func evidenceRec(scfID string, valid bool, confidence float64) models.EvidenceRecord {
	return models.EvidenceRecord{
		SCFID:      scfID,
		Valid:      valid,
		Confidence: confidence,
		Success:    true,
	}
}

func mappingRec(scfID, domain string, tier models.Tier) models.MappingRecord {
	return models.MappingRecord{
		SCFID:   scfID,
		Domain:  domain,
		Tier:    tier,
		Success: true,
	}
}

func TestSummarizeTotals(t *testing.T) {
	mappings := []models.MappingRecord{
		mappingRec("IAC-01", "Identity & Access", models.TierHigh),
		mappingRec("IAC-02", "Identity & Access", models.TierMedium),
		mappingRec("GOV-01", "Governance", models.TierHigh),
	}
	evidence := []models.EvidenceRecord{
		evidenceRec("IAC-01", true, 0.8),
		evidenceRec("IAC-01", false, 0.4),
		evidenceRec("BCD-01", true, 0.7),
	}

	s := Summarize(mappings, evidence)

	if s.TotalMappings != 3 {
		t.Errorf("TotalMappings = %d, want 3", s.TotalMappings)
	}
	if s.TotalEvidence != 3 {
		t.Errorf("TotalEvidence = %d, want 3", s.TotalEvidence)
	}
	if s.ValidEvidence != 2 || s.InvalidEvidence != 1 {
		t.Errorf("valid/invalid = %d/%d, want 2/1", s.ValidEvidence, s.InvalidEvidence)
	}
	// IAC-01, IAC-02, GOV-01, BCD-01
	if s.UniqueControls != 4 {
		t.Errorf("UniqueControls = %d, want 4", s.UniqueControls)
	}
	wantMean := (0.8 + 0.4 + 0.7) / 3
	if diff := s.MeanConfidence - wantMean; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("MeanConfidence = %v, want %v", s.MeanConfidence, wantMean)
	}
	if s.TierCounts[models.TierHigh] != 2 {
		t.Errorf("TierCounts[High] = %d, want 2", s.TierCounts[models.TierHigh])
	}
}

func TestSummarizeDomainOrdering(t *testing.T) {
	mappings := []models.MappingRecord{
		mappingRec("GOV-01", "Governance", models.TierHigh),
		mappingRec("IAC-01", "Identity & Access", models.TierHigh),
		mappingRec("IAC-02", "Identity & Access", models.TierLow),
	}

	s := Summarize(mappings, nil)

	if len(s.Domains) != 2 {
		t.Fatalf("got %d domains, want 2", len(s.Domains))
	}
	if s.Domains[0].Domain != "Identity & Access" || s.Domains[0].Count != 2 {
		t.Errorf("top domain = %+v, want Identity & Access with 2", s.Domains[0])
	}
}

func TestSummarizeEvidenceByControl(t *testing.T) {
	evidence := []models.EvidenceRecord{
		evidenceRec("IAC-01", true, 0.8),
		evidenceRec("IAC-01", false, 0.3),
		evidenceRec("BCD-01", true, 0.9),
	}

	s := Summarize(nil, evidence)

	if len(s.EvidenceByCtrl) != 2 {
		t.Fatalf("got %d controls, want 2", len(s.EvidenceByCtrl))
	}
	// Sorted by SCF ID.
	if s.EvidenceByCtrl[0].SCFID != "BCD-01" {
		t.Errorf("first control = %q, want BCD-01", s.EvidenceByCtrl[0].SCFID)
	}
	iac := s.EvidenceByCtrl[1]
	if iac.Total != 2 || iac.Valid != 1 || iac.Invalid != 1 {
		t.Errorf("IAC-01 counts = %+v", iac)
	}
}

func TestSummarizeHistogram(t *testing.T) {
	evidence := []models.EvidenceRecord{
		evidenceRec("A", false, 0.05),
		evidenceRec("B", false, 0.55),
		evidenceRec("C", true, 0.62),
		evidenceRec("D", true, 0.68),
		evidenceRec("E", true, 1.0),
	}

	s := Summarize(nil, evidence)

	if len(s.Histogram) != 10 {
		t.Fatalf("got %d buckets, want 10", len(s.Histogram))
	}
	if s.Histogram[0].Count != 1 {
		t.Errorf("bucket [0,0.1) = %d, want 1", s.Histogram[0].Count)
	}
	if s.Histogram[5].Count != 1 {
		t.Errorf("bucket [0.5,0.6) = %d, want 1", s.Histogram[5].Count)
	}
	if s.Histogram[6].Count != 2 {
		t.Errorf("bucket [0.6,0.7) = %d, want 2", s.Histogram[6].Count)
	}
	// Score 1.0 lands in the top bucket.
	if s.Histogram[9].Count != 1 {
		t.Errorf("bucket [0.9,1.0] = %d, want 1", s.Histogram[9].Count)
	}
}

func TestSummarizeCountsFailures(t *testing.T) {
	failed := models.EvidenceRecord{SCFID: "IAC-01", Success: false}
	s := Summarize(nil, []models.EvidenceRecord{failed, evidenceRec("IAC-01", true, 0.7)})

	if s.FailedRuns != 1 {
		t.Errorf("FailedRuns = %d, want 1", s.FailedRuns)
	}
	// Failed runs carry no confidence and stay out of the mean.
	if s.MeanConfidence != 0.7 {
		t.Errorf("MeanConfidence = %v, want 0.7", s.MeanConfidence)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, nil)
	if s.TotalMappings != 0 || s.TotalEvidence != 0 || s.MeanConfidence != 0 {
		t.Errorf("unexpected non-zero summary: %+v", s)
	}
	if len(s.Histogram) != 10 {
		t.Errorf("histogram should always have 10 buckets, got %d", len(s.Histogram))
	}
}
