// ABOUTME: Pure aggregation of registry records into audit summary statistics.
// ABOUTME: Computes totals, per-domain coverage, confidence buckets, and per-control counts.
package report

import (
	"sort"

	"github.com/2389-research/attest/internal/models"
)

// histogramBuckets are the confidence bucket lower bounds, 0.1 wide.
var histogramBuckets = []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}

// DomainCoverage counts mapped clauses per SCF domain.
type DomainCoverage struct {
	Domain string
	Count  int
}

// ControlEvidence counts evidence submissions per control.
type ControlEvidence struct {
	SCFID   string
	Total   int
	Valid   int
	Invalid int
}

// HistogramBucket is one confidence bucket with its record count.
type HistogramBucket struct {
	Low   float64
	High  float64
	Count int
}

// Summary is the aggregate view over both registries. All fields are
// computed from the records passed in; nothing is read from disk.
type Summary struct {
	TotalMappings    int
	TotalEvidence    int
	ValidEvidence    int
	InvalidEvidence  int
	FailedRuns       int
	UniqueControls   int
	MeanConfidence   float64
	Domains          []DomainCoverage
	EvidenceByCtrl   []ControlEvidence
	Histogram        []HistogramBucket
	TierCounts       map[models.Tier]int
}

// Summarize aggregates mapping and evidence records into a report summary.
func Summarize(mappings []models.MappingRecord, evidence []models.EvidenceRecord) Summary {
	s := Summary{
		TotalMappings: len(mappings),
		TotalEvidence: len(evidence),
		TierCounts:    make(map[models.Tier]int),
	}

	domainCounts := make(map[string]int)
	controlSet := make(map[string]bool)
	for _, m := range mappings {
		if !m.Success {
			s.FailedRuns++
			continue
		}
		domainCounts[m.Domain]++
		controlSet[m.SCFID] = true
		s.TierCounts[m.Tier]++
	}

	byControl := make(map[string]*ControlEvidence)
	var confSum float64
	var confN int
	for _, e := range evidence {
		if !e.Success {
			s.FailedRuns++
			continue
		}
		controlSet[e.SCFID] = true
		ce, ok := byControl[e.SCFID]
		if !ok {
			ce = &ControlEvidence{SCFID: e.SCFID}
			byControl[e.SCFID] = ce
		}
		ce.Total++
		if e.Valid {
			s.ValidEvidence++
			ce.Valid++
		} else {
			s.InvalidEvidence++
			ce.Invalid++
		}
		confSum += e.Confidence
		confN++
	}
	s.UniqueControls = len(controlSet)
	if confN > 0 {
		s.MeanConfidence = confSum / float64(confN)
	}

	for domain, count := range domainCounts {
		s.Domains = append(s.Domains, DomainCoverage{Domain: domain, Count: count})
	}
	sort.Slice(s.Domains, func(i, j int) bool {
		if s.Domains[i].Count != s.Domains[j].Count {
			return s.Domains[i].Count > s.Domains[j].Count
		}
		return s.Domains[i].Domain < s.Domains[j].Domain
	})

	for _, ce := range byControl {
		s.EvidenceByCtrl = append(s.EvidenceByCtrl, *ce)
	}
	sort.Slice(s.EvidenceByCtrl, func(i, j int) bool {
		return s.EvidenceByCtrl[i].SCFID < s.EvidenceByCtrl[j].SCFID
	})

	s.Histogram = confidenceHistogram(evidence)
	return s
}

func confidenceHistogram(evidence []models.EvidenceRecord) []HistogramBucket {
	buckets := make([]HistogramBucket, len(histogramBuckets))
	for i, low := range histogramBuckets {
		high := 1.0
		if i+1 < len(histogramBuckets) {
			high = histogramBuckets[i+1]
		}
		buckets[i] = HistogramBucket{Low: low, High: high}
	}
	for _, e := range evidence {
		if !e.Success {
			continue
		}
		idx := int(e.Confidence * 10)
		if idx < 0 {
			idx = 0
		}
		if idx >= len(buckets) {
			idx = len(buckets) - 1
		}
		buckets[idx].Count++
	}
	return buckets
}
