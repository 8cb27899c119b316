// ABOUTME: Append-only registries for mapping and evidence validation records.
// ABOUTME: Persists records to parquet datasets with filtered, order-preserving reads.
package storage

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389-research/attest/internal/models"
)

const (
	mappingDataset  = "mapping_registry.parquet"
	evidenceDataset = "evidence_registry.parquet"

	recordTimeFormat = time.RFC3339
)

// Filter narrows registry listings. Zero value matches everything.
type Filter struct {
	// SCFIDContains matches records whose SCF ID contains the substring,
	// case-insensitive.
	SCFIDContains string
	// Valid, when set, matches only evidence records with that verdict.
	Valid *bool
}

func (f Filter) matchesSCF(scfID string) bool {
	if f.SCFIDContains == "" {
		return true
	}
	return strings.Contains(strings.ToLower(scfID), strings.ToLower(f.SCFIDContains))
}

// mappingRow is the parquet schema for one persisted mapping record.
type mappingRow struct {
	ID           string  `parquet:"id"`
	Timestamp    string  `parquet:"timestamp"`
	PolicyID     string  `parquet:"policy_id"`
	ClauseIndex  int32   `parquet:"clause_index"`
	ClauseText   string  `parquet:"clause_text"`
	SCFID        string  `parquet:"scf_id"`
	Domain       string  `parquet:"domain"`
	MatchedText  string  `parquet:"matched_text"`
	Score        float64 `parquet:"score"`
	Tier         string  `parquet:"tier"`
	Explanation  string  `parquet:"explanation"`
	Success      bool    `parquet:"success"`
	Stage        string  `parquet:"stage"`
	ErrorMessage string  `parquet:"error_message"`
}

// evidenceRow is the parquet schema for one persisted evidence record.
type evidenceRow struct {
	ID           string  `parquet:"id"`
	Timestamp    string  `parquet:"timestamp"`
	SCFID        string  `parquet:"scf_id"`
	FileName     string  `parquet:"file_name"`
	StoredPath   string  `parquet:"stored_path"`
	FileType     string  `parquet:"file_type"`
	FileSize     int64   `parquet:"file_size"`
	Valid        bool    `parquet:"valid"`
	Confidence   float64 `parquet:"confidence"`
	MatchedERLID string  `parquet:"matched_erl_id"`
	ArtifactName string  `parquet:"artifact_name"`
	ArtifactDesc string  `parquet:"artifact_desc"`
	AreaFocus    string  `parquet:"area_focus"`
	Explanation  string  `parquet:"explanation"`
	TextPreview  string  `parquet:"text_preview"`
	Threshold    float64 `parquet:"threshold"`
	Success      bool    `parquet:"success"`
	Stage        string  `parquet:"stage"`
	ErrorMessage string  `parquet:"error_message"`
}

// MappingStore is the append-only registry of policy-to-control mappings.
type MappingStore struct {
	path string
}

// NewMappingStore creates a mapping registry rooted at the given data dir.
func NewMappingStore(dir string) *MappingStore {
	return &MappingStore{path: filepath.Join(dir, mappingDataset)}
}

// Path returns the on-disk location of the mapping dataset.
func (s *MappingStore) Path() string { return s.path }

// Append persists one mapping record. Existing records are never modified.
func (s *MappingStore) Append(rec *models.MappingRecord) error {
	return appendDataset(s.path, mappingToRow(rec))
}

// List returns records matching the filter in insertion order.
func (s *MappingStore) List(f Filter) ([]models.MappingRecord, error) {
	rows, err := readDataset[mappingRow](s.path)
	if err != nil {
		return nil, err
	}
	var out []models.MappingRecord
	for _, r := range rows {
		if !f.matchesSCF(r.SCFID) {
			continue
		}
		if f.Valid != nil && *f.Valid != r.Success {
			continue
		}
		out = append(out, mappingFromRow(r))
	}
	return out, nil
}

// EvidenceStore is the append-only registry of evidence validation outcomes.
type EvidenceStore struct {
	path string
}

// NewEvidenceStore creates an evidence registry rooted at the given data dir.
func NewEvidenceStore(dir string) *EvidenceStore {
	return &EvidenceStore{path: filepath.Join(dir, evidenceDataset)}
}

// Path returns the on-disk location of the evidence dataset.
func (s *EvidenceStore) Path() string { return s.path }

// Append persists one evidence record. Failed validation attempts are
// appended like any other record so the audit trail stays complete.
func (s *EvidenceStore) Append(rec *models.EvidenceRecord) error {
	return appendDataset(s.path, evidenceToRow(rec))
}

// List returns records matching the filter in insertion order. The Valid
// filter matches the validity verdict, not pipeline success.
func (s *EvidenceStore) List(f Filter) ([]models.EvidenceRecord, error) {
	rows, err := readDataset[evidenceRow](s.path)
	if err != nil {
		return nil, err
	}
	var out []models.EvidenceRecord
	for _, r := range rows {
		if !f.matchesSCF(r.SCFID) {
			continue
		}
		if f.Valid != nil && *f.Valid != r.Valid {
			continue
		}
		out = append(out, evidenceFromRow(r))
	}
	return out, nil
}

func mappingToRow(rec *models.MappingRecord) mappingRow {
	return mappingRow{
		ID:           rec.ID.String(),
		Timestamp:    rec.Timestamp.UTC().Format(recordTimeFormat),
		PolicyID:     rec.PolicyID,
		ClauseIndex:  int32(rec.ClauseIndex),
		ClauseText:   rec.ClauseText,
		SCFID:        rec.SCFID,
		Domain:       rec.Domain,
		MatchedText:  rec.MatchedText,
		Score:        rec.Score,
		Tier:         string(rec.Tier),
		Explanation:  rec.Explanation,
		Success:      rec.Success,
		Stage:        rec.Stage,
		ErrorMessage: rec.Error,
	}
}

func mappingFromRow(r mappingRow) models.MappingRecord {
	id, _ := uuid.Parse(r.ID)
	ts, _ := time.Parse(recordTimeFormat, r.Timestamp)
	return models.MappingRecord{
		ID:          id,
		Timestamp:   ts,
		PolicyID:    r.PolicyID,
		ClauseIndex: int(r.ClauseIndex),
		ClauseText:  r.ClauseText,
		SCFID:       r.SCFID,
		Domain:      r.Domain,
		MatchedText: r.MatchedText,
		Score:       r.Score,
		Tier:        models.Tier(r.Tier),
		Explanation: r.Explanation,
		Success:     r.Success,
		Stage:       r.Stage,
		Error:       r.ErrorMessage,
	}
}

func evidenceToRow(rec *models.EvidenceRecord) evidenceRow {
	return evidenceRow{
		ID:           rec.ID.String(),
		Timestamp:    rec.Timestamp.UTC().Format(recordTimeFormat),
		SCFID:        rec.SCFID,
		FileName:     rec.FileName,
		StoredPath:   rec.StoredPath,
		FileType:     rec.FileType,
		FileSize:     rec.FileSize,
		Valid:        rec.Valid,
		Confidence:   rec.Confidence,
		MatchedERLID: rec.MatchedERLID,
		ArtifactName: rec.MatchedArtifactName,
		ArtifactDesc: rec.MatchedArtifactDesc,
		AreaFocus:    rec.MatchedAreaFocus,
		Explanation:  rec.Explanation,
		TextPreview:  rec.TextPreview,
		Threshold:    rec.Threshold,
		Success:      rec.Success,
		Stage:        rec.Stage,
		ErrorMessage: rec.Error,
	}
}

func evidenceFromRow(r evidenceRow) models.EvidenceRecord {
	id, _ := uuid.Parse(r.ID)
	ts, _ := time.Parse(recordTimeFormat, r.Timestamp)
	return models.EvidenceRecord{
		ID:                  id,
		Timestamp:           ts,
		SCFID:               r.SCFID,
		FileName:            r.FileName,
		StoredPath:          r.StoredPath,
		FileType:            r.FileType,
		FileSize:            r.FileSize,
		Valid:               r.Valid,
		Confidence:          r.Confidence,
		MatchedERLID:        r.MatchedERLID,
		MatchedArtifactName: r.ArtifactName,
		MatchedArtifactDesc: r.ArtifactDesc,
		MatchedAreaFocus:    r.AreaFocus,
		Explanation:         r.Explanation,
		TextPreview:         r.TextPreview,
		Threshold:           r.Threshold,
		Success:             r.Success,
		Stage:               r.Stage,
		Error:               r.ErrorMessage,
	}
}
