// ABOUTME: Reference dataset store for SCF controls and ERL evidence artifacts.
// ABOUTME: Imports CSV catalogs into parquet datasets and serves row-ordered reads.
package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/2389-research/attest/internal/models"
)

const (
	controlsDataset  = "scf_controls.parquet"
	artifactsDataset = "scf_evidence_list.parquet"
)

// controlRow is the parquet schema for one SCF control.
type controlRow struct {
	SCFID       string `parquet:"scf_id"`
	Domain      string `parquet:"domain"`
	Description string `parquet:"description"`
	ERLRef      string `parquet:"erl_ref"`
}

// artifactRow is the parquet schema for one ERL requirement.
type artifactRow struct {
	ERLID        string `parquet:"erl_id"`
	SCFID        string `parquet:"scf_id"`
	AreaFocus    string `parquet:"area_focus"`
	ArtifactName string `parquet:"artifact_name"`
	ArtifactDesc string `parquet:"artifact_desc"`
}

// ReferenceStore holds the immutable reference catalogs. Row order is
// load order and must stay aligned with any precomputed embedding sidecars.
type ReferenceStore struct {
	dir string
}

// NewReferenceStore creates a reference store rooted at the given data dir.
func NewReferenceStore(dir string) *ReferenceStore {
	return &ReferenceStore{dir: dir}
}

// ControlsPath returns the on-disk path of the controls dataset.
func (s *ReferenceStore) ControlsPath() string {
	return filepath.Join(s.dir, controlsDataset)
}

// ArtifactsPath returns the on-disk path of the ERL artifacts dataset.
func (s *ReferenceStore) ArtifactsPath() string {
	return filepath.Join(s.dir, artifactsDataset)
}

// ImportControlsCSV loads a controls catalog from CSV and rewrites the
// controls dataset. Expected header: scf_id, domain, description, erl_ref.
func (s *ReferenceStore) ImportControlsCSV(path string) (int, error) {
	records, err := readCSV(path)
	if err != nil {
		return 0, err
	}

	rows := make([]controlRow, 0, len(records))
	for _, rec := range records {
		row := controlRow{
			SCFID:       rec["scf_id"],
			Domain:      rec["domain"],
			Description: rec["description"],
			ERLRef:      rec["erl_ref"],
		}
		if row.SCFID == "" {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("no controls found in %s", path)
	}
	if err := writeDataset(s.ControlsPath(), rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ImportArtifactsCSV loads an ERL catalog from CSV and rewrites the
// artifacts dataset. Expected header: erl_id, scf_id, area_focus,
// artifact_name, artifact_desc.
func (s *ReferenceStore) ImportArtifactsCSV(path string) (int, error) {
	records, err := readCSV(path)
	if err != nil {
		return 0, err
	}

	rows := make([]artifactRow, 0, len(records))
	for _, rec := range records {
		row := artifactRow{
			ERLID:        rec["erl_id"],
			SCFID:        rec["scf_id"],
			AreaFocus:    rec["area_focus"],
			ArtifactName: rec["artifact_name"],
			ArtifactDesc: rec["artifact_desc"],
		}
		if row.ERLID == "" {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("no evidence artifacts found in %s", path)
	}
	if err := writeDataset(s.ArtifactsPath(), rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Controls returns all controls in dataset row order.
func (s *ReferenceStore) Controls() ([]models.Control, error) {
	rows, err := readDataset[controlRow](s.ControlsPath())
	if err != nil {
		return nil, err
	}
	controls := make([]models.Control, len(rows))
	for i, r := range rows {
		controls[i] = models.Control{
			SCFID:       r.SCFID,
			Domain:      r.Domain,
			Description: r.Description,
			ERLRef:      r.ERLRef,
		}
	}
	return controls, nil
}

// Artifacts returns all ERL requirements in dataset row order.
func (s *ReferenceStore) Artifacts() ([]models.Artifact, error) {
	rows, err := readDataset[artifactRow](s.ArtifactsPath())
	if err != nil {
		return nil, err
	}
	artifacts := make([]models.Artifact, len(rows))
	for i, r := range rows {
		artifacts[i] = models.Artifact{
			ERLID:       r.ERLID,
			SCFID:       r.SCFID,
			AreaFocus:   r.AreaFocus,
			Name:        r.ArtifactName,
			Description: r.ArtifactDesc,
		}
	}
	return artifacts, nil
}

// HasControl reports whether the given SCF ID exists in the reference set.
func (s *ReferenceStore) HasControl(scfID string) (bool, error) {
	controls, err := s.Controls()
	if err != nil {
		return false, err
	}
	for _, c := range controls {
		if c.SCFID == scfID {
			return true, nil
		}
	}
	return false, nil
}

// readCSV reads a CSV file into header-keyed records. Header names are
// lowercased and trimmed so catalogs from spreadsheets import cleanly.
func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var records []map[string]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		m := make(map[string]string, len(header))
		for i, v := range rec {
			if i < len(header) {
				m[header[i]] = strings.TrimSpace(v)
			}
		}
		records = append(records, m)
	}
	return records, nil
}
