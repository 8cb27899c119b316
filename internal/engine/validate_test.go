// ABOUTME: Tests for the evidence validation pipeline.
// ABOUTME: Exercises the full extract-embed-match flow with real files on disk.
package engine

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/2389-research/attest/internal/embeddings"
	"github.com/2389-research/attest/internal/extract"
	"github.com/2389-research/attest/internal/storage"
)

const refControlsCSV = `scf_id,domain,description,erl_ref
GOV-01,Governance,Publish and maintain a security governance program charter,ERL-001
IAC-01,Identity & Access,Enforce logical access controls for all information systems,ERL-002
BCD-01,Business Continuity,Maintain tested business continuity and disaster recovery plans,ERL-003
`

const refArtifactsCSV = `erl_id,scf_id,area_focus,artifact_name,artifact_desc
ERL-001,GOV-01,Governance,Security program charter,Signed charter establishing the security governance program
ERL-002,IAC-01,Identity & Access,Access control policy,Documented policy for provisioning and revoking logical access
ERL-003,BCD-01,Business Continuity,Continuity test report,Report from the annual business continuity exercise
`

// writeDOCX builds a minimal Word document containing the given paragraphs.
func writeDOCX(t *testing.T, path string, paragraphs ...string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create docx: %v", err)
	}
	w := zip.NewWriter(f)
	doc, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatalf("failed to create document part: %v", err)
	}
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		b.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	b.WriteString(`</w:body></w:document>`)
	if _, err := doc.Write([]byte(b.String())); err != nil {
		t.Fatalf("failed to write document part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close docx: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close file: %v", err)
	}
}

// newTestValidator builds a validator over a temp data dir with the
// reference catalogs imported.
func newTestValidator(t *testing.T, controlsCSV, artifactsCSV string) (*Validator, *storage.EvidenceStore, string) {
	t.Helper()
	dataDir := t.TempDir()

	ref := storage.NewReferenceStore(dataDir)
	if controlsCSV != "" {
		path := filepath.Join(dataDir, "controls.csv")
		if err := os.WriteFile(path, []byte(controlsCSV), 0o644); err != nil {
			t.Fatalf("failed to write controls CSV: %v", err)
		}
		if _, err := ref.ImportControlsCSV(path); err != nil {
			t.Fatalf("failed to import controls: %v", err)
		}
	}
	if artifactsCSV != "" {
		path := filepath.Join(dataDir, "artifacts.csv")
		if err := os.WriteFile(path, []byte(artifactsCSV), 0o644); err != nil {
			t.Fatalf("failed to write artifacts CSV: %v", err)
		}
		if _, err := ref.ImportArtifactsCSV(path); err != nil {
			t.Fatalf("failed to import artifacts: %v", err)
		}
	}

	registry := storage.NewEvidenceStore(dataDir)
	v := NewValidator(ValidatorConfig{
		Extractor: extract.NewExtractor(nil, nil),
		Embedder:  embeddings.NewLocalEmbedder(),
		Reference: ref,
		Registry:  registry,
		Files:     storage.NewFileStore(dataDir),
		DataDir:   dataDir,
	})
	return v, registry, dataDir
}

func TestValidateMatchingEvidence(t *testing.T) {
	v, registry, _ := newTestValidator(t, refControlsCSV, refArtifactsCSV)

	docPath := filepath.Join(t.TempDir(), "access_policy.docx")
	writeDOCX(t, docPath,
		"Access control policy.",
		"Documented policy for provisioning and revoking logical access.")

	rec, err := v.Validate(context.Background(), docPath, "IAC-01")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if !rec.Success {
		t.Fatalf("Success = false, error = %q", rec.Error)
	}
	if !rec.Valid {
		t.Errorf("Valid = false, confidence = %v", rec.Confidence)
	}
	if rec.Stage != StagePersisted {
		t.Errorf("Stage = %q, want %q", rec.Stage, StagePersisted)
	}
	if rec.MatchedERLID != "ERL-002" {
		t.Errorf("MatchedERLID = %q, want ERL-002", rec.MatchedERLID)
	}
	if rec.Confidence < rec.Threshold {
		t.Errorf("Confidence %v below threshold %v for matching text", rec.Confidence, rec.Threshold)
	}
	if rec.StoredPath == "" {
		t.Error("StoredPath is empty")
	} else if _, err := os.Stat(rec.StoredPath); err != nil {
		t.Errorf("stored copy missing: %v", err)
	}
	if !strings.Contains(rec.Explanation, "Access control policy") {
		t.Errorf("Explanation = %q, missing artifact name", rec.Explanation)
	}

	records, err := registry.List(storage.Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("registry has %d records, want 1", len(records))
	}
	if records[0].ID != rec.ID {
		t.Errorf("persisted ID = %v, want %v", records[0].ID, rec.ID)
	}
}

func TestValidateUnrelatedEvidence(t *testing.T) {
	v, _, _ := newTestValidator(t, refControlsCSV, refArtifactsCSV)

	docPath := filepath.Join(t.TempDir(), "recipe.docx")
	writeDOCX(t, docPath,
		"Whisk together flour sugar cocoa baking powder.",
		"Bake until a toothpick inserted comes out clean.")

	rec, err := v.Validate(context.Background(), docPath, "IAC-01")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !rec.Success {
		t.Fatalf("Success = false, error = %q", rec.Error)
	}
	if rec.Valid {
		t.Errorf("Valid = true for unrelated text, confidence = %v", rec.Confidence)
	}
	if !strings.Contains(rec.Explanation, "below") {
		t.Errorf("Explanation = %q, want below-threshold wording", rec.Explanation)
	}
}

func TestValidateRestrictsToControlArtifacts(t *testing.T) {
	v, _, _ := newTestValidator(t, refControlsCSV, refArtifactsCSV)

	// The document matches BCD-01's artifact verbatim, but validation runs
	// against IAC-01, so only IAC-01's artifacts are candidates.
	docPath := filepath.Join(t.TempDir(), "continuity.docx")
	writeDOCX(t, docPath,
		"Continuity test report.",
		"Report from the annual business continuity exercise.")

	rec, err := v.Validate(context.Background(), docPath, "IAC-01")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !rec.Success {
		t.Fatalf("Success = false, error = %q", rec.Error)
	}
	if rec.MatchedERLID != "ERL-002" {
		t.Errorf("MatchedERLID = %q, want ERL-002 (candidates restricted to IAC-01)", rec.MatchedERLID)
	}
}

func TestValidateUnsupportedFilePersistsFailure(t *testing.T) {
	v, registry, _ := newTestValidator(t, refControlsCSV, refArtifactsCSV)

	txtPath := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(txtPath, []byte("plain text"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	rec, err := v.Validate(context.Background(), txtPath, "IAC-01")
	if err != nil {
		t.Fatalf("Validate returned error for a stage failure: %v", err)
	}
	if rec.Success {
		t.Error("Success = true for unsupported file")
	}
	if rec.Stage != StageFailed {
		t.Errorf("Stage = %q, want %q", rec.Stage, StageFailed)
	}
	if rec.Error == "" {
		t.Error("Error message is empty")
	}

	records, err := registry.List(storage.Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("failed attempt not persisted: %d records", len(records))
	}
}

func TestValidateNoArtifactsPersistsFailure(t *testing.T) {
	v, registry, _ := newTestValidator(t, refControlsCSV, "")

	docPath := filepath.Join(t.TempDir(), "policy.docx")
	writeDOCX(t, docPath, "Documented policy for provisioning and revoking logical access.")

	rec, err := v.Validate(context.Background(), docPath, "IAC-01")
	if err != nil {
		t.Fatalf("Validate returned error for a stage failure: %v", err)
	}
	if rec.Success {
		t.Error("Success = true with an empty artifact catalog")
	}
	if !strings.Contains(rec.Error, "no evidence artifacts") {
		t.Errorf("Error = %q, want empty-catalog message", rec.Error)
	}

	records, err := registry.List(storage.Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("failed attempt not persisted: %d records", len(records))
	}
}

func TestValidateUnknownControlPersistsFailure(t *testing.T) {
	v, registry, _ := newTestValidator(t, refControlsCSV, refArtifactsCSV)

	docPath := filepath.Join(t.TempDir(), "policy.docx")
	writeDOCX(t, docPath, "Documented policy for provisioning and revoking logical access.")

	rec, err := v.Validate(context.Background(), docPath, "NOPE-99")
	if err != nil {
		t.Fatalf("Validate returned error for a stage failure: %v", err)
	}
	if rec.Success {
		t.Error("Success = true for an unknown control id")
	}
	if rec.Valid {
		t.Error("Valid = true for an unknown control id")
	}
	if rec.Stage != StageFailed {
		t.Errorf("Stage = %q, want %q", rec.Stage, StageFailed)
	}
	if !strings.Contains(rec.Error, "NOPE-99") {
		t.Errorf("Error = %q, want mention of the unknown id", rec.Error)
	}

	records, err := registry.List(storage.Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("failed attempt not persisted: %d records", len(records))
	}
}

func TestValidateWritesEmbeddingSidecar(t *testing.T) {
	v, _, dataDir := newTestValidator(t, refControlsCSV, refArtifactsCSV)

	docPath := filepath.Join(t.TempDir(), "policy.docx")
	writeDOCX(t, docPath, "Documented policy for provisioning and revoking logical access.")

	if _, err := v.Validate(context.Background(), docPath, "IAC-01"); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	sidecarPath := filepath.Join(dataDir, artifactSidecar)
	set, err := embeddings.LoadSet(sidecarPath)
	if err != nil {
		t.Fatalf("sidecar not written: %v", err)
	}
	if set.Count != 3 {
		t.Errorf("sidecar Count = %d, want 3", set.Count)
	}
	if set.Stale(3, embeddings.NewLocalEmbedder().Name()) {
		t.Error("freshly written sidecar reports stale")
	}

	// A second run must reuse the sidecar without error.
	if _, err := v.Validate(context.Background(), docPath, "IAC-01"); err != nil {
		t.Fatalf("second Validate failed: %v", err)
	}
}
