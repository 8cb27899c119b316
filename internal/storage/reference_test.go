// ABOUTME: Tests for the reference catalog store.
// ABOUTME: Covers CSV imports, row ordering, and control lookups.
package storage

import (
	"os"
	"path/filepath"
	"testing"
)

const controlsCSV = `scf_id,domain,description,erl_ref
GOV-01,Governance,Publish a security governance program,ERL-001
IAC-01,Identity & Access,Enforce logical access controls,ERL-002
SAT-01,Security Awareness & Training,Run a security awareness program,ERL-003
`

const artifactsCSV = `erl_id,scf_id,area_focus,artifact_name,artifact_desc
ERL-001,GOV-01,Governance,Security program charter,Signed charter for the security program
ERL-002,IAC-01,Identity & Access,Access control policy,Documented access provisioning policy
ERL-003,SAT-01,Training,Training completion report,Annual awareness training completion records
`

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write CSV: %v", err)
	}
	return path
}

func TestImportControlsCSV(t *testing.T) {
	dir := t.TempDir()
	store := NewReferenceStore(dir)
	csvPath := writeCSV(t, dir, "controls.csv", controlsCSV)

	n, err := store.ImportControlsCSV(csvPath)
	if err != nil {
		t.Fatalf("ImportControlsCSV failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("imported %d controls, want 3", n)
	}

	controls, err := store.Controls()
	if err != nil {
		t.Fatalf("Controls failed: %v", err)
	}
	if len(controls) != 3 {
		t.Fatalf("got %d controls, want 3", len(controls))
	}
	// Row order must match import order: index embeddings depend on it.
	wantIDs := []string{"GOV-01", "IAC-01", "SAT-01"}
	for i, c := range controls {
		if c.SCFID != wantIDs[i] {
			t.Errorf("row %d: SCFID = %q, want %q", i, c.SCFID, wantIDs[i])
		}
	}
	if controls[1].Domain != "Identity & Access" {
		t.Errorf("Domain = %q, want Identity & Access", controls[1].Domain)
	}
}

func TestImportArtifactsCSV(t *testing.T) {
	dir := t.TempDir()
	store := NewReferenceStore(dir)
	csvPath := writeCSV(t, dir, "erl.csv", artifactsCSV)

	n, err := store.ImportArtifactsCSV(csvPath)
	if err != nil {
		t.Fatalf("ImportArtifactsCSV failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("imported %d artifacts, want 3", n)
	}

	artifacts, err := store.Artifacts()
	if err != nil {
		t.Fatalf("Artifacts failed: %v", err)
	}
	if len(artifacts) != 3 {
		t.Fatalf("got %d artifacts, want 3", len(artifacts))
	}
	if artifacts[0].ERLID != "ERL-001" {
		t.Errorf("ERLID = %q, want ERL-001", artifacts[0].ERLID)
	}
	if artifacts[1].SCFID != "IAC-01" {
		t.Errorf("SCFID = %q, want IAC-01", artifacts[1].SCFID)
	}
	if artifacts[2].Name != "Training completion report" {
		t.Errorf("Name = %q, want Training completion report", artifacts[2].Name)
	}
}

func TestImportControlsCSVEmpty(t *testing.T) {
	dir := t.TempDir()
	store := NewReferenceStore(dir)
	csvPath := writeCSV(t, dir, "controls.csv", "scf_id,domain,description,erl_ref\n")

	if _, err := store.ImportControlsCSV(csvPath); err == nil {
		t.Error("expected error for CSV with no data rows")
	}
}

func TestHasControl(t *testing.T) {
	dir := t.TempDir()
	store := NewReferenceStore(dir)
	csvPath := writeCSV(t, dir, "controls.csv", controlsCSV)
	if _, err := store.ImportControlsCSV(csvPath); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	ok, err := store.HasControl("IAC-01")
	if err != nil {
		t.Fatalf("HasControl failed: %v", err)
	}
	if !ok {
		t.Error("HasControl(IAC-01) = false, want true")
	}

	ok, err = store.HasControl("XXX-99")
	if err != nil {
		t.Fatalf("HasControl failed: %v", err)
	}
	if ok {
		t.Error("HasControl(XXX-99) = true, want false")
	}
}

func TestControlsMissingDataset(t *testing.T) {
	store := NewReferenceStore(t.TempDir())

	controls, err := store.Controls()
	if err != nil {
		t.Fatalf("Controls failed: %v", err)
	}
	if len(controls) != 0 {
		t.Errorf("expected no controls before import, got %d", len(controls))
	}
}
