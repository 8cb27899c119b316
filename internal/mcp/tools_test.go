// ABOUTME: Tests for compliance MCP tool handlers.
// ABOUTME: Covers validate_evidence, search_controls, list_evidence, registry_summary.
package mcp

import (
	"archive/zip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/attest/internal/embeddings"
	"github.com/2389-research/attest/internal/engine"
	"github.com/2389-research/attest/internal/extract"
	"github.com/2389-research/attest/internal/storage"
)

const testControlsCSV = `scf_id,domain,description,erl_ref
IAC-01,Identity & Access,Enforce logical access controls for all information systems,ERL-002
BCD-01,Business Continuity,Maintain tested business continuity and disaster recovery plans,ERL-003
`

const testArtifactsCSV = `erl_id,scf_id,area_focus,artifact_name,artifact_desc
ERL-002,IAC-01,Identity & Access,Access control policy,Documented policy for provisioning and revoking logical access
ERL-003,BCD-01,Business Continuity,Continuity test report,Report from the annual business continuity exercise
`

func makeServer(t *testing.T) (*Server, string) {
	t.Helper()
	dataDir := t.TempDir()

	ref := storage.NewReferenceStore(dataDir)
	controlsPath := filepath.Join(dataDir, "controls.csv")
	if err := os.WriteFile(controlsPath, []byte(testControlsCSV), 0o644); err != nil {
		t.Fatalf("failed to write controls CSV: %v", err)
	}
	if _, err := ref.ImportControlsCSV(controlsPath); err != nil {
		t.Fatalf("failed to import controls: %v", err)
	}
	artifactsPath := filepath.Join(dataDir, "artifacts.csv")
	if err := os.WriteFile(artifactsPath, []byte(testArtifactsCSV), 0o644); err != nil {
		t.Fatalf("failed to write artifacts CSV: %v", err)
	}
	if _, err := ref.ImportArtifactsCSV(artifactsPath); err != nil {
		t.Fatalf("failed to import artifacts: %v", err)
	}

	evidence := storage.NewEvidenceStore(dataDir)
	mappings := storage.NewMappingStore(dataDir)
	embedder := embeddings.NewLocalEmbedder()
	extractor := extract.NewExtractor(nil, nil)

	validator := engine.NewValidator(engine.ValidatorConfig{
		Extractor: extractor,
		Embedder:  embedder,
		Reference: ref,
		Registry:  evidence,
		Files:     storage.NewFileStore(dataDir),
		DataDir:   dataDir,
	})
	mapper := engine.NewMapper(engine.MapperConfig{
		Extractor: extractor,
		Embedder:  embedder,
		Reference: ref,
		Registry:  mappings,
		DataDir:   dataDir,
	})

	server, err := NewServer(validator, mapper, evidence, mappings)
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	return server, dataDir
}

func writeEvidenceDOCX(t *testing.T, paragraphs ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "evidence.docx")
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
	return path
}

func callTool(t *testing.T, s *Server, name string, args interface{}) *gomcp.CallToolResult {
	t.Helper()
	argsJSON, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("failed to marshal args: %v", err)
	}

	req := &gomcp.CallToolRequest{
		Params: &gomcp.CallToolParamsRaw{
			Name:      name,
			Arguments: argsJSON,
		},
	}
	ctx := context.Background()

	var result *gomcp.CallToolResult
	switch name {
	case "validate_evidence":
		result, err = s.handleValidateEvidence(ctx, req)
	case "search_controls":
		result, err = s.handleSearchControls(ctx, req)
	case "list_evidence":
		result, err = s.handleListEvidence(ctx, req)
	case "registry_summary":
		result, err = s.handleRegistrySummary(ctx, req)
	default:
		t.Fatalf("unknown tool %q", name)
	}
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return result
}

func resultText(t *testing.T, result *gomcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(*gomcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want *TextContent", result.Content[0])
	}
	return text.Text
}

func TestNewServerRequiresDependencies(t *testing.T) {
	if _, err := NewServer(nil, nil, nil, nil); err == nil {
		t.Error("expected error when dependencies are nil")
	}
}

func TestValidateEvidenceTool(t *testing.T) {
	server, _ := makeServer(t)
	docPath := writeEvidenceDOCX(t,
		"Access control policy.",
		"Documented policy for provisioning and revoking logical access.")

	result := callTool(t, server, "validate_evidence", map[string]string{
		"path":   docPath,
		"scf_id": "IAC-01",
	})
	if result.IsError {
		t.Fatalf("tool returned error: %s", resultText(t, result))
	}
	text := resultText(t, result)
	if !strings.Contains(text, "VALID") {
		t.Errorf("result missing verdict: %q", text)
	}
	if !strings.Contains(text, "ERL-002") {
		t.Errorf("result missing matched artifact: %q", text)
	}
}

func TestValidateEvidenceToolMissingArgs(t *testing.T) {
	server, _ := makeServer(t)

	result := callTool(t, server, "validate_evidence", map[string]string{"path": "/tmp/x.pdf"})
	if !result.IsError {
		t.Error("expected error without scf_id")
	}
}

func TestSearchControlsTool(t *testing.T) {
	server, _ := makeServer(t)

	result := callTool(t, server, "search_controls", map[string]interface{}{
		"query": "business continuity and disaster recovery plans",
		"limit": 5,
	})
	if result.IsError {
		t.Fatalf("tool returned error: %s", resultText(t, result))
	}
	if !strings.Contains(resultText(t, result), "BCD-01") {
		t.Errorf("result missing BCD-01: %q", resultText(t, result))
	}
}

func TestListEvidenceToolEmpty(t *testing.T) {
	server, _ := makeServer(t)

	result := callTool(t, server, "list_evidence", map[string]string{})
	if result.IsError {
		t.Fatalf("tool returned error: %s", resultText(t, result))
	}
	if !strings.Contains(resultText(t, result), "No evidence records") {
		t.Errorf("unexpected text: %q", resultText(t, result))
	}
}

func TestListEvidenceToolAfterValidation(t *testing.T) {
	server, _ := makeServer(t)
	docPath := writeEvidenceDOCX(t,
		"Documented policy for provisioning and revoking logical access.")

	callTool(t, server, "validate_evidence", map[string]string{
		"path":   docPath,
		"scf_id": "IAC-01",
	})

	result := callTool(t, server, "list_evidence", map[string]string{"scf_id": "iac"})
	if result.IsError {
		t.Fatalf("tool returned error: %s", resultText(t, result))
	}
	if !strings.Contains(resultText(t, result), "IAC-01") {
		t.Errorf("result missing record: %q", resultText(t, result))
	}
}

func TestRegistrySummaryTool(t *testing.T) {
	server, _ := makeServer(t)
	docPath := writeEvidenceDOCX(t,
		"Documented policy for provisioning and revoking logical access.")

	callTool(t, server, "validate_evidence", map[string]string{
		"path":   docPath,
		"scf_id": "IAC-01",
	})

	result := callTool(t, server, "registry_summary", map[string]string{})
	if result.IsError {
		t.Fatalf("tool returned error: %s", resultText(t, result))
	}
	text := resultText(t, result)
	if !strings.Contains(text, "Evidence: 1") {
		t.Errorf("summary missing evidence count: %q", text)
	}
}
