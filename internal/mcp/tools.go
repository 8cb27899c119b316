// ABOUTME: MCP tool implementations for compliance operations.
// ABOUTME: Registers validate_evidence, search_controls, list_evidence, registry_summary.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/attest/internal/report"
	"github.com/2389-research/attest/internal/storage"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "validate_evidence",
		Description: "Validate an evidence file (PDF, DOCX, or image) against an SCF control. Extracts text, compares it to the control's Evidence Request List artifacts, and records the verdict in the evidence registry.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Path to the evidence file"},
				"scf_id": {"type": "string", "description": "SCF control ID the evidence is submitted for, e.g. IAC-01"}
			},
			"required": ["path", "scf_id"]
		}`),
	}, s.handleValidateEvidence)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "search_controls",
		Description: "Search the SCF control catalog by free-text similarity. Returns ranked controls with confidence tiers.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search query text"},
				"limit": {"type": "number", "description": "Maximum number of results (default 10)"}
			},
			"required": ["query"]
		}`),
	}, s.handleSearchControls)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "list_evidence",
		Description: "List evidence validation records from the registry, optionally filtered by control ID substring and validity verdict.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"scf_id": {"type": "string", "description": "Control ID substring filter, case-insensitive"},
				"valid": {"type": "boolean", "description": "When set, only records with this verdict"}
			}
		}`),
	}, s.handleListEvidence)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "registry_summary",
		Description: "Summarize the mapping and evidence registries: totals, validity split, domain coverage, and mean confidence.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {}
		}`),
	}, s.handleRegistrySummary)
}

func (s *Server) handleValidateEvidence(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Path  string `json:"path"`
		SCFID string `json:"scf_id"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.Path == "" {
		return toolError("path is required"), nil
	}
	if args.SCFID == "" {
		return toolError("scf_id is required"), nil
	}

	rec, err := s.validator.Validate(ctx, args.Path, args.SCFID)
	if err != nil {
		return toolError("validation could not run: %v", err), nil
	}

	var sb strings.Builder
	if !rec.Success {
		sb.WriteString(fmt.Sprintf("Validation FAILED: %s\n", rec.Error))
		sb.WriteString(fmt.Sprintf("A failure record was kept (id %s).", rec.ID))
		return textResult(sb.String()), nil
	}

	verdict := "NOT VALID"
	if rec.Valid {
		verdict = "VALID"
	}
	sb.WriteString(fmt.Sprintf("%s (confidence %.2f, threshold %.2f)\n", verdict, rec.Confidence, rec.Threshold))
	sb.WriteString(fmt.Sprintf("Control: %s\n", rec.SCFID))
	sb.WriteString(fmt.Sprintf("Matched artifact: %s (%s)\n", rec.MatchedArtifactName, rec.MatchedERLID))
	sb.WriteString(rec.Explanation)
	return textResult(sb.String()), nil
}

func (s *Server) handleSearchControls(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.Query == "" {
		return toolError("query is required"), nil
	}

	matches, err := s.mapper.SearchControls(ctx, args.Query, args.Limit)
	if err != nil {
		return toolError("search failed: %v", err), nil
	}
	if len(matches) == 0 {
		return textResult("No matching controls found."), nil
	}

	var sb strings.Builder
	for i, m := range matches {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("- %s [%s] %.2f (%s)\n  %s\n",
			m.SCFID, m.Domain, m.Score, m.Tier, m.Text))
	}
	return textResult(sb.String()), nil
}

func (s *Server) handleListEvidence(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		SCFID string `json:"scf_id"`
		Valid *bool  `json:"valid"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	records, err := s.evidence.List(storage.Filter{SCFIDContains: args.SCFID, Valid: args.Valid})
	if err != nil {
		return toolError("failed to list evidence: %v", err), nil
	}
	if len(records) == 0 {
		return textResult("No evidence records found."), nil
	}

	var sb strings.Builder
	for _, rec := range records {
		verdict := "invalid"
		if rec.Valid {
			verdict = "valid"
		}
		if !rec.Success {
			verdict = "failed: " + rec.Error
		}
		sb.WriteString(fmt.Sprintf("- %s %s %s (%.2f) %s\n",
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			rec.SCFID,
			rec.FileName,
			rec.Confidence,
			verdict,
		))
	}
	return textResult(sb.String()), nil
}

func (s *Server) handleRegistrySummary(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	mappings, err := s.mappings.List(storage.Filter{})
	if err != nil {
		return toolError("failed to read mapping registry: %v", err), nil
	}
	evidence, err := s.evidence.List(storage.Filter{})
	if err != nil {
		return toolError("failed to read evidence registry: %v", err), nil
	}

	sum := report.Summarize(mappings, evidence)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Mappings: %d\n", sum.TotalMappings))
	sb.WriteString(fmt.Sprintf("Evidence: %d (%d valid, %d invalid)\n",
		sum.TotalEvidence, sum.ValidEvidence, sum.InvalidEvidence))
	sb.WriteString(fmt.Sprintf("Controls touched: %d\n", sum.UniqueControls))
	sb.WriteString(fmt.Sprintf("Mean confidence: %.2f\n", sum.MeanConfidence))
	if sum.FailedRuns > 0 {
		sb.WriteString(fmt.Sprintf("Failed runs: %d\n", sum.FailedRuns))
	}
	for _, d := range sum.Domains {
		sb.WriteString(fmt.Sprintf("- %s: %d clauses\n", d.Domain, d.Count))
	}
	return textResult(sb.String()), nil
}

func textResult(text string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: text}},
	}
}

// toolError creates an error result for MCP tool responses.
func toolError(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
