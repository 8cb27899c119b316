// ABOUTME: PDF audit report with summary statistics, charts, and a detail table.
// ABOUTME: Charts render to PNG via go-chart and embed through fpdf.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/wcharczuk/go-chart/v2"

	"github.com/2389-research/attest/internal/models"
)

const maxChartDomains = 8

// WritePDF renders the audit report to path.
func WritePDF(path string, s Summary, evidence []models.EvidenceRecord) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Compliance Audit Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, "Compliance Audit Report")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s", time.Now().Format("2006-01-02 15:04")))
	pdf.Ln(10)

	writeSummarySection(pdf, s)

	if img, err := domainChart(s); err == nil && img != nil {
		embedPNG(pdf, "domains", img, 150, 75)
	}
	if img, err := validityChart(s); err == nil && img != nil {
		embedPNG(pdf, "validity", img, 90, 90)
	}

	writeDetailTable(pdf, evidence)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write PDF report: %w", err)
	}
	return nil
}

func writeSummarySection(pdf *fpdf.Fpdf, s Summary) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "", 10)
	lines := []string{
		fmt.Sprintf("Policy clause mappings: %d", s.TotalMappings),
		fmt.Sprintf("Evidence submissions: %d (%d valid, %d invalid)",
			s.TotalEvidence, s.ValidEvidence, s.InvalidEvidence),
		fmt.Sprintf("Controls touched: %d", s.UniqueControls),
		fmt.Sprintf("Mean evidence confidence: %.2f", s.MeanConfidence),
	}
	if s.FailedRuns > 0 {
		lines = append(lines, fmt.Sprintf("Failed pipeline runs: %d", s.FailedRuns))
	}
	for _, line := range lines {
		pdf.Cell(0, 6, line)
		pdf.Ln(6)
	}
	pdf.Ln(4)
}

// domainChart renders per-domain clause coverage as a bar chart.
// Returns nil when there is nothing to plot.
func domainChart(s Summary) ([]byte, error) {
	if len(s.Domains) == 0 {
		return nil, nil
	}
	domains := s.Domains
	if len(domains) > maxChartDomains {
		domains = domains[:maxChartDomains]
	}

	bars := make([]chart.Value, len(domains))
	for i, d := range domains {
		label := d.Domain
		if len(label) > 18 {
			label = label[:15] + "..."
		}
		bars[i] = chart.Value{Label: label, Value: float64(d.Count)}
	}

	graph := chart.BarChart{
		Title:    "Clause coverage by domain",
		Width:    800,
		Height:   400,
		BarWidth: 60,
		Bars:     bars,
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// validityChart renders the valid/invalid evidence split as a pie chart.
// Returns nil when there is no evidence to plot.
func validityChart(s Summary) ([]byte, error) {
	if s.ValidEvidence == 0 && s.InvalidEvidence == 0 {
		return nil, nil
	}
	values := []chart.Value{}
	if s.ValidEvidence > 0 {
		values = append(values, chart.Value{Label: "Valid", Value: float64(s.ValidEvidence)})
	}
	if s.InvalidEvidence > 0 {
		values = append(values, chart.Value{Label: "Invalid", Value: float64(s.InvalidEvidence)})
	}

	graph := chart.PieChart{
		Title:  "Evidence validity",
		Width:  400,
		Height: 400,
		Values: values,
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func embedPNG(pdf *fpdf.Fpdf, name string, png []byte, w, h float64) {
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	pdf.ImageOptions(name, pdf.GetX(), pdf.GetY(), w, h, true, opts, 0, "")
	pdf.Ln(4)
}

func writeDetailTable(pdf *fpdf.Fpdf, evidence []models.EvidenceRecord) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Evidence detail")
	pdf.Ln(9)

	headers := []string{"Date", "Control", "File", "Artifact", "Score", "Verdict"}
	widths := []float64{24, 26, 48, 50, 16, 20}

	pdf.SetFont("Helvetica", "B", 8)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, e := range evidence {
		verdict := "Invalid"
		if e.Valid {
			verdict = "Valid"
		}
		if !e.Success {
			verdict = "Failed"
		}
		cells := []string{
			e.Timestamp.Format("2006-01-02"),
			e.SCFID,
			truncate(e.FileName, 30),
			truncate(e.MatchedArtifactName, 32),
			fmt.Sprintf("%.2f", e.Confidence),
			verdict,
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 6, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
