// ABOUTME: CSV export of the evidence detail table.
// ABOUTME: One row per evidence record, matching the PDF report's detail columns.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/2389-research/attest/internal/models"
)

var detailHeader = []string{
	"timestamp", "scf_id", "file_name", "matched_erl_id",
	"artifact_name", "confidence", "valid", "stage", "error",
}

// WriteCSV writes the evidence detail table to path.
func WriteCSV(path string, evidence []models.EvidenceRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV report: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(detailHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, e := range evidence {
		row := []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			e.SCFID,
			e.FileName,
			e.MatchedERLID,
			e.MatchedArtifactName,
			strconv.FormatFloat(e.Confidence, 'f', 4, 64),
			strconv.FormatBool(e.Valid),
			e.Stage,
			e.Error,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV report: %w", err)
	}
	return f.Close()
}
