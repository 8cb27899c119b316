// ABOUTME: Report commands: export audit summaries as PDF or CSV.
// ABOUTME: Subcommands of `attest report`.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389-research/attest/internal/report"
	"github.com/2389-research/attest/internal/storage"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate audit reports from the registries",
}

var flagReportOut string

var reportExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the audit report",
	Long: `Aggregates the mapping and evidence registries and writes a report.
The output format follows the file extension: .pdf for the full report
with charts, .csv for the evidence detail table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mappings, err := globalMappings.List(storage.Filter{})
		if err != nil {
			return err
		}
		evidence, err := globalEvidence.List(storage.Filter{})
		if err != nil {
			return err
		}

		out := flagReportOut
		switch {
		case strings.HasSuffix(out, ".pdf"):
			summary := report.Summarize(mappings, evidence)
			if err := report.WritePDF(out, summary, evidence); err != nil {
				return err
			}
		case strings.HasSuffix(out, ".csv"):
			if err := report.WriteCSV(out, evidence); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported report format %q: use a .pdf or .csv path", out)
		}
		fmt.Printf("Report written to %s\n", out)
		return nil
	},
}

var reportSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the audit summary to the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		mappings, err := globalMappings.List(storage.Filter{})
		if err != nil {
			return err
		}
		evidence, err := globalEvidence.List(storage.Filter{})
		if err != nil {
			return err
		}

		s := report.Summarize(mappings, evidence)
		fmt.Printf("Policy clause mappings: %d\n", s.TotalMappings)
		fmt.Printf("Evidence submissions:   %d (%d valid, %d invalid)\n",
			s.TotalEvidence, s.ValidEvidence, s.InvalidEvidence)
		fmt.Printf("Controls touched:       %d\n", s.UniqueControls)
		fmt.Printf("Mean confidence:        %.2f\n", s.MeanConfidence)
		if s.FailedRuns > 0 {
			fmt.Printf("Failed pipeline runs:   %d\n", s.FailedRuns)
		}
		if len(s.Domains) > 0 {
			fmt.Println("\nClause coverage by domain:")
			for _, d := range s.Domains {
				fmt.Printf("  %-35s %d\n", d.Domain, d.Count)
			}
		}
		if len(s.EvidenceByCtrl) > 0 {
			fmt.Println("\nEvidence by control:")
			for _, ce := range s.EvidenceByCtrl {
				fmt.Printf("  %-10s %d total, %d valid, %d invalid\n",
					ce.SCFID, ce.Total, ce.Valid, ce.Invalid)
			}
		}
		return nil
	},
}

func init() {
	reportExportCmd.Flags().StringVarP(&flagReportOut, "out", "o", "attest_report.pdf", "output path (.pdf or .csv)")

	reportCmd.AddCommand(reportExportCmd)
	reportCmd.AddCommand(reportSummaryCmd)
	rootCmd.AddCommand(reportCmd)
}
