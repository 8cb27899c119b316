// ABOUTME: Evidence commands: validate files against controls and list the registry.
// ABOUTME: Validation runs interactively (bubbletea) when no args are given.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/attest/internal/storage"
	"github.com/2389-research/attest/internal/tui"
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Validate evidence files and inspect past verdicts",
}

var evidenceValidateCmd = &cobra.Command{
	Use:   "validate [file] [scf-id]",
	Short: "Validate an evidence file against an SCF control",
	Long: `Extracts text from the evidence file, compares it to the control's
Evidence Request List artifacts, and records the verdict.

With both arguments the validation runs directly. Without them an
interactive flow collects the file path and control ID.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 2 {
			rec, err := globalValidator.Validate(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !rec.Success {
				return fmt.Errorf("validation failed: %s", rec.Error)
			}
			verdict := "NOT VALID"
			if rec.Valid {
				verdict = "VALID"
			}
			fmt.Printf("%s (confidence %.2f, threshold %.2f)\n", verdict, rec.Confidence, rec.Threshold)
			fmt.Printf("Matched artifact: %s (%s)\n", rec.MatchedArtifactName, rec.MatchedERLID)
			fmt.Println(rec.Explanation)
			return nil
		}

		var path, scfID string
		if len(args) == 1 {
			path = args[0]
		}
		model := tui.NewValidateModel(globalValidator.Validate, path, scfID)
		_, err := tea.NewProgram(model).Run()
		return err
	},
}

var (
	flagListControl string
	flagListValid   bool
	flagListInvalid bool
)

var evidenceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List evidence validation records",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := storage.Filter{SCFIDContains: flagListControl}
		if flagListValid && flagListInvalid {
			return fmt.Errorf("--valid and --invalid are mutually exclusive")
		}
		if flagListValid {
			v := true
			filter.Valid = &v
		}
		if flagListInvalid {
			v := false
			filter.Valid = &v
		}

		records, err := globalEvidence.List(filter)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No evidence records found.")
			return nil
		}
		for _, rec := range records {
			verdict := "invalid"
			if rec.Valid {
				verdict = "valid"
			}
			if !rec.Success {
				verdict = "failed: " + rec.Error
			}
			fmt.Printf("%s  %-10s %-30s %.2f  %s\n",
				rec.Timestamp.Format("2006-01-02 15:04"),
				rec.SCFID,
				clip(rec.FileName, 30),
				rec.Confidence,
				verdict,
			)
		}
		return nil
	},
}

func init() {
	evidenceListCmd.Flags().StringVar(&flagListControl, "control", "", "filter by control ID substring")
	evidenceListCmd.Flags().BoolVar(&flagListValid, "valid", false, "only valid evidence")
	evidenceListCmd.Flags().BoolVar(&flagListInvalid, "invalid", false, "only invalid evidence")

	evidenceCmd.AddCommand(evidenceValidateCmd)
	evidenceCmd.AddCommand(evidenceListCmd)
	rootCmd.AddCommand(evidenceCmd)
}
