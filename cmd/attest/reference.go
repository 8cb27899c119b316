// ABOUTME: Reference catalog commands: import CSVs and precompute embeddings.
// ABOUTME: Subcommands of `attest reference`.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var referenceCmd = &cobra.Command{
	Use:   "reference",
	Short: "Manage the SCF control and ERL artifact catalogs",
}

var flagControlsCSV string
var flagArtifactsCSV string

var referenceImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import SCF controls and ERL artifacts from CSV files",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagControlsCSV == "" && flagArtifactsCSV == "" {
			return fmt.Errorf("nothing to import: pass --controls and/or --artifacts")
		}
		if flagControlsCSV != "" {
			n, err := globalReference.ImportControlsCSV(flagControlsCSV)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d controls\n", n)
		}
		if flagArtifactsCSV != "" {
			n, err := globalReference.ImportArtifactsCSV(flagArtifactsCSV)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d evidence artifacts\n", n)
		}
		return nil
	},
}

var referenceEmbedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Precompute embeddings for the imported catalogs",
	Long: `Computes and caches embeddings for every control and artifact in the
reference catalogs. Without this, the first mapping or validation run pays
the embedding cost itself.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Both pipelines regenerate their sidecar on demand; a throwaway
		// search on each primes both caches.
		if _, err := globalMapper.SearchControls(ctx, "warm the control embedding cache", 1); err != nil {
			return fmt.Errorf("failed to embed controls: %w", err)
		}
		fmt.Println("Control embeddings ready")

		artifacts, err := globalReference.Artifacts()
		if err != nil {
			return err
		}
		if len(artifacts) == 0 {
			fmt.Println("No artifacts imported; skipping artifact embeddings")
			return nil
		}
		if err := globalValidator.WarmArtifactEmbeddings(ctx); err != nil {
			return fmt.Errorf("failed to embed artifacts: %w", err)
		}
		fmt.Println("Artifact embeddings ready")
		return nil
	},
}

var referenceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported controls",
	RunE: func(cmd *cobra.Command, args []string) error {
		controls, err := globalReference.Controls()
		if err != nil {
			return err
		}
		if len(controls) == 0 {
			fmt.Println("No controls imported. Run `attest reference import` first.")
			return nil
		}
		for _, c := range controls {
			fmt.Printf("%-10s %-30s %s\n", c.SCFID, c.Domain, c.Description)
		}
		return nil
	},
}

func init() {
	referenceImportCmd.Flags().StringVar(&flagControlsCSV, "controls", "", "path to the SCF controls CSV")
	referenceImportCmd.Flags().StringVar(&flagArtifactsCSV, "artifacts", "", "path to the ERL artifacts CSV")

	referenceCmd.AddCommand(referenceImportCmd)
	referenceCmd.AddCommand(referenceEmbedCmd)
	referenceCmd.AddCommand(referenceListCmd)
	rootCmd.AddCommand(referenceCmd)
}
