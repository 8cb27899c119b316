// ABOUTME: Policy mapping command: map a policy document's clauses to SCF controls.
// ABOUTME: Subcommands of `attest policy`.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Map policy documents to SCF controls",
}

var flagPolicyID string

var policyMapCmd = &cobra.Command{
	Use:   "map <file>",
	Short: "Split a policy document into clauses and map each to controls",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mappings, err := globalMapper.MapPolicyFile(cmd.Context(), args[0], flagPolicyID)
		if err != nil {
			return err
		}

		for _, cm := range mappings {
			fmt.Printf("\nClause %d: %s\n", cm.Clause.Index, clip(cm.Clause.Text, 100))
			for _, m := range cm.Matches {
				fmt.Printf("  %-10s %-6s %.2f  %s\n", m.SCFID, m.Tier, m.Score, clip(m.Text, 70))
			}
		}
		fmt.Printf("\n%d clauses mapped and recorded\n", len(mappings))
		return nil
	},
}

var policySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the control catalog by free text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := args[0]
		for _, a := range args[1:] {
			query += " " + a
		}
		matches, err := globalMapper.SearchControls(cmd.Context(), query, 10)
		if err != nil {
			return err
		}
		for _, m := range matches {
			fmt.Printf("%-10s %-6s %.2f  %s\n", m.SCFID, m.Tier, m.Score, clip(m.Text, 80))
		}
		return nil
	},
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	policyMapCmd.Flags().StringVar(&flagPolicyID, "policy-id", "", "identifier recorded for this policy (default: file name)")

	policyCmd.AddCommand(policyMapCmd)
	policyCmd.AddCommand(policySearchCmd)
	rootCmd.AddCommand(policyCmd)
}
