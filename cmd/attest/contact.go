// ABOUTME: Support contact command: submit a query to the remote store.
// ABOUTME: Falls back to a local JSON log when the remote is unreachable.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389-research/attest/internal/models"
	"github.com/2389-research/attest/internal/storage"
)

var (
	flagContactName    string
	flagContactAddress string
	flagContactMessage string
)

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Send a support query",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagContactMessage == "" {
			return fmt.Errorf("--message is required")
		}

		query := models.SupportQuery{
			Name:      flagContactName,
			Contact:   flagContactAddress,
			Message:   flagContactMessage,
			Timestamp: time.Now().UTC(),
		}

		client := storage.NewSupportClient(globalConfig.Support.DatabaseURL, globalConfig.Support.APIKey)
		outcome, err := client.SubmitWithFallback(globalDataDir, query)
		if err != nil {
			return err
		}
		switch {
		case outcome.Remote:
			fmt.Println("Support query sent.")
		case !globalConfig.HasRemote():
			fmt.Printf("No remote support store configured; query saved to %s\n", outcome.FallbackPath)
		default:
			fmt.Printf("Support store unreachable; query saved to %s\n", outcome.FallbackPath)
		}
		return nil
	},
}

func init() {
	contactCmd.Flags().StringVar(&flagContactName, "name", "", "your name")
	contactCmd.Flags().StringVar(&flagContactAddress, "contact", "", "email or other way to reach you")
	contactCmd.Flags().StringVarP(&flagContactMessage, "message", "m", "", "the support message")

	rootCmd.AddCommand(contactCmd)
}
