// ABOUTME: Entry point for the attest binary.
// ABOUTME: Loads .env if present and executes the root Cobra command.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
