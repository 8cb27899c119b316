// ABOUTME: Cobra command for interactive embedder configuration.
// ABOUTME: Launches a bubbletea TUI wizard to collect and probe embedding settings.
package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/attest/internal/config"
	"github.com/2389-research/attest/internal/embeddings"
	"github.com/2389-research/attest/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure the remote embedding provider",
	Long:  "Interactive wizard to configure an OpenAI-compatible embeddings endpoint.",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// checkEmbedder probes the endpoint by embedding a short test string.
func checkEmbedder(ctx context.Context, baseURL, model, keyEnv string) error {
	client, err := embeddings.NewOpenAIClient(embeddings.OpenAIConfig{
		BaseURL:   baseURL,
		APIKeyEnv: keyEnv,
		Model:     model,
		Timeout:   15 * time.Second,
	})
	if err != nil {
		return err
	}
	_, err = client.Embed(ctx, "connectivity check")
	return err
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var baseURL, model, keyEnv string
	if cfg.Embedder.OpenAI != nil {
		baseURL = cfg.Embedder.OpenAI.BaseURL
		model = cfg.Embedder.OpenAI.Model
		keyEnv = cfg.Embedder.OpenAI.APIKeyEnv
	}

	m := tui.NewSetupModel(checkEmbedder, baseURL, model, keyEnv)

	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Println("Setup cancelled.")
		return nil
	}

	baseURL, model, keyEnv = final.Result()
	cfg.Embedder.Type = "openai"
	cfg.Embedder.OpenAI = &config.OpenAIConfig{
		BaseURL:   baseURL,
		Model:     model,
		APIKeyEnv: keyEnv,
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		fmt.Println("Config saved successfully.")
	} else {
		fmt.Printf("Config saved to %s\n", configPath)
	}
	return nil
}
