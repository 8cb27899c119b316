// ABOUTME: Root Cobra command and global wiring for the attest CLI.
// ABOUTME: Sets up lifecycle hooks for config loading, stores, embedder, and logging.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/2389-research/attest/internal/config"
	"github.com/2389-research/attest/internal/embeddings"
	"github.com/2389-research/attest/internal/engine"
	"github.com/2389-research/attest/internal/extract"
	"github.com/2389-research/attest/internal/index"
	"github.com/2389-research/attest/internal/models"
	"github.com/2389-research/attest/internal/storage"
)

var (
	globalConfig    *config.Config
	globalLogger    *zap.Logger
	globalDataDir   string
	globalReference *storage.ReferenceStore
	globalEvidence  *storage.EvidenceStore
	globalMappings  *storage.MappingStore
	globalFiles     *storage.FileStore
	globalEmbedder  embeddings.Embedder
	globalValidator *engine.Validator
	globalMapper    *engine.Mapper

	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "attest",
	Short: "Compliance evidence validation and policy mapping",
	Long: `attest maps policy text to Secure Controls Framework (SCF) controls
and validates evidence documents against Evidence Request List (ERL)
artifacts using embedding similarity.

Reference catalogs, mapping results, and evidence verdicts live in
parquet datasets under your data directory. All records are append-only.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "setup" {
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		globalConfig = cfg

		globalLogger, err = newLogger(flagVerbose)
		if err != nil {
			return fmt.Errorf("failed to init logging: %w", err)
		}

		dataDir, err := cfg.GetDataDir()
		if err != nil {
			return fmt.Errorf("failed to resolve data dir: %w", err)
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
		globalDataDir = dataDir

		globalReference = storage.NewReferenceStore(dataDir)
		globalEvidence = storage.NewEvidenceStore(dataDir)
		globalMappings = storage.NewMappingStore(dataDir)
		globalFiles = storage.NewFileStore(dataDir)

		globalEmbedder, err = newEmbedder(cfg)
		if err != nil {
			return err
		}

		extractor := extract.NewExtractor(newOCREngine(), globalLogger)
		buildIndex := newIndexBuilder(cfg)
		cutoffs := models.Cutoffs{High: cfg.Thresholds.High, Medium: cfg.Thresholds.Medium}

		globalValidator = engine.NewValidator(engine.ValidatorConfig{
			Extractor:  extractor,
			Embedder:   globalEmbedder,
			Reference:  globalReference,
			Registry:   globalEvidence,
			Files:      globalFiles,
			BuildIndex: buildIndex,
			DataDir:    dataDir,
			Threshold:  cfg.Thresholds.Valid,
			TopK:       cfg.Thresholds.TopK,
			Logger:     globalLogger,
		})
		globalMapper = engine.NewMapper(engine.MapperConfig{
			Extractor:  extractor,
			Embedder:   globalEmbedder,
			Reference:  globalReference,
			Registry:   globalMappings,
			BuildIndex: buildIndex,
			DataDir:    dataDir,
			Cutoffs:    cutoffs,
			Threshold:  cfg.Thresholds.Mapping,
			TopK:       cfg.Thresholds.TopK,
			Logger:     globalLogger,
		})

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if globalLogger != nil {
			_ = globalLogger.Sync()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// newLogger builds the CLI logger. Errors always reach the console; debug
// detail is opt-in.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

// newEmbedder selects the configured embedding provider.
func newEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.Embedder.Type {
	case "", "local":
		return embeddings.NewLocalEmbedder(), nil
	case "openai":
		o := cfg.Embedder.OpenAI
		if o == nil {
			o = &config.OpenAIConfig{}
		}
		client, err := embeddings.NewOpenAIClient(embeddings.OpenAIConfig{
			BaseURL:   o.BaseURL,
			APIKeyEnv: o.APIKeyEnv,
			Model:     o.Model,
			Timeout:   time.Duration(o.TimeoutSecs) * time.Second,
			BatchSize: o.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init remote embedder: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Embedder.Type)
	}
}

// newIndexBuilder selects the configured index backend.
func newIndexBuilder(cfg *config.Config) engine.IndexBuilder {
	if cfg.Index.Type != "qdrant" || cfg.Index.Qdrant == nil {
		return engine.MemoryIndexBuilder
	}
	q := cfg.Index.Qdrant
	return func(vectors [][]float64) (index.Index, error) {
		client := index.NewQdrant(index.QdrantConfig{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: q.Collection,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		})
		if err := client.Load(vectors); err != nil {
			return nil, err
		}
		return client, nil
	}
}

// newOCREngine returns the tesseract engine when the binary is on PATH,
// nil otherwise. Image evidence needs it; PDF and DOCX do not.
func newOCREngine() extract.OCREngine {
	engine := extract.NewTesseractEngine("")
	if !engine.Available() {
		return nil
	}
	return engine
}
