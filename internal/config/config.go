// ABOUTME: Configuration management for attest with YAML config loading.
// ABOUTME: Handles embedder, index, threshold, and support settings plus ~ expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config stores attest configuration loaded from ~/.config/attest/config.yaml.
type Config struct {
	Data       DataConfig      `yaml:"data"`
	Embedder   EmbedderConfig  `yaml:"embedder"`
	Index      IndexConfig     `yaml:"index"`
	Thresholds ThresholdConfig `yaml:"thresholds"`
	Support    SupportConfig   `yaml:"support"`
}

// DataConfig holds optional path overrides for on-disk datasets.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Type   string        `yaml:"type"` // "local" or "openai"
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
}

// OpenAIConfig holds settings for the OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// IndexConfig selects and configures the similarity index implementation.
type IndexConfig struct {
	Type   string        `yaml:"type"` // "memory" or "qdrant"
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant index.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ThresholdConfig holds the fixed score cutoffs for classification.
// The medium mapping cutoff is an explicit setting, never derived.
type ThresholdConfig struct {
	Valid   float64 `yaml:"valid"`
	Mapping float64 `yaml:"mapping"`
	High    float64 `yaml:"high"`
	Medium  float64 `yaml:"medium"`
	TopK    int     `yaml:"top_k"`
}

// SupportConfig holds the remote key-value store settings for contact submissions.
type SupportConfig struct {
	DatabaseURL string `yaml:"database_url"`
	APIKey      string `yaml:"api_key"`
}

// HasRemote returns true if remote support submission is configured.
func (c *Config) HasRemote() bool {
	return c.Support.DatabaseURL != ""
}

// GetDataDir returns the dataset root, defaulting to XDG data home.
func (c *Config) GetDataDir() (string, error) {
	if c.Data.Dir != "" {
		return ExpandPath(c.Data.Dir)
	}
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "attest"), nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "attest", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// Load reads config from disk. Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &Config{}
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func applyDefaults(cfg *Config) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "local"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
		if o.BatchSize == 0 {
			o.BatchSize = 32
		}
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "memory"
	}
	if cfg.Index.Type == "qdrant" && cfg.Index.Qdrant != nil {
		if cfg.Index.Qdrant.Collection == "" {
			cfg.Index.Qdrant.Collection = "attest"
		}
		if cfg.Index.Qdrant.TimeoutSecs == 0 {
			cfg.Index.Qdrant.TimeoutSecs = 15
		}
	}
	if cfg.Thresholds.Valid == 0 {
		cfg.Thresholds.Valid = 0.6
	}
	if cfg.Thresholds.Mapping == 0 {
		cfg.Thresholds.Mapping = 0.5
	}
	if cfg.Thresholds.High == 0 {
		cfg.Thresholds.High = 0.65
	}
	if cfg.Thresholds.Medium == 0 {
		cfg.Thresholds.Medium = 0.55
	}
	if cfg.Thresholds.TopK == 0 {
		cfg.Thresholds.TopK = 10
	}
}
