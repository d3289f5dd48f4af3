package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/raglabs/docsearch-mcp/internal/chunker"
	"github.com/raglabs/docsearch-mcp/internal/embedder"
	"github.com/raglabs/docsearch-mcp/internal/pipeline"
	"github.com/raglabs/docsearch-mcp/internal/rerank"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "docsearch.yaml"

// Chunking configures the splitter.
type Chunking struct {
	Size       int `yaml:"size"`
	Overlap    int `yaml:"overlap"`
	BatchLines int `yaml:"batch_lines"`
}

// Embedding configures the embedding provider.
type Embedding struct {
	Provider  string `yaml:"provider"`
	Host      string `yaml:"host"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	CacheSize int    `yaml:"cache_size"`
}

// Rerank configures the relevance judge.
type Rerank struct {
	Provider  string `yaml:"provider"`
	Host      string `yaml:"host"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// Storage configures on-disk paths.
type Storage struct {
	IndexPath     string `yaml:"index_path"`
	ThresholdPath string `yaml:"threshold_path"`
	CachePath     string `yaml:"cache_path"`
}

// Config is the full application configuration.
type Config struct {
	Chunking  Chunking  `yaml:"chunking"`
	Embedding Embedding `yaml:"embedding"`
	Rerank    Rerank    `yaml:"rerank"`
	Storage   Storage   `yaml:"storage"`
	LogLevel  string    `yaml:"log_level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Chunking.Size <= 0 {
		c.Chunking.Size = chunker.DefaultChunkSize
	}
	if c.Chunking.Overlap <= 0 {
		c.Chunking.Overlap = chunker.DefaultOverlap
	}
	if c.Chunking.BatchLines <= 0 {
		c.Chunking.BatchLines = pipeline.DefaultBatchLines
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = embedder.ProviderOllama
	}
	if c.Embedding.APIKeyEnv == "" {
		c.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Rerank.Provider == "" {
		c.Rerank.Provider = rerank.JudgeLocal
	}
	if c.Rerank.APIKeyEnv == "" {
		c.Rerank.APIKeyEnv = "HF_TOKEN"
	}
	if c.Storage.IndexPath == "" {
		c.Storage.IndexPath = "data/index.json"
	}
	if c.Storage.ThresholdPath == "" {
		c.Storage.ThresholdPath = "data/threshold.json"
	}
	if c.Storage.CachePath == "" {
		c.Storage.CachePath = "data/embedcache.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Load reads the configuration at path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// EmbedderConfig maps the embedding section onto the embedder factory.
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:  c.Embedding.Provider,
		Host:      c.Embedding.Host,
		BaseURL:   c.Embedding.BaseURL,
		APIKey:    os.Getenv(c.Embedding.APIKeyEnv),
		Model:     c.Embedding.Model,
		CacheSize: c.Embedding.CacheSize,
	}
}

// JudgeConfig maps the rerank section onto the judge factory. provider
// overrides the configured judge when non-empty.
func (c *Config) JudgeConfig(provider string) rerank.Config {
	if provider == "" {
		provider = c.Rerank.Provider
	}
	return rerank.Config{
		Provider: provider,
		Host:     c.Rerank.Host,
		BaseURL:  c.Rerank.BaseURL,
		APIKey:   os.Getenv(c.Rerank.APIKeyEnv),
		Model:    c.Rerank.Model,
	}
}
