// Package config loads and validates og's on-disk configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config is og's complete configuration.
type Config struct {
	Version     int               `yaml:"version"`
	Paths       PathsConfig       `yaml:"paths"`
	Index       IndexConfig       `yaml:"index"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Performance PerformanceConfig `yaml:"performance"`
}

// PathsConfig configures which paths to include and exclude from the walk,
// on top of the ignore-file rules in internal/walker.
type PathsConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// IndexConfig configures extraction and retrieval tuning. The retriever
// (internal/semindex) merges lexical and semantic candidates by max
// distance, not a weighted sum, so there is no tunable fusion weight here.
type IndexConfig struct {
	ChunkSize      int `yaml:"chunk_size"`
	ChunkOverlap   int `yaml:"chunk_overlap"`
	MinChunkSize   int `yaml:"min_chunk_size"`
	MaxResults     int `yaml:"max_results"`
	ScopeOverfetch int `yaml:"scope_overfetch"`
}

// EmbeddingConfig configures the embedder backend.
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
}

// PerformanceConfig configures resource usage.
type PerformanceConfig struct {
	MaxFiles     int   `yaml:"max_files"`
	IndexWorkers int   `yaml:"index_workers"`
	MaxFileSize  int64 `yaml:"max_file_size"`
}

// defaultExcludePatterns are always excluded, on top of gitignore rules.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/*.min.js",
	"**/*.min.css",
}

// New returns a Config with sensible defaults.
func New() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Include: []string{},
			Exclude: defaultExcludePatterns,
		},
		Index: IndexConfig{
			ChunkSize:      400,
			ChunkOverlap:   50,
			MinChunkSize:   30,
			MaxResults:     20,
			ScopeOverfetch: 5,
		},
		Embedding: EmbeddingConfig{
			Model:      "lateon-code-edge-v1",
			Dimensions: 48,
			BatchSize:  64,
		},
		Performance: PerformanceConfig{
			MaxFiles:     100000,
			IndexWorkers: runtime.NumCPU(),
			MaxFileSize:  1_000_000,
		},
	}
}

// Load reads config from path, falling back to defaults for any field
// absent from the file. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := New()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed. A backup
// of any existing file is kept at path+".bak".
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if existing, err := os.ReadFile(path); err == nil {
		_ = os.WriteFile(path+".bak", existing, 0o644)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks internal consistency of the configuration.
func (c *Config) Validate() error {
	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("index.chunk_size must be positive, got %d", c.Index.ChunkSize)
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf("index.chunk_overlap must be in [0, chunk_size), got %d", c.Index.ChunkOverlap)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Performance.MaxFileSize <= 0 {
		return fmt.Errorf("performance.max_file_size must be positive, got %d", c.Performance.MaxFileSize)
	}
	return nil
}
