// Package config loads server configuration from a YAML file with
// environment-variable overrides. Secrets (API keys) come from the
// environment only and never live in the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable overrides.
const (
	EnvDBPath            = "VULNCONTEXT_DB_PATH"
	EnvEmbeddingProvider = "VULNCONTEXT_EMBEDDING_PROVIDER"
	EnvOpenAIKey         = "OPENAI_API_KEY"
	EnvOllamaURL         = "OLLAMA_BASE_URL"
	EnvLogLevel          = "VULNCONTEXT_LOG_LEVEL"
	EnvSearchLimit       = "VULNCONTEXT_SEARCH_LIMIT"
)

// Config is the full server configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	LogLevel  string          `yaml:"log_level"`
}

// DatabaseConfig locates the SQLite index.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EmbeddingConfig selects and tunes the embedding backend.
type EmbeddingConfig struct {
	// Provider pins a backend ("openai" or "ollama"); empty means
	// automatic selection in priority order.
	Provider    string `yaml:"provider"`
	OllamaURL   string `yaml:"ollama_url"`
	OllamaModel string `yaml:"ollama_model"`
	CacheSize   int    `yaml:"cache_size"`
}

// SearchConfig tunes retrieval behavior.
type SearchConfig struct {
	DefaultLimit int           `yaml:"default_limit"`
	VectorWeight float64       `yaml:"vector_weight"`
	BM25Weight   float64       `yaml:"bm25_weight"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: defaultDBPath(),
		},
		Embedding: EmbeddingConfig{
			CacheSize: 10000,
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			VectorWeight: 0.7,
			BM25Weight:   0.3,
			CacheTTL:     5 * time.Minute,
		},
		LogLevel: "info",
	}
}

// Load reads configuration from path (optional; empty path means
// defaults) and applies environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvEmbeddingProvider); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv(EnvOllamaURL); v != "" {
		c.Embedding.OllamaURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvSearchLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.DefaultLimit = n
		}
	}
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Search.VectorWeight < 0 || c.Search.BM25Weight < 0 {
		return fmt.Errorf("fusion weights cannot be negative")
	}
	if c.Search.VectorWeight == 0 && c.Search.BM25Weight == 0 {
		return fmt.Errorf("at least one fusion weight must be positive")
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("default search limit must be positive")
	}
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "vulncontext.db"
	}
	return filepath.Join(home, ".vulncontext", "vulncontext.db")
}
