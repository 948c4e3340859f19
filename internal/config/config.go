package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
}

type ExtractionPrompts struct {
	Entities   string `toml:"entities"`
	Claims     string `toml:"claims"`
	Hypotheses string `toml:"hypotheses"`
}

type InferenceConfig struct {
	Prompt              string  `toml:"prompt"`
	MinSupportingClaims int     `toml:"min_supporting_claims"`
	MaxHypotheses       int     `toml:"max_hypotheses"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	Concurrency         int     `toml:"concurrency"`
	MaxAttempts         int     `toml:"max_attempts"`
	RequestsPerSecond   float64 `toml:"requests_per_second"`
}

type LinkingConfig struct {
	SimilarityThreshold float64 `toml:"similarity_threshold"`
}

type StorageConfig struct {
	Dir string `toml:"dir"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type Config struct {
	LLM        LLMConfig         `toml:"llm"`
	Extraction ExtractionPrompts `toml:"extraction"`
	Inference  InferenceConfig   `toml:"inference"`
	Linking    LinkingConfig     `toml:"linking"`
	Storage    StorageConfig     `toml:"storage"`
	Server     ServerConfig      `toml:"server"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config usable without a file on disk.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Inference.MinSupportingClaims <= 0 {
		c.Inference.MinSupportingClaims = 2
	}
	if c.Inference.MaxHypotheses <= 0 {
		c.Inference.MaxHypotheses = 10
	}
	if c.Inference.SimilarityThreshold <= 0 {
		c.Inference.SimilarityThreshold = 0.8
	}
	if c.Inference.Concurrency <= 0 {
		c.Inference.Concurrency = 4
	}
	if c.Inference.MaxAttempts <= 0 {
		c.Inference.MaxAttempts = 3
	}
	if c.Inference.RequestsPerSecond <= 0 {
		c.Inference.RequestsPerSecond = 2
	}
	if c.Linking.SimilarityThreshold <= 0 {
		c.Linking.SimilarityThreshold = 0.75
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "data/storage"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
}
