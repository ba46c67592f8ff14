// Package config provides configuration loading and structs for the semlight server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Highlight HighlightConfig `yaml:"highlight"`
	Topics    TopicsConfig    `yaml:"topics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the topic catalog.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	TopicsPath   string `yaml:"topics_path"`
}

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	Backend         string `yaml:"backend"`
	ModelName       string `yaml:"model_name"`
	ModelPath       string `yaml:"model_path"`
	TokenizerPath   string `yaml:"tokenizer_path"`
	ONNXRuntimePath string `yaml:"onnxruntime_lib_path"`
	OutputName      string `yaml:"output_name"`
	Dimensions      int    `yaml:"dimensions"`
	MaxTokens       int    `yaml:"max_tokens"`
	CacheSize       int    `yaml:"cache_size"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	APIKeyEnv       string `yaml:"api_key_env"`
}

// ScoringConfig bounds scoring requests.
type ScoringConfig struct {
	MaxPassages int `yaml:"max_passages"`
}

// DefaultHighlightThreshold is the minimum score a passage needs to be marked.
const DefaultHighlightThreshold = 0.3

// HighlightConfig controls which page passages are marked. Threshold is a
// pointer so an explicit 0 is kept.
type HighlightConfig struct {
	Threshold        *float64 `yaml:"threshold"`
	MinPassageLength int      `yaml:"min_passage_length"`
	ClassName        string   `yaml:"class_name"`
}

// ThresholdOrDefault returns the configured threshold, or DefaultHighlightThreshold when unset.
func (h *HighlightConfig) ThresholdOrDefault() float64 {
	if h.Threshold != nil {
		return *h.Threshold
	}
	return DefaultHighlightThreshold
}

// TopicsConfig controls topic-name search and keyword generation.
type TopicsConfig struct {
	FuzzyThreshold   float64 `yaml:"fuzzy_threshold"`
	SearchLimit      int     `yaml:"search_limit"`
	KeywordsPerTopic int     `yaml:"keywords_per_topic"`
	Watch            *bool   `yaml:"watch"`
}

// WatchOrDefault returns whether to watch the topics file; defaults to true when unset.
func (t *TopicsConfig) WatchOrDefault() bool {
	if t.Watch != nil {
		return *t.Watch
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.TopicsPath = expandPath(cfg.Storage.TopicsPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Embedding.TokenizerPath = expandPath(cfg.Embedding.TokenizerPath, configDir)
	cfg.Embedding.ONNXRuntimePath = expandPath(cfg.Embedding.ONNXRuntimePath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// LoadEnv loads environment variables from the nearest .env file, searching
// up from the working directory. A missing file is not an error, and
// variables already set in the environment win.
func LoadEnv() error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return godotenv.Load(envPath)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}

// APIKey returns the value of the configured API key variable.
func (e *EmbeddingConfig) APIKey() string {
	if e.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(e.APIKeyEnv)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
