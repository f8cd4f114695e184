// Package config provides configuration management for Recollect.
// It loads settings from environment variables with the RECOLLECT_ prefix
// and provides sensible defaults for all configuration options.
//
// An optional YAML file (RECOLLECT_CONFIG or the --config flag) is applied
// on top of the environment-derived base, so a checked-in config file can
// override individual fields without touching the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the Recollect engine.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	LLM      LLMConfig      `yaml:"llm"`
	Search   SearchConfig   `yaml:"search"`
	Patterns PatternsConfig `yaml:"patterns"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine string `yaml:"engine"`       // Storage engine type: sqlite, postgres (default: sqlite)
	DataPath      string `yaml:"data_path"`    // Path to the sqlite data directory (default: ./data)
	PostgresDSN   string `yaml:"postgres_dsn"` // Postgres connection string, required when engine is postgres
}

// LLMConfig contains LLM provider configuration.
type LLMConfig struct {
	LLMProvider          string  `yaml:"provider"`               // LLM provider: ollama, openai, anthropic (default: ollama)
	OllamaURL            string  `yaml:"ollama_url"`             // Ollama API URL (default: http://localhost:11434)
	OllamaModel          string  `yaml:"ollama_model"`           // Ollama model name for extraction (default: qwen2.5:7b)
	OllamaEmbeddingModel string  `yaml:"ollama_embedding_model"` // Ollama model name for embeddings (default: nomic-embed-text)
	OpenAIAPIKey         string  `yaml:"openai_api_key"`         // OpenAI API key
	OpenAIModel          string  `yaml:"openai_model"`           // OpenAI model name (default: gpt-4o-mini)
	OpenAIEmbeddingModel string  `yaml:"openai_embedding_model"` // OpenAI embedding model (default: text-embedding-3-small)
	AnthropicAPIKey      string  `yaml:"anthropic_api_key"`      // Anthropic API key
	AnthropicModel       string  `yaml:"anthropic_model"`        // Anthropic model name (default: claude-haiku-4-5-20251001)
	RequestsPerSecond    float64 `yaml:"requests_per_second"`    // Outbound provider request rate (default: 5)
}

// SearchConfig contains fused-search tuning. The four weights are applied to
// the semantic, entity, temporal, and keyword signals; they do not need to
// sum to one, but the defaults do.
type SearchConfig struct {
	SemanticWeight      float64 `yaml:"semantic_weight"`      // default: 0.45
	EntityWeight        float64 `yaml:"entity_weight"`        // default: 0.25
	TemporalWeight      float64 `yaml:"temporal_weight"`      // default: 0.15
	KeywordWeight       float64 `yaml:"keyword_weight"`       // default: 0.15
	SimilarityThreshold float64 `yaml:"similarity_threshold"` // drop candidates scoring below this (default: 0.1)
	MaxResults          int     `yaml:"max_results"`          // default: 10
}

// PatternsConfig contains learning-pattern consolidation tuning.
type PatternsConfig struct {
	OverlapPrefixLen int     `yaml:"overlap_prefix_len"` // rune prefix compared for pattern overlap (default: 20)
	MinConfidence    float64 `yaml:"min_confidence"`     // patterns below this are not applied (default: 0.3)
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: info)
	Format string `yaml:"format"` // text, json (default: text)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults, then applies the YAML overlay file named by RECOLLECT_CONFIG
// when one is set. All environment variables use the RECOLLECT_ prefix.
func LoadConfig() (*Config, error) {
	cfg := buildBaseConfig()

	if path := os.Getenv("RECOLLECT_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile loads configuration like LoadConfig but applies the given
// YAML file instead of consulting RECOLLECT_CONFIG.
func LoadConfigFile(path string) (*Config, error) {
	cfg := buildBaseConfig()

	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFile unmarshals a YAML file over the receiver. Fields absent from the
// file keep their current values.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for values that would only fail later
// and deep inside the engine.
func (c *Config) Validate() error {
	switch c.Storage.StorageEngine {
	case "sqlite":
		if c.Storage.DataPath == "" {
			return fmt.Errorf("config: storage.data_path is required for the sqlite engine")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("config: storage.postgres_dsn is required for the postgres engine")
		}
	default:
		return fmt.Errorf("config: unknown storage engine %q (must be sqlite or postgres)", c.Storage.StorageEngine)
	}

	switch c.LLM.LLMProvider {
	case "ollama":
	case "openai":
		if c.LLM.OpenAIAPIKey == "" {
			return fmt.Errorf("config: llm.openai_api_key is required for the openai provider")
		}
	case "anthropic":
		if c.LLM.AnthropicAPIKey == "" {
			return fmt.Errorf("config: llm.anthropic_api_key is required for the anthropic provider")
		}
	default:
		return fmt.Errorf("config: unknown llm provider %q (must be ollama, openai, or anthropic)", c.LLM.LLMProvider)
	}

	for name, w := range map[string]float64{
		"search.semantic_weight": c.Search.SemanticWeight,
		"search.entity_weight":   c.Search.EntityWeight,
		"search.temporal_weight": c.Search.TemporalWeight,
		"search.keyword_weight":  c.Search.KeywordWeight,
	} {
		if w < 0 {
			return fmt.Errorf("config: %s must not be negative", name)
		}
	}
	if c.Search.SimilarityThreshold < 0 || c.Search.SimilarityThreshold > 1 {
		return fmt.Errorf("config: search.similarity_threshold must be within [0, 1]")
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("config: search.max_results must be positive")
	}

	if c.Patterns.OverlapPrefixLen <= 0 {
		return fmt.Errorf("config: patterns.overlap_prefix_len must be positive")
	}
	if c.Patterns.MinConfidence < 0 || c.Patterns.MinConfidence > 1 {
		return fmt.Errorf("config: patterns.min_confidence must be within [0, 1]")
	}

	return nil
}

// buildBaseConfig constructs a Config with values from environment variables
// and defaults. This is the shared base for LoadConfig and LoadConfigFile.
func buildBaseConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			StorageEngine: getEnv("RECOLLECT_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("RECOLLECT_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("RECOLLECT_POSTGRES_DSN", ""),
		},
		LLM: LLMConfig{
			LLMProvider:          getEnv("RECOLLECT_LLM_PROVIDER", "ollama"),
			OllamaURL:            getEnv("RECOLLECT_OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:          getEnv("RECOLLECT_OLLAMA_MODEL", "qwen2.5:7b"),
			OllamaEmbeddingModel: getEnv("RECOLLECT_EMBEDDING_MODEL", "nomic-embed-text"),
			OpenAIAPIKey:         getEnv("RECOLLECT_OPENAI_API_KEY", ""),
			OpenAIModel:          getEnv("RECOLLECT_OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIEmbeddingModel: getEnv("RECOLLECT_OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			AnthropicAPIKey:      getEnv("RECOLLECT_ANTHROPIC_API_KEY", ""),
			AnthropicModel:       getEnv("RECOLLECT_ANTHROPIC_MODEL", "claude-haiku-4-5-20251001"),
			RequestsPerSecond:    getEnvFloat("RECOLLECT_LLM_RPS", 5),
		},
		Search: SearchConfig{
			SemanticWeight:      getEnvFloat("RECOLLECT_SEARCH_SEMANTIC_WEIGHT", 0.45),
			EntityWeight:        getEnvFloat("RECOLLECT_SEARCH_ENTITY_WEIGHT", 0.25),
			TemporalWeight:      getEnvFloat("RECOLLECT_SEARCH_TEMPORAL_WEIGHT", 0.15),
			KeywordWeight:       getEnvFloat("RECOLLECT_SEARCH_KEYWORD_WEIGHT", 0.15),
			SimilarityThreshold: getEnvFloat("RECOLLECT_SEARCH_THRESHOLD", 0.1),
			MaxResults:          getEnvInt("RECOLLECT_SEARCH_MAX_RESULTS", 10),
		},
		Patterns: PatternsConfig{
			OverlapPrefixLen: getEnvInt("RECOLLECT_PATTERN_OVERLAP_PREFIX_LEN", 20),
			MinConfidence:    getEnvFloat("RECOLLECT_PATTERN_MIN_CONFIDENCE", 0.3),
		},
		Logging: LoggingConfig{
			Level:  getEnv("RECOLLECT_LOG_LEVEL", "info"),
			Format: getEnv("RECOLLECT_LOG_FORMAT", "text"),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as a float,
// it returns the default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
