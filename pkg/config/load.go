package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from a byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	config := Default()

	err := yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvironmentOverrides(config)

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func applyEnvironmentOverrides(config *Config) {
	// Postgres DSN override
	if dsn := os.Getenv("MEMCORE_POSTGRES_DSN"); dsn != "" {
		config.Store.Postgres.DSN = dsn
	}

	// SQLite path override
	if path := os.Getenv("MEMCORE_SQLITE_PATH"); path != "" {
		config.Store.SQLite.Path = path
	}

	// OpenAI API key override
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.Embedding.OpenAI.APIKey = apiKey
	}

	// Embedding model override
	if model := os.Getenv("MEMCORE_EMBEDDING_MODEL"); model != "" {
		config.Embedding.OpenAI.Model = model
	}
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	// Validate store configuration
	switch strings.ToLower(config.Store.Type) {
	case "postgres", "pgvector":
		if config.Store.Postgres.DSN == "" {
			return fmt.Errorf("postgres DSN is required for postgres store type")
		}
	case "sqlite":
		if config.Store.SQLite.Path == "" {
			return fmt.Errorf("database path is required for sqlite store type")
		}
	case "boltdb":
		if config.Store.Bolt.Path == "" {
			return fmt.Errorf("database path is required for boltdb store type")
		}
	case "chromem":
		// Empty path means an in-memory instance; nothing to validate
	case "mock", "":
		// Mock store needs no configuration
	default:
		return fmt.Errorf("unsupported store type: %s", config.Store.Type)
	}

	// Validate embedding configuration
	switch strings.ToLower(config.Embedding.Provider) {
	case "openai":
		if config.Embedding.OpenAI.Model == "" {
			config.Embedding.OpenAI.Model = DefaultEmbeddingModel
		}
		if config.Embedding.OpenAI.Dimensions <= 0 {
			config.Embedding.OpenAI.Dimensions = DefaultEmbeddingDimensions
		}
	case "mock", "":
		// Mock provider needs no configuration
	default:
		return fmt.Errorf("unsupported embedding provider: %s", config.Embedding.Provider)
	}

	// Validate retrieval configuration
	if config.Retrieval.TopK <= 0 {
		config.Retrieval.TopK = DefaultTopK
	}
	if config.Retrieval.ImportanceWeight == 0 {
		config.Retrieval.ImportanceWeight = DefaultImportanceWeight
	}

	return nil
}
