package config

import (
	"github.com/personamind/memcore/pkg/log"
)

// Config represents the top-level configuration for the memcore library.
type Config struct {
	// Store configures the memory/document persistence backend
	Store StoreConfig `yaml:"store"`

	// Embedding configures the embedding provider
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Retrieval configures ranking behavior
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Scripting configures the Lua hook engine
	Scripting ScriptingConfig `yaml:"scripting"`

	// Logging configures the logging behavior
	Logging log.Config `yaml:"logging"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	// Type specifies the store backend ("postgres", "sqlite", "boltdb", "chromem", "mock")
	Type string `yaml:"type"`

	// Postgres configures PostgreSQL with the pgvector extension
	Postgres PostgresConfig `yaml:"postgres"`

	// SQLite configures SQLite storage
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Bolt configures BoltDB storage
	Bolt BoltConfig `yaml:"boltdb"`

	// Chromem configures the embedded chromem-go vector store
	Chromem ChromemConfig `yaml:"chromem"`
}

// PostgresConfig configures PostgreSQL with pgvector.
type PostgresConfig struct {
	// DSN is the PostgreSQL connection string
	DSN string `yaml:"dsn"`
}

// SQLiteConfig configures SQLite storage.
type SQLiteConfig struct {
	// Path is the SQLite database file path
	Path string `yaml:"path"`
}

// BoltConfig configures BoltDB storage.
type BoltConfig struct {
	// Path is the BoltDB database file path
	Path string `yaml:"path"`
}

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	// Path is the directory for persistent storage; empty means in-memory
	Path string `yaml:"path"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is the embedding provider ("openai", "mock")
	Provider string `yaml:"provider"`

	// OpenAI configures OpenAI embedding generation
	OpenAI OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig configures OpenAI embedding generation.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key
	APIKey string `yaml:"api_key"`

	// Model is the embedding model to use
	Model string `yaml:"model"`

	// Dimensions is the pinned embedding dimension shared by all callers
	Dimensions int `yaml:"dimensions"`
}

// RetrievalConfig configures ranking behavior.
type RetrievalConfig struct {
	// TopK is the default maximum number of ranked results
	TopK int `yaml:"top_k"`

	// ImportanceWeight scales importance into the final score.
	// Similarity stays dominant; importance acts as a mild boost.
	ImportanceWeight float64 `yaml:"importance_weight"`
}

// ScriptingConfig configures the Lua hook engine.
type ScriptingConfig struct {
	// Paths is a list of directories containing Lua hook scripts
	Paths []string `yaml:"paths"`
}

// Defaults for the embedding and retrieval sections.
const (
	DefaultEmbeddingModel      = "text-embedding-3-small"
	DefaultEmbeddingDimensions = 1536
	DefaultTopK                = 5
	DefaultImportanceWeight    = 0.01
)

// Default returns a configuration populated with defaults.
func Default() *Config {
	return &Config{
		Store: StoreConfig{Type: "mock"},
		Embedding: EmbeddingConfig{
			Provider: "mock",
			OpenAI: OpenAIConfig{
				Model:      DefaultEmbeddingModel,
				Dimensions: DefaultEmbeddingDimensions,
			},
		},
		Retrieval: RetrievalConfig{
			TopK:             DefaultTopK,
			ImportanceWeight: DefaultImportanceWeight,
		},
		Logging: log.DefaultConfig(),
	}
}
