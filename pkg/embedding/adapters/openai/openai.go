package openai

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/personamind/memcore/pkg/errors"
	"github.com/personamind/memcore/pkg/log"
)

// Config holds the configuration for the OpenAI embedding adapter.
type Config struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the embedding model, e.g. "text-embedding-3-small".
	Model string
	// Dimensions is the pinned embedding dimension.
	Dimensions int
	// BaseURL is the base URL for the OpenAI API (for testing).
	BaseURL string
}

// Adapter implements the embedding.Provider interface using the OpenAI API.
type Adapter struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewAdapter creates a new OpenAI embedding adapter. A missing API key is
// a configuration error and fails here rather than on first use.
func NewAdapter(config Config) (*Adapter, error) {
	if config.APIKey == "" {
		return nil, errors.ErrNoAPIKey
	}

	if config.Model == "" {
		config.Model = "text-embedding-3-small"
	}
	if config.Dimensions <= 0 {
		config.Dimensions = 1536
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Adapter{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      config.Model,
		dimensions: config.Dimensions,
	}, nil
}

// Dimensions returns the pinned embedding dimension.
func (a *Adapter) Dimensions() int {
	return a.dimensions
}

// Embed generates an embedding for a single text.
func (a *Adapter) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for the given texts using the OpenAI API.
func (a *Adapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	log.DebugContext(ctx, "Generating embeddings", "count", len(texts), "model", a.model)

	request := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(a.model),
	}

	response, err := a.client.CreateEmbeddings(ctx, request)
	if err != nil {
		log.ErrorContext(ctx, "Failed to generate embeddings", "error", err, "model", a.model)
		return nil, errors.Wrap(errors.ErrEmbeddingProvider, "%v", err)
	}

	embeddings := make([][]float32, len(response.Data))
	for i, data := range response.Data {
		embeddings[i] = data.Embedding
	}

	log.DebugContext(ctx, "Successfully generated embeddings",
		"count", len(embeddings),
		"model", a.model)

	return embeddings, nil
}
