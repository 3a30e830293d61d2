package embedding

import (
	"context"
)

// Provider converts text into fixed-dimension float vectors. The provider
// is a black box to the rest of the core: text in, vector out. Failures
// are surfaced to the caller without retry; retry policy belongs to the
// surrounding application.
type Provider interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for the given texts, one per input
	// and in input order. Empty input yields empty output without a
	// provider call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the pinned embedding dimension for this provider.
	Dimensions() int
}
