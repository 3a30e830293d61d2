package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personamind/memcore/pkg/errors"
)

func TestProvider_Embed(t *testing.T) {
	ctx := context.Background()

	t.Run("equal texts embed identically", func(t *testing.T) {
		provider := NewProvider()

		a, err := provider.Embed(ctx, "same text")
		require.NoError(t, err)
		b, err := provider.Embed(ctx, "same text")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("different texts embed differently", func(t *testing.T) {
		provider := NewProvider()

		a, err := provider.Embed(ctx, "first")
		require.NoError(t, err)
		b, err := provider.Embed(ctx, "second")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("canned embeddings take priority", func(t *testing.T) {
		canned := []float32{1, 0, 0}
		provider := NewProvider(WithEmbedding("special", canned))

		vec, err := provider.Embed(ctx, "special")
		require.NoError(t, err)
		assert.Equal(t, canned, vec)
	})

	t.Run("respects configured dimensions", func(t *testing.T) {
		provider := NewProvider(WithDimensions(16))
		assert.Equal(t, 16, provider.Dimensions())

		vec, err := provider.Embed(ctx, "any")
		require.NoError(t, err)
		assert.Len(t, vec, 16)
	})

	t.Run("configured error is wrapped as provider error", func(t *testing.T) {
		provider := NewProvider(WithError(assert.AnError))

		_, err := provider.Embed(ctx, "doomed")
		assert.ErrorIs(t, err, errors.ErrEmbeddingProvider)
	})
}

func TestProvider_EmbedBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("preserves input order", func(t *testing.T) {
		provider := NewProvider(
			WithEmbedding("a", []float32{1}),
			WithEmbedding("b", []float32{2}),
		)

		vectors, err := provider.EmbedBatch(ctx, []string{"b", "a"})
		require.NoError(t, err)
		require.Len(t, vectors, 2)
		assert.Equal(t, []float32{2}, vectors[0])
		assert.Equal(t, []float32{1}, vectors[1])
	})

	t.Run("empty input returns empty output", func(t *testing.T) {
		provider := NewProvider()

		vectors, err := provider.EmbedBatch(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, vectors)
	})

	t.Run("records call history", func(t *testing.T) {
		provider := NewProvider()

		_, err := provider.Embed(ctx, "tracked")
		require.NoError(t, err)

		history := provider.CallHistory()
		require.Len(t, history, 1)
		assert.Equal(t, []string{"tracked"}, history[0].Texts)
	})
}
