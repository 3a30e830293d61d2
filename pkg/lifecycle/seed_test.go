package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	embmock "github.com/personamind/memcore/pkg/embedding/adapters/mock"
	"github.com/personamind/memcore/pkg/memory/store"
)

func TestManager_EnsureSeedDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the seed document once", func(t *testing.T) {
		manager, s, _ := newTestManager(t)

		manager.EnsureSeedDocument(ctx)

		doc, err := s.GetDocumentByTitle(ctx, SeedDocumentTitle)
		require.NoError(t, err)
		assert.NotEmpty(t, doc.Content)
		assert.NotEmpty(t, doc.Embedding)
		assert.Equal(t, "seed", doc.Metadata["source"])
	})

	t.Run("repeated calls write nothing", func(t *testing.T) {
		manager, s, provider := newTestManager(t)

		manager.EnsureSeedDocument(ctx)
		first, err := s.GetDocumentByTitle(ctx, SeedDocumentTitle)
		require.NoError(t, err)
		callsAfterFirst := len(provider.CallHistory())

		manager.EnsureSeedDocument(ctx)
		second, err := s.GetDocumentByTitle(ctx, SeedDocumentTitle)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
		assert.Len(t, provider.CallHistory(), callsAfterFirst)

		docs, err := s.ListDocuments(ctx, store.DocumentFilter{})
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	})

	t.Run("drifted content is rewritten in place", func(t *testing.T) {
		manager, s, _ := newTestManager(t)

		manager.EnsureSeedDocument(ctx)
		doc, err := s.GetDocumentByTitle(ctx, SeedDocumentTitle)
		require.NoError(t, err)

		require.NoError(t, s.UpdateDocumentContent(ctx, doc.ID, "manually edited", nil, doc.Embedding))

		manager.EnsureSeedDocument(ctx)
		refreshed, err := s.GetDocumentByTitle(ctx, SeedDocumentTitle)
		require.NoError(t, err)
		assert.Equal(t, doc.ID, refreshed.ID)
		assert.NotEqual(t, "manually edited", refreshed.Content)
	})

	t.Run("embedding failure never blocks startup", func(t *testing.T) {
		manager, s, _ := newTestManager(t, embmock.WithError(assert.AnError))

		// Must not panic or surface an error
		manager.EnsureSeedDocument(ctx)

		docs, err := s.ListDocuments(ctx, store.DocumentFilter{})
		require.NoError(t, err)
		assert.Empty(t, docs)
	})
}
