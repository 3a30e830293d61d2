package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personamind/memcore/pkg/errors"
	"github.com/personamind/memcore/pkg/identity"
	"github.com/personamind/memcore/pkg/memory"
	"github.com/personamind/memcore/pkg/memory/store"
)

func TestMockStore_Memories(t *testing.T) {
	ctx := context.Background()
	s := NewMockStore()

	t.Run("put assigns id and timestamps", func(t *testing.T) {
		id, err := s.PutMemory(ctx, memory.Entry{
			Source:  memory.SourceChat,
			Content: "first fact",
			Active:  true,
		})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		entry, err := s.GetMemory(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "first fact", entry.Content)
		assert.False(t, entry.CreatedAt.IsZero())
		assert.False(t, entry.UpdatedAt.IsZero())
	})

	t.Run("get missing returns not found", func(t *testing.T) {
		_, err := s.GetMemory(ctx, "missing")
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("update content touches only named fields", func(t *testing.T) {
		id, err := s.PutMemory(ctx, memory.Entry{
			Source:    memory.SourceManual,
			Title:     "keep me",
			Content:   "before",
			Active:    true,
			Embedding: []float32{1, 2},
		})
		require.NoError(t, err)

		require.NoError(t, s.UpdateMemoryContent(ctx, id, "after", []float32{3, 4}, 5))

		entry, err := s.GetMemory(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "after", entry.Content)
		assert.Equal(t, []float32{3, 4}, entry.Embedding)
		assert.Equal(t, 5, entry.Importance)
		assert.Equal(t, "keep me", entry.Title)
		assert.True(t, entry.Active)
	})

	t.Run("set active flips the flag", func(t *testing.T) {
		id, err := s.PutMemory(ctx, memory.Entry{Source: memory.SourceChat, Content: "flip", Active: true})
		require.NoError(t, err)

		require.NoError(t, s.SetMemoryActive(ctx, id, false))
		entry, err := s.GetMemory(ctx, id)
		require.NoError(t, err)
		assert.False(t, entry.Active)
	})

	t.Run("delete removes the record", func(t *testing.T) {
		id, err := s.PutMemory(ctx, memory.Entry{Source: memory.SourceChat, Content: "gone", Active: true})
		require.NoError(t, err)

		require.NoError(t, s.DeleteMemory(ctx, id))
		_, err = s.GetMemory(ctx, id)
		assert.ErrorIs(t, err, errors.ErrNotFound)
		assert.ErrorIs(t, s.DeleteMemory(ctx, id), errors.ErrNotFound)
	})
}

func TestMockStore_ListMemories(t *testing.T) {
	ctx := context.Background()
	s := NewMockStore()

	alice := identity.UserID("alice")
	seed := []memory.Entry{
		{Source: memory.SourceChat, Content: "active with vector", Active: true, Embedding: []float32{1}},
		{Source: memory.SourceChat, Content: "inactive", Active: false, Embedding: []float32{1}},
		{Source: memory.SourceChat, Content: "no vector", Active: true},
		{Source: memory.SourceChat, Content: "owned", OwnerID: alice, Active: true, Embedding: []float32{1}},
		{Source: memory.SourceChat, Content: "in session", SessionID: "s1", Active: true, Embedding: []float32{1}},
	}
	for _, e := range seed {
		_, err := s.PutMemory(ctx, e)
		require.NoError(t, err)
	}

	t.Run("no filter lists everything", func(t *testing.T) {
		entries, err := s.ListMemories(ctx, store.MemoryFilter{})
		require.NoError(t, err)
		assert.Len(t, entries, 5)
	})

	t.Run("active only", func(t *testing.T) {
		entries, err := s.ListMemories(ctx, store.MemoryFilter{ActiveOnly: true})
		require.NoError(t, err)
		assert.Len(t, entries, 4)
	})

	t.Run("require embedding", func(t *testing.T) {
		entries, err := s.ListMemories(ctx, store.MemoryFilter{ActiveOnly: true, RequireEmbedding: true})
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})

	t.Run("owner filter", func(t *testing.T) {
		entries, err := s.ListMemories(ctx, store.MemoryFilter{OwnerID: &alice})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "owned", entries[0].Content)
	})

	t.Run("session filter", func(t *testing.T) {
		sid := "s1"
		entries, err := s.ListMemories(ctx, store.MemoryFilter{SessionID: &sid})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "in session", entries[0].Content)
	})
}

func TestMockStore_Documents(t *testing.T) {
	ctx := context.Background()
	s := NewMockStore()

	t.Run("put and get by title", func(t *testing.T) {
		id, err := s.PutDocument(ctx, memory.Document{
			Title:    "Reading list",
			Content:  "books to read",
			Metadata: map[string]string{"category": "notes"},
		})
		require.NoError(t, err)

		doc, err := s.GetDocument(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Reading list", doc.Title)

		byTitle, err := s.GetDocumentByTitle(ctx, "Reading list")
		require.NoError(t, err)
		assert.Equal(t, id, byTitle.ID)

		_, err = s.GetDocumentByTitle(ctx, "nope")
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("content update replaces content metadata and vector", func(t *testing.T) {
		id, err := s.PutDocument(ctx, memory.Document{
			Title:     "Mutable",
			Content:   "v1",
			Embedding: []float32{1},
		})
		require.NoError(t, err)

		meta := map[string]string{"rev": "2"}
		require.NoError(t, s.UpdateDocumentContent(ctx, id, "v2", meta, []float32{2}))

		doc, err := s.GetDocument(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "v2", doc.Content)
		assert.Equal(t, meta, doc.Metadata)
		assert.Equal(t, []float32{2}, doc.Embedding)
	})

	t.Run("embedding update leaves content alone", func(t *testing.T) {
		id, err := s.PutDocument(ctx, memory.Document{Title: "Stable", Content: "unchanged"})
		require.NoError(t, err)

		require.NoError(t, s.UpdateDocumentEmbedding(ctx, id, []float32{9}))

		doc, err := s.GetDocument(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "unchanged", doc.Content)
		assert.Equal(t, []float32{9}, doc.Embedding)
	})

	t.Run("delete removes the record", func(t *testing.T) {
		id, err := s.PutDocument(ctx, memory.Document{Title: "Temp", Content: "bye"})
		require.NoError(t, err)
		require.NoError(t, s.DeleteDocument(ctx, id))
		_, err = s.GetDocument(ctx, id)
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("list filters by owner and embedding", func(t *testing.T) {
		bob := identity.UserID("bob")
		_, err := s.PutDocument(ctx, memory.Document{Title: "Bob doc", Content: "x", OwnerID: bob, Embedding: []float32{1}})
		require.NoError(t, err)

		docs, err := s.ListDocuments(ctx, store.DocumentFilter{OwnerID: &bob})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "Bob doc", docs[0].Title)

		withVectors, err := s.ListDocuments(ctx, store.DocumentFilter{RequireEmbedding: true})
		require.NoError(t, err)
		for _, d := range withVectors {
			assert.NotEmpty(t, d.Embedding)
		}
	})
}

func TestMockStore_Sessions(t *testing.T) {
	ctx := context.Background()
	s := NewMockStore()

	sid, err := s.PutSession(ctx, memory.Session{Title: "chat about plans"})
	require.NoError(t, err)
	require.NotEmpty(t, sid)

	memID, err := s.PutMemory(ctx, memory.Entry{
		Source:    memory.SourceChat,
		SessionID: sid,
		Content:   "session bound",
		Active:    true,
	})
	require.NoError(t, err)

	t.Run("deleting the session clears references", func(t *testing.T) {
		require.NoError(t, s.DeleteSession(ctx, sid))

		entry, err := s.GetMemory(ctx, memID)
		require.NoError(t, err)
		assert.Empty(t, entry.SessionID)
	})

	t.Run("deleting twice is not found", func(t *testing.T) {
		assert.ErrorIs(t, s.DeleteSession(ctx, sid), errors.ErrNotFound)
	})
}
