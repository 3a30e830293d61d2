package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personamind/memcore/pkg/errors"
	"github.com/personamind/memcore/pkg/identity"
	"github.com/personamind/memcore/pkg/memory"
	"github.com/personamind/memcore/pkg/memory/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "memcore.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_UnreachablePath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "memcore.db"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrStoreUnavailable)
}

func TestSQLiteStore_MemoryRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.PutMemory(ctx, memory.Entry{
		OwnerID:    "alice",
		SessionID:  "s1",
		Source:     memory.SourceChat,
		Title:      "greeting",
		Content:    "says hello in the morning",
		Importance: 2,
		Active:     true,
		Embedding:  []float32{0.1, 0.2, 0.3},
	})
	require.NoError(t, err)

	entry, err := s.GetMemory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, identity.UserID("alice"), entry.OwnerID)
	assert.Equal(t, "s1", entry.SessionID)
	assert.Equal(t, memory.SourceChat, entry.Source)
	assert.Equal(t, "says hello in the morning", entry.Content)
	assert.Equal(t, 2, entry.Importance)
	assert.True(t, entry.Active)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, entry.Embedding)
}

func TestSQLiteStore_NilEmbeddingIsNull(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.PutMemory(ctx, memory.Entry{
		Source:  memory.SourceManual,
		Content: "vectorless",
		Active:  true,
	})
	require.NoError(t, err)

	entry, err := s.GetMemory(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, entry.Embedding)

	// RequireEmbedding filters NULL vectors out
	entries, err := s.ListMemories(ctx, store.MemoryFilter{RequireEmbedding: true})
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = s.ListMemories(ctx, store.MemoryFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSQLiteStore_Filters(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	alice := identity.UserID("alice")
	_, err := s.PutMemory(ctx, memory.Entry{Source: memory.SourceChat, Content: "owned", OwnerID: alice, Active: true, Embedding: []float32{1}})
	require.NoError(t, err)
	_, err = s.PutMemory(ctx, memory.Entry{Source: memory.SourceChat, Content: "shared inactive", Active: false, Embedding: []float32{1}})
	require.NoError(t, err)
	_, err = s.PutMemory(ctx, memory.Entry{Source: memory.SourceChat, Content: "in session", SessionID: "s9", Active: true})
	require.NoError(t, err)

	entries, err := s.ListMemories(ctx, store.MemoryFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = s.ListMemories(ctx, store.MemoryFilter{OwnerID: &alice})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "owned", entries[0].Content)

	sid := "s9"
	entries, err = s.ListMemories(ctx, store.MemoryFilter{SessionID: &sid})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "in session", entries[0].Content)
}

func TestSQLiteStore_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.PutMemory(ctx, memory.Entry{Source: memory.SourceManual, Content: "before", Active: true})
	require.NoError(t, err)

	require.NoError(t, s.UpdateMemoryContent(ctx, id, "after", []float32{1, 2}, 4))
	entry, err := s.GetMemory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "after", entry.Content)
	assert.Equal(t, []float32{1, 2}, entry.Embedding)
	assert.Equal(t, 4, entry.Importance)

	require.NoError(t, s.SetMemoryActive(ctx, id, false))
	entry, err = s.GetMemory(ctx, id)
	require.NoError(t, err)
	assert.False(t, entry.Active)

	require.NoError(t, s.DeleteMemory(ctx, id))
	_, err = s.GetMemory(ctx, id)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	// Updates against missing rows report not found
	assert.ErrorIs(t, s.UpdateMemoryContent(ctx, "missing", "x", nil, 0), errors.ErrNotFound)
	assert.ErrorIs(t, s.SetMemoryActive(ctx, "missing", true), errors.ErrNotFound)
	assert.ErrorIs(t, s.DeleteMemory(ctx, "missing"), errors.ErrNotFound)
}

func TestSQLiteStore_Documents(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.PutDocument(ctx, memory.Document{
		Title:     "Profile",
		Content:   "initial",
		Metadata:  map[string]string{"source": "seed"},
		Embedding: []float32{0.5},
	})
	require.NoError(t, err)

	doc, err := s.GetDocumentByTitle(ctx, "Profile")
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID)
	assert.Equal(t, map[string]string{"source": "seed"}, doc.Metadata)

	require.NoError(t, s.UpdateDocumentContent(ctx, id, "revised", map[string]string{"rev": "2"}, []float32{0.6}))
	doc, err = s.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "revised", doc.Content)
	assert.Equal(t, map[string]string{"rev": "2"}, doc.Metadata)
	assert.Equal(t, []float32{0.6}, doc.Embedding)

	require.NoError(t, s.UpdateDocumentEmbedding(ctx, id, []float32{0.7}))
	doc, err = s.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "revised", doc.Content)
	assert.Equal(t, []float32{0.7}, doc.Embedding)

	require.NoError(t, s.DeleteDocument(ctx, id))
	_, err = s.GetDocument(ctx, id)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestSQLiteStore_SessionDeleteClearsReferences(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	sid, err := s.PutSession(ctx, memory.Session{Title: "planning chat"})
	require.NoError(t, err)

	memID, err := s.PutMemory(ctx, memory.Entry{
		Source:    memory.SourceChat,
		SessionID: sid,
		Content:   "bound to session",
		Active:    true,
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(ctx, sid))

	entry, err := s.GetMemory(ctx, memID)
	require.NoError(t, err)
	assert.Empty(t, entry.SessionID)

	assert.ErrorIs(t, s.DeleteSession(ctx, sid), errors.ErrNotFound)
}
