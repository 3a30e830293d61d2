// Package lifecycle coordinates the write and read paths of the memory
// core: creating memories with embeddings, keeping document vectors in
// sync with their content, and building the personalization context
// block for an LLM call.
package lifecycle

import (
	"context"
	"strings"

	"github.com/personamind/memcore/pkg/embedding"
	"github.com/personamind/memcore/pkg/errors"
	"github.com/personamind/memcore/pkg/identity"
	"github.com/personamind/memcore/pkg/log"
	"github.com/personamind/memcore/pkg/memory"
	"github.com/personamind/memcore/pkg/memory/store"
	"github.com/personamind/memcore/pkg/retrieval"
	"github.com/personamind/memcore/pkg/scripting"
)

// Config contains the tunables of the lifecycle manager.
type Config struct {
	// TopK caps the number of items in a built context; <= 0 uses the
	// retrieval default
	TopK int

	// ImportanceWeight scales memory importance into scores; zero uses
	// the retrieval default
	ImportanceWeight float64
}

// Manager is the high-level entry point of the memory core. It owns no
// state of its own; all persistence goes through the store and all
// vectors come from the embedding provider.
type Manager struct {
	store    store.Store
	provider embedding.Provider
	engine   scripting.Engine // optional, nil disables hooks
	config   Config
}

// NewManager creates a lifecycle manager. The scripting engine may be
// nil, in which case Lua hooks are skipped entirely.
func NewManager(s store.Store, provider embedding.Provider, engine scripting.Engine, config Config) (*Manager, error) {
	if s == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "store is required")
	}
	if provider == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "embedding provider is required")
	}
	return &Manager{
		store:    s,
		provider: provider,
		engine:   engine,
		config:   config,
	}, nil
}

// CreateMemoryFromMessage stores a chat-derived memory. When no
// embedding is supplied the text is embedded first; an embedding failure
// aborts the operation so no vectorless chat memory is persisted. The
// owner is recorded only for an authenticated scope.
func (m *Manager) CreateMemoryFromMessage(ctx context.Context, scope identity.Scope, sessionID string, text string, embedding []float32, importance int) (*memory.Entry, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "memory text is empty")
	}

	if len(embedding) == 0 {
		var err error
		embedding, err = m.provider.Embed(ctx, text)
		if err != nil {
			return nil, errors.Wrap(err, "failed to embed memory text")
		}
	}

	entry := memory.Entry{
		SessionID:  sessionID,
		Source:     memory.SourceChat,
		Content:    text,
		Importance: importance,
		Active:     true,
		Embedding:  embedding,
	}
	if scope.Authenticated() {
		entry.OwnerID = scope.UserID
	}

	return m.storeEntry(ctx, entry)
}

// CreateManualMemory stores an operator-curated memory with an optional
// title.
func (m *Manager) CreateManualMemory(ctx context.Context, scope identity.Scope, title string, content string, importance int) (*memory.Entry, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "memory content is empty")
	}

	emb, err := m.provider.Embed(ctx, content)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed memory content")
	}

	entry := memory.Entry{
		Source:     memory.SourceManual,
		Title:      title,
		Content:    content,
		Importance: importance,
		Active:     true,
		Embedding:  emb,
	}
	if scope.Authenticated() {
		entry.OwnerID = scope.UserID
	}

	return m.storeEntry(ctx, entry)
}

// storeEntry runs the before-store hook and persists the entry.
func (m *Manager) storeEntry(ctx context.Context, entry memory.Entry) (*memory.Entry, error) {
	entry, vetoed := m.callBeforeStoreHook(ctx, entry)
	if vetoed {
		log.DebugContext(ctx, "Memory store vetoed by Lua hook", "source", entry.Source)
		return nil, nil
	}

	id, err := m.store.PutMemory(ctx, entry)
	if err != nil {
		return nil, errors.Wrap(err, "failed to store memory")
	}

	stored, err := m.store.GetMemory(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read back stored memory")
	}

	log.DebugContext(ctx, "Stored memory entry",
		"memory_id", stored.ID,
		"source", stored.Source,
		"importance", stored.Importance)
	return stored, nil
}

// UpdateMemory rewrites a memory's content and importance. A content
// change re-embeds so the stored vector never drifts from the text; the
// content, vector, and importance land in one store update.
func (m *Manager) UpdateMemory(ctx context.Context, id string, content string, importance int) (*memory.Entry, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "memory content is empty")
	}

	current, err := m.store.GetMemory(ctx, id)
	if err != nil {
		return nil, err
	}

	emb := current.Embedding
	if current.Content != content || len(emb) == 0 {
		emb, err = m.provider.Embed(ctx, content)
		if err != nil {
			return nil, errors.Wrap(err, "failed to embed updated content")
		}
	}

	if err := m.store.UpdateMemoryContent(ctx, id, content, emb, importance); err != nil {
		return nil, errors.Wrap(err, "failed to update memory")
	}
	return m.store.GetMemory(ctx, id)
}

// DeactivateMemory soft-deletes a memory entry. The record remains in
// the store but is never retrieved again until reactivated.
func (m *Manager) DeactivateMemory(ctx context.Context, id string) error {
	return m.store.SetMemoryActive(ctx, id, false)
}

// ReactivateMemory reverses a soft delete.
func (m *Manager) ReactivateMemory(ctx context.Context, id string) error {
	return m.store.SetMemoryActive(ctx, id, true)
}

// CreateDocument stores a reference document with a fresh embedding of
// its content.
func (m *Manager) CreateDocument(ctx context.Context, scope identity.Scope, title string, content string, metadata map[string]string) (*memory.Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "document content is empty")
	}

	emb, err := m.provider.Embed(ctx, content)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed document content")
	}

	doc := memory.Document{
		Title:     title,
		Content:   content,
		Metadata:  metadata,
		Embedding: emb,
	}
	if scope.Authenticated() {
		doc.OwnerID = scope.UserID
	}

	id, err := m.store.PutDocument(ctx, doc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to store document")
	}
	return m.store.GetDocument(ctx, id)
}

// UpdateDocumentContent rewrites a document's content and metadata. The
// new content is re-embedded and content, metadata, and vector are
// persisted in a single atomic update so readers never see a stale
// pairing.
func (m *Manager) UpdateDocumentContent(ctx context.Context, id string, content string, metadata map[string]string) (*memory.Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "document content is empty")
	}

	emb, err := m.provider.Embed(ctx, content)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed document content")
	}

	if err := m.store.UpdateDocumentContent(ctx, id, content, metadata, emb); err != nil {
		return nil, errors.Wrap(err, "failed to update document")
	}
	return m.store.GetDocument(ctx, id)
}

// EnsureDocumentEmbedding re-embeds a document's current content and
// persists the vector. Used for documents imported without embeddings
// and after provider or dimension changes.
func (m *Manager) EnsureDocumentEmbedding(ctx context.Context, id string) error {
	doc, err := m.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	emb, err := m.provider.Embed(ctx, doc.Content)
	if err != nil {
		return errors.Wrap(err, "failed to embed document content")
	}

	if err := m.store.UpdateDocumentEmbedding(ctx, id, emb); err != nil {
		return errors.Wrap(err, "failed to persist document embedding")
	}
	return nil
}

// BuildContext retrieves the most relevant memories and documents for
// the query and renders them as a context block. An empty query with no
// vector returns "" without touching the store. Inactive and vectorless
// records never participate; anonymous scopes only see shared records.
func (m *Manager) BuildContext(ctx context.Context, scope identity.Scope, queryText string, queryEmbedding []float32, topK int) (string, error) {
	if strings.TrimSpace(queryText) == "" && len(queryEmbedding) == 0 {
		return "", nil
	}

	if len(queryEmbedding) == 0 {
		var err error
		queryEmbedding, err = m.provider.Embed(ctx, queryText)
		if err != nil {
			return "", errors.Wrap(err, "failed to embed query")
		}
	}

	entries, err := m.store.ListMemories(ctx, store.MemoryFilter{
		ActiveOnly:       true,
		RequireEmbedding: true,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to list memories")
	}

	docs, err := m.store.ListDocuments(ctx, store.DocumentFilter{
		RequireEmbedding: true,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to list documents")
	}

	candidates := make([]retrieval.Candidate, 0, len(entries)+len(docs))
	for i := range entries {
		if !visibleTo(scope, entries[i].OwnerID) {
			continue
		}
		candidates = append(candidates, retrieval.MemoryCandidate(&entries[i]))
	}
	for i := range docs {
		if !visibleTo(scope, docs[i].OwnerID) {
			continue
		}
		candidates = append(candidates, retrieval.DocumentCandidate(&docs[i]))
	}

	if topK <= 0 {
		topK = m.config.TopK
	}
	results := retrieval.Rank(queryEmbedding, candidates, retrieval.Options{
		TopK:             topK,
		ImportanceWeight: m.config.ImportanceWeight,
	})

	formatted := retrieval.FormatContext(results)
	m.callAfterContextHook(ctx, results)

	log.DebugContext(ctx, "Built retrieval context",
		"candidates", len(candidates),
		"selected", len(results))
	return formatted, nil
}

// visibleTo reports whether a record owned by ownerID is retrievable in
// the given scope. Shared records (no owner) are visible to everyone;
// owned records only to their authenticated owner.
func visibleTo(scope identity.Scope, ownerID identity.UserID) bool {
	if ownerID == "" {
		return true
	}
	return scope.Authenticated() && scope.UserID == ownerID
}
