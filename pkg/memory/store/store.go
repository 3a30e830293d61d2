package store

import (
	"context"

	"github.com/personamind/memcore/pkg/identity"
	"github.com/personamind/memcore/pkg/memory"
)

// MemoryFilter selects memory entries for bulk reads.
type MemoryFilter struct {
	// OwnerID, when non-nil, restricts results to entries owned by the user.
	// A nil OwnerID means no owner restriction (anonymous/global scope).
	OwnerID *identity.UserID

	// SessionID, when non-nil, restricts results to entries from the session
	SessionID *string

	// ActiveOnly excludes soft-deleted entries
	ActiveOnly bool

	// RequireEmbedding excludes entries without an embedding
	RequireEmbedding bool
}

// DocumentFilter selects documents for bulk reads.
type DocumentFilter struct {
	// OwnerID, when non-nil, restricts results to documents owned by the user
	OwnerID *identity.UserID

	// RequireEmbedding excludes documents without an embedding
	RequireEmbedding bool
}

// Store is the persistence boundary for memories, documents and sessions.
// Reads return full records including embeddings. Partial updates touch
// only the named fields plus the updated timestamp. Concurrent updates to
// the same record are last-write-wins; callers needing stronger
// guarantees must coordinate above this boundary.
type Store interface {
	// PutMemory persists a memory entry, assigning an ID when empty.
	PutMemory(ctx context.Context, entry memory.Entry) (string, error)

	// GetMemory fetches a single memory entry by ID.
	GetMemory(ctx context.Context, id string) (*memory.Entry, error)

	// ListMemories fetches all memory entries matching the filter.
	ListMemories(ctx context.Context, filter MemoryFilter) ([]memory.Entry, error)

	// UpdateMemoryContent updates content, embedding and importance of an
	// entry in one write so the pair can never be observed mismatched.
	UpdateMemoryContent(ctx context.Context, id string, content string, embedding []float32, importance int) error

	// SetMemoryActive flips the soft-delete flag of an entry.
	SetMemoryActive(ctx context.Context, id string, active bool) error

	// DeleteMemory removes an entry. Retrieval never calls this; physical
	// deletion is an administrative action.
	DeleteMemory(ctx context.Context, id string) error

	// PutDocument persists a document, assigning an ID when empty.
	PutDocument(ctx context.Context, doc memory.Document) (string, error)

	// GetDocument fetches a single document by ID.
	GetDocument(ctx context.Context, id string) (*memory.Document, error)

	// GetDocumentByTitle fetches a document by its title. Seeding relies on
	// titles being stable keys.
	GetDocumentByTitle(ctx context.Context, title string) (*memory.Document, error)

	// ListDocuments fetches all documents matching the filter.
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]memory.Document, error)

	// UpdateDocumentContent updates content, metadata and embedding of a
	// document in one write.
	UpdateDocumentContent(ctx context.Context, id string, content string, metadata map[string]string, embedding []float32) error

	// UpdateDocumentEmbedding updates only the embedding of a document.
	UpdateDocumentEmbedding(ctx context.Context, id string, embedding []float32) error

	// DeleteDocument removes a document.
	DeleteDocument(ctx context.Context, id string) error

	// PutSession persists a chat session, assigning an ID when empty.
	PutSession(ctx context.Context, session memory.Session) (string, error)

	// DeleteSession removes a session and clears the session reference on
	// memories that point at it.
	DeleteSession(ctx context.Context, id string) error

	// Close releases resources held by the store.
	Close() error
}
