package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/personamind/memcore/pkg/errors"
	"github.com/personamind/memcore/pkg/log"
	"github.com/personamind/memcore/pkg/memory"
	"github.com/personamind/memcore/pkg/memory/store"
)

// MockStore is an in-memory implementation of the store.Store interface
// used for testing and development.
type MockStore struct {
	memories  map[string]memory.Entry
	documents map[string]memory.Document
	sessions  map[string]memory.Session

	// Mutex for safe concurrent access
	mutex sync.RWMutex
}

// NewMockStore creates a new instance of the MockStore.
func NewMockStore() *MockStore {
	s := &MockStore{
		memories:  make(map[string]memory.Entry),
		documents: make(map[string]memory.Document),
		sessions:  make(map[string]memory.Session),
	}

	log.Debug("Initialized mock memory store adapter")
	return s
}

// PutMemory implements the store.Store interface.
func (m *MockStore) PutMemory(ctx context.Context, entry memory.Entry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.memories[entry.ID] = entry

	log.DebugContext(ctx, "Stored memory entry in mock store",
		"id", entry.ID,
		"owner_id", entry.OwnerID,
		"content_length", len(entry.Content),
	)

	return entry.ID, nil
}

// GetMemory implements the store.Store interface.
func (m *MockStore) GetMemory(ctx context.Context, id string) (*memory.Entry, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	entry, ok := m.memories[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return &entry, nil
}

// ListMemories implements the store.Store interface.
func (m *MockStore) ListMemories(ctx context.Context, filter store.MemoryFilter) ([]memory.Entry, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var entries []memory.Entry
	for _, entry := range m.memories {
		if filter.ActiveOnly && !entry.Active {
			continue
		}
		if filter.RequireEmbedding && len(entry.Embedding) == 0 {
			continue
		}
		if filter.OwnerID != nil && entry.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.SessionID != nil && entry.SessionID != *filter.SessionID {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// UpdateMemoryContent implements the store.Store interface.
func (m *MockStore) UpdateMemoryContent(ctx context.Context, id string, content string, embedding []float32, importance int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	entry, ok := m.memories[id]
	if !ok {
		return errors.ErrNotFound
	}
	entry.Content = content
	entry.Embedding = embedding
	entry.Importance = importance
	entry.UpdatedAt = time.Now().UTC()
	m.memories[id] = entry
	return nil
}

// SetMemoryActive implements the store.Store interface.
func (m *MockStore) SetMemoryActive(ctx context.Context, id string, active bool) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	entry, ok := m.memories[id]
	if !ok {
		return errors.ErrNotFound
	}
	entry.Active = active
	entry.UpdatedAt = time.Now().UTC()
	m.memories[id] = entry
	return nil
}

// DeleteMemory implements the store.Store interface.
func (m *MockStore) DeleteMemory(ctx context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.memories[id]; !ok {
		return errors.ErrNotFound
	}
	delete(m.memories, id)
	return nil
}

// PutDocument implements the store.Store interface.
func (m *MockStore) PutDocument(ctx context.Context, doc memory.Document) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]string)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.documents[doc.ID] = doc

	log.DebugContext(ctx, "Stored document in mock store",
		"id", doc.ID,
		"title", doc.Title,
	)

	return doc.ID, nil
}

// GetDocument implements the store.Store interface.
func (m *MockStore) GetDocument(ctx context.Context, id string) (*memory.Document, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	doc, ok := m.documents[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return &doc, nil
}

// GetDocumentByTitle implements the store.Store interface.
func (m *MockStore) GetDocumentByTitle(ctx context.Context, title string) (*memory.Document, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, doc := range m.documents {
		if doc.Title == title {
			d := doc
			return &d, nil
		}
	}
	return nil, errors.ErrNotFound
}

// ListDocuments implements the store.Store interface.
func (m *MockStore) ListDocuments(ctx context.Context, filter store.DocumentFilter) ([]memory.Document, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var docs []memory.Document
	for _, doc := range m.documents {
		if filter.RequireEmbedding && len(doc.Embedding) == 0 {
			continue
		}
		if filter.OwnerID != nil && doc.OwnerID != *filter.OwnerID {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// UpdateDocumentContent implements the store.Store interface.
func (m *MockStore) UpdateDocumentContent(ctx context.Context, id string, content string, metadata map[string]string, embedding []float32) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	doc, ok := m.documents[id]
	if !ok {
		return errors.ErrNotFound
	}
	doc.Content = content
	if metadata != nil {
		doc.Metadata = metadata
	}
	doc.Embedding = embedding
	doc.UpdatedAt = time.Now().UTC()
	m.documents[id] = doc
	return nil
}

// UpdateDocumentEmbedding implements the store.Store interface.
func (m *MockStore) UpdateDocumentEmbedding(ctx context.Context, id string, embedding []float32) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	doc, ok := m.documents[id]
	if !ok {
		return errors.ErrNotFound
	}
	doc.Embedding = embedding
	doc.UpdatedAt = time.Now().UTC()
	m.documents[id] = doc
	return nil
}

// DeleteDocument implements the store.Store interface.
func (m *MockStore) DeleteDocument(ctx context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.documents[id]; !ok {
		return errors.ErrNotFound
	}
	delete(m.documents, id)
	return nil
}

// PutSession implements the store.Store interface.
func (m *MockStore) PutSession(ctx context.Context, session memory.Session) (string, error) {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
	return session.ID, nil
}

// DeleteSession implements the store.Store interface. Memories created
// during the session survive with their session reference cleared.
func (m *MockStore) DeleteSession(ctx context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return errors.ErrNotFound
	}
	delete(m.sessions, id)

	for entryID, entry := range m.memories {
		if entry.SessionID == id {
			entry.SessionID = ""
			entry.UpdatedAt = time.Now().UTC()
			m.memories[entryID] = entry
		}
	}
	return nil
}

// Close implements the store.Store interface.
func (m *MockStore) Close() error {
	return nil
}
