package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/personamind/memcore/pkg/embedding"
	"github.com/personamind/memcore/pkg/errors"
	"github.com/personamind/memcore/pkg/log"
	"github.com/personamind/memcore/pkg/memory"
	"github.com/personamind/memcore/pkg/memory/store"
)

// Collection names
const (
	memoriesCollection  = "memories"
	documentsCollection = "documents"
)

// Store implements the store.Store interface using chromem-go, a pure Go
// embedded vector database. Records with an embedding live in chromem
// collections, serialized as JSON document content with filterable
// metadata; records without an embedding are not indexable by chromem
// and are held in a side table until they get a vector. Sessions are
// held in memory; chromem has no natural place for them.
type Store struct {
	db        *chromem.DB
	memories  *chromem.Collection
	documents *chromem.Collection

	mu          sync.RWMutex
	pendingMems map[string]memory.Entry
	pendingDocs map[string]memory.Document
	sessions    map[string]memory.Session
}

// Config contains the configuration for a chromem store.
type Config struct {
	// Path is the directory for persistent storage; empty means in-memory
	Path string

	// Provider supplies the embedding function chromem uses for
	// text queries during enumeration. Required: chromem falls back to
	// its own OpenAI client when given no embedding func, and listings
	// would then need network access and an API key.
	Provider embedding.Provider
}

// NewStore creates a new chromem-backed store.
func NewStore(config Config) (*Store, error) {
	if config.Provider == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "chromem store requires an embedding provider")
	}

	var db *chromem.DB
	var err error

	if config.Path != "" {
		db, err = chromem.NewPersistentDB(config.Path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to create persistent chromem db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	embedFunc := chromem.EmbeddingFunc(config.Provider.Embed)

	mems, err := db.GetOrCreateCollection(memoriesCollection, nil, embedFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to create memories collection: %w", err)
	}
	docs, err := db.GetOrCreateCollection(documentsCollection, nil, embedFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to create documents collection: %w", err)
	}

	log.Debug("Initialized chromem memory store adapter", "persistent", config.Path != "")

	return &Store{
		db:          db,
		memories:    mems,
		documents:   docs,
		pendingMems: make(map[string]memory.Entry),
		pendingDocs: make(map[string]memory.Document),
		sessions:    make(map[string]memory.Session),
	}, nil
}

// Close implements the store.Store interface. Persistence is handled by
// chromem itself; nothing to release.
func (s *Store) Close() error {
	return nil
}

// PutMemory persists a memory entry.
func (s *Store) PutMemory(ctx context.Context, entry memory.Entry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	return entry.ID, s.writeMemory(ctx, entry)
}

func (s *Store) writeMemory(ctx context.Context, entry memory.Entry) error {
	// Drop any previous version from both homes before re-adding.
	// Unknown IDs are a no-op for chromem; a real delete failure must
	// abort the rewrite or two live versions could survive.
	s.mu.Lock()
	delete(s.pendingMems, entry.ID)
	s.mu.Unlock()
	if err := s.memories.Delete(ctx, nil, nil, entry.ID); err != nil {
		return fmt.Errorf("failed to drop previous memory version: %w", err)
	}

	if len(entry.Embedding) == 0 {
		s.mu.Lock()
		s.pendingMems[entry.ID] = entry
		s.mu.Unlock()
		return nil
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal memory entry: %w", err)
	}

	doc := chromem.Document{
		ID:        entry.ID,
		Content:   string(payload),
		Embedding: entry.Embedding,
		Metadata: map[string]string{
			"owner":   string(entry.OwnerID),
			"session": entry.SessionID,
			"active":  fmt.Sprintf("%t", entry.Active),
		},
	}
	if err := s.memories.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to add memory document: %w", err)
	}
	return nil
}

// GetMemory fetches a single memory entry by ID.
func (s *Store) GetMemory(ctx context.Context, id string) (*memory.Entry, error) {
	s.mu.RLock()
	if entry, ok := s.pendingMems[id]; ok {
		s.mu.RUnlock()
		return &entry, nil
	}
	s.mu.RUnlock()

	entries, err := s.listIndexedMemories(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
	}
	return nil, errors.ErrNotFound
}

// ListMemories fetches all memory entries matching the filter.
func (s *Store) ListMemories(ctx context.Context, filter store.MemoryFilter) ([]memory.Entry, error) {
	where := make(map[string]string)
	if filter.OwnerID != nil {
		where["owner"] = string(*filter.OwnerID)
	}
	if filter.SessionID != nil {
		where["session"] = *filter.SessionID
	}
	if filter.ActiveOnly {
		where["active"] = "true"
	}

	entries, err := s.listIndexedMemories(ctx, where)
	if err != nil {
		return nil, err
	}

	if !filter.RequireEmbedding {
		s.mu.RLock()
		for _, entry := range s.pendingMems {
			if filter.ActiveOnly && !entry.Active {
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
		s.mu.RUnlock()
	}
	return entries, nil
}

// listIndexedMemories enumerates the chromem memories collection.
func (s *Store) listIndexedMemories(ctx context.Context, where map[string]string) ([]memory.Entry, error) {
	results, err := s.queryAll(ctx, s.memories, where)
	if err != nil {
		return nil, err
	}

	// The record JSON carries the original embedding; chromem keeps a
	// normalized copy for its own scoring.
	entries := make([]memory.Entry, 0, len(results))
	for _, r := range results {
		var entry memory.Entry
		if err := json.Unmarshal([]byte(r.Content), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal memory entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// UpdateMemoryContent updates content, embedding and importance together.
func (s *Store) UpdateMemoryContent(ctx context.Context, id string, content string, embedding []float32, importance int) error {
	entry, err := s.GetMemory(ctx, id)
	if err != nil {
		return err
	}
	entry.Content = content
	entry.Embedding = embedding
	entry.Importance = importance
	entry.UpdatedAt = time.Now().UTC()
	return s.writeMemory(ctx, *entry)
}

// SetMemoryActive flips the soft-delete flag of an entry.
func (s *Store) SetMemoryActive(ctx context.Context, id string, active bool) error {
	entry, err := s.GetMemory(ctx, id)
	if err != nil {
		return err
	}
	entry.Active = active
	entry.UpdatedAt = time.Now().UTC()
	return s.writeMemory(ctx, *entry)
}

// DeleteMemory removes an entry.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	if _, err := s.GetMemory(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.pendingMems, id)
	s.mu.Unlock()
	return s.memories.Delete(ctx, nil, nil, id)
}

// PutDocument persists a document.
func (s *Store) PutDocument(ctx context.Context, doc memory.Document) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]string)
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	return doc.ID, s.writeDocument(ctx, doc)
}

func (s *Store) writeDocument(ctx context.Context, doc memory.Document) error {
	s.mu.Lock()
	delete(s.pendingDocs, doc.ID)
	s.mu.Unlock()
	if err := s.documents.Delete(ctx, nil, nil, doc.ID); err != nil {
		return fmt.Errorf("failed to drop previous document version: %w", err)
	}

	if len(doc.Embedding) == 0 {
		s.mu.Lock()
		s.pendingDocs[doc.ID] = doc
		s.mu.Unlock()
		return nil
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	cdoc := chromem.Document{
		ID:        doc.ID,
		Content:   string(payload),
		Embedding: doc.Embedding,
		Metadata: map[string]string{
			"owner": string(doc.OwnerID),
			"title": doc.Title,
		},
	}
	if err := s.documents.AddDocument(ctx, cdoc); err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	return nil
}

// GetDocument fetches a single document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*memory.Document, error) {
	s.mu.RLock()
	if doc, ok := s.pendingDocs[id]; ok {
		s.mu.RUnlock()
		return &doc, nil
	}
	s.mu.RUnlock()

	docs, err := s.listIndexedDocuments(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if docs[i].ID == id {
			return &docs[i], nil
		}
	}
	return nil, errors.ErrNotFound
}

// GetDocumentByTitle fetches a document by its stable title.
func (s *Store) GetDocumentByTitle(ctx context.Context, title string) (*memory.Document, error) {
	s.mu.RLock()
	for _, doc := range s.pendingDocs {
		if doc.Title == title {
			d := doc
			s.mu.RUnlock()
			return &d, nil
		}
	}
	s.mu.RUnlock()

	docs, err := s.listIndexedDocuments(ctx, map[string]string{"title": title})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.ErrNotFound
	}
	return &docs[0], nil
}

// ListDocuments fetches all documents matching the filter.
func (s *Store) ListDocuments(ctx context.Context, filter store.DocumentFilter) ([]memory.Document, error) {
	where := make(map[string]string)
	if filter.OwnerID != nil {
		where["owner"] = string(*filter.OwnerID)
	}

	docs, err := s.listIndexedDocuments(ctx, where)
	if err != nil {
		return nil, err
	}

	if !filter.RequireEmbedding {
		s.mu.RLock()
		for _, doc := range s.pendingDocs {
			if filter.OwnerID != nil && doc.OwnerID != *filter.OwnerID {
				continue
			}
			docs = append(docs, doc)
		}
		s.mu.RUnlock()
	}
	return docs, nil
}

// listIndexedDocuments enumerates the chromem documents collection.
func (s *Store) listIndexedDocuments(ctx context.Context, where map[string]string) ([]memory.Document, error) {
	results, err := s.queryAll(ctx, s.documents, where)
	if err != nil {
		return nil, err
	}

	docs := make([]memory.Document, 0, len(results))
	for _, r := range results {
		var doc memory.Document
		if err := json.Unmarshal([]byte(r.Content), &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// UpdateDocumentContent updates content, metadata and embedding together.
func (s *Store) UpdateDocumentContent(ctx context.Context, id string, content string, metadata map[string]string, embedding []float32) error {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	doc.Content = content
	if metadata != nil {
		doc.Metadata = metadata
	}
	doc.Embedding = embedding
	doc.UpdatedAt = time.Now().UTC()
	return s.writeDocument(ctx, *doc)
}

// UpdateDocumentEmbedding updates only the embedding of a document.
func (s *Store) UpdateDocumentEmbedding(ctx context.Context, id string, embedding []float32) error {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	doc.Embedding = embedding
	doc.UpdatedAt = time.Now().UTC()
	return s.writeDocument(ctx, *doc)
}

// DeleteDocument removes a document.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.GetDocument(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.pendingDocs, id)
	s.mu.Unlock()
	return s.documents.Delete(ctx, nil, nil, id)
}

// PutSession persists a chat session.
func (s *Store) PutSession(ctx context.Context, session memory.Session) (string, error) {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session.ID, nil
}

// DeleteSession removes a session and clears the session reference on its
// memories.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		return errors.ErrNotFound
	}
	delete(s.sessions, id)
	s.mu.Unlock()

	sessionID := id
	entries, err := s.ListMemories(ctx, store.MemoryFilter{SessionID: &sessionID})
	if err != nil {
		return err
	}
	for _, entry := range entries {
		entry.SessionID = ""
		entry.UpdatedAt = time.Now().UTC()
		if err := s.writeMemory(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// queryAll enumerates a collection through a wildcard-ish text query,
// the same trick chromem users lean on since the API has no ListAll.
// chromem fails when nResults exceeds the (filtered) document count, so
// the limit shrinks until the query succeeds. Each retry re-embeds the
// " " query through the provider, so a filter matching nothing costs
// one provider call per shrink step.
func (s *Store) queryAll(ctx context.Context, col *chromem.Collection, where map[string]string) ([]chromem.Result, error) {
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if len(where) == 0 {
		where = nil
	}

	var results []chromem.Result
	var err error
	for limit := count; limit >= 1; limit-- {
		results, err = col.Query(ctx, " ", limit, where, nil)
		if err == nil {
			return results, nil
		}
		if !isInsufficientDocsError(err) {
			return nil, fmt.Errorf("chromem query: %w", err)
		}
	}
	// Every size failed: the filtered set is empty.
	return nil, nil
}

// isInsufficientDocsError checks if the error is due to nResults
// exceeding the number of matching documents.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
