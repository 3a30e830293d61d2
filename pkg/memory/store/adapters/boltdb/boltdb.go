package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/personamind/memcore/pkg/errors"
	"github.com/personamind/memcore/pkg/log"
	"github.com/personamind/memcore/pkg/memory"
	"github.com/personamind/memcore/pkg/memory/store"
)

// Bucket names
var (
	memoriesBucket  = []byte("memories")
	documentsBucket = []byte("documents")
	sessionsBucket  = []byte("sessions")
)

// Store implements the store.Store interface using a BoltDB database.
// Records are stored as JSON values keyed by ID, one bucket per record
// type. Filtering happens during bucket iteration.
type Store struct {
	db *bolt.DB
}

// NewStore creates a new Store with the given database connection and
// ensures the buckets exist.
func NewStore(db *bolt.DB) (*Store, error) {
	s := &Store{db: db}

	err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{memoriesBucket, documentsBucket, sessionsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug("Initialized BoltDB memory store adapter", "db_path", db.Path())
	return s, nil
}

// Open opens (or creates) the BoltDB database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}
	return NewStore(db)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
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

	err := s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(memoriesBucket), entry.ID, entry)
	})
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

// GetMemory fetches a single memory entry by ID.
func (s *Store) GetMemory(ctx context.Context, id string) (*memory.Entry, error) {
	var entry memory.Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(memoriesBucket), id, &entry)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListMemories fetches all memory entries matching the filter.
func (s *Store) ListMemories(ctx context.Context, filter store.MemoryFilter) ([]memory.Entry, error) {
	var entries []memory.Entry

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(memoriesBucket).ForEach(func(_, v []byte) error {
			var entry memory.Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to unmarshal memory entry: %w", err)
			}
			if filter.ActiveOnly && !entry.Active {
				return nil
			}
			if filter.RequireEmbedding && len(entry.Embedding) == 0 {
				return nil
			}
			if filter.OwnerID != nil && entry.OwnerID != *filter.OwnerID {
				return nil
			}
			if filter.SessionID != nil && entry.SessionID != *filter.SessionID {
				return nil
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// UpdateMemoryContent updates content, embedding and importance inside a
// single write transaction.
func (s *Store) UpdateMemoryContent(ctx context.Context, id string, content string, embedding []float32, importance int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(memoriesBucket)
		var entry memory.Entry
		if err := getJSON(bucket, id, &entry); err != nil {
			return err
		}
		entry.Content = content
		entry.Embedding = embedding
		entry.Importance = importance
		entry.UpdatedAt = time.Now().UTC()
		return putJSON(bucket, id, entry)
	})
}

// SetMemoryActive flips the soft-delete flag of an entry.
func (s *Store) SetMemoryActive(ctx context.Context, id string, active bool) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(memoriesBucket)
		var entry memory.Entry
		if err := getJSON(bucket, id, &entry); err != nil {
			return err
		}
		entry.Active = active
		entry.UpdatedAt = time.Now().UTC()
		return putJSON(bucket, id, entry)
	})
}

// DeleteMemory removes an entry.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(memoriesBucket)
		if bucket.Get([]byte(id)) == nil {
			return errors.ErrNotFound
		}
		return bucket.Delete([]byte(id))
	})
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

	err := s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(documentsBucket), doc.ID, doc)
	})
	if err != nil {
		return "", err
	}
	return doc.ID, nil
}

// GetDocument fetches a single document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*memory.Document, error) {
	var doc memory.Document
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(documentsBucket), id, &doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocumentByTitle fetches a document by its stable title.
func (s *Store) GetDocumentByTitle(ctx context.Context, title string) (*memory.Document, error) {
	var found *memory.Document
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(documentsBucket).ForEach(func(_, v []byte) error {
			if found != nil {
				return nil
			}
			var doc memory.Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("failed to unmarshal document: %w", err)
			}
			if doc.Title == title {
				found = &doc
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, errors.ErrNotFound
	}
	return found, nil
}

// ListDocuments fetches all documents matching the filter.
func (s *Store) ListDocuments(ctx context.Context, filter store.DocumentFilter) ([]memory.Document, error) {
	var docs []memory.Document

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(documentsBucket).ForEach(func(_, v []byte) error {
			var doc memory.Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("failed to unmarshal document: %w", err)
			}
			if filter.RequireEmbedding && len(doc.Embedding) == 0 {
				return nil
			}
			if filter.OwnerID != nil && doc.OwnerID != *filter.OwnerID {
				return nil
			}
			docs = append(docs, doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// UpdateDocumentContent updates content, metadata and embedding inside a
// single write transaction, so readers see either the old pair or the new.
func (s *Store) UpdateDocumentContent(ctx context.Context, id string, content string, metadata map[string]string, embedding []float32) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(documentsBucket)
		var doc memory.Document
		if err := getJSON(bucket, id, &doc); err != nil {
			return err
		}
		doc.Content = content
		if metadata != nil {
			doc.Metadata = metadata
		}
		doc.Embedding = embedding
		doc.UpdatedAt = time.Now().UTC()
		return putJSON(bucket, id, doc)
	})
}

// UpdateDocumentEmbedding updates only the embedding of a document.
func (s *Store) UpdateDocumentEmbedding(ctx context.Context, id string, embedding []float32) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(documentsBucket)
		var doc memory.Document
		if err := getJSON(bucket, id, &doc); err != nil {
			return err
		}
		doc.Embedding = embedding
		doc.UpdatedAt = time.Now().UTC()
		return putJSON(bucket, id, doc)
	})
}

// DeleteDocument removes a document.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(documentsBucket)
		if bucket.Get([]byte(id)) == nil {
			return errors.ErrNotFound
		}
		return bucket.Delete([]byte(id))
	})
}

// PutSession persists a chat session.
func (s *Store) PutSession(ctx context.Context, session memory.Session) (string, error) {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(sessionsBucket), session.ID, session)
	})
	if err != nil {
		return "", err
	}
	return session.ID, nil
}

// DeleteSession removes a session and clears the session reference on its
// memories.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(sessionsBucket)
		if sessions.Get([]byte(id)) == nil {
			return errors.ErrNotFound
		}
		if err := sessions.Delete([]byte(id)); err != nil {
			return err
		}

		memories := tx.Bucket(memoriesBucket)
		var orphaned []memory.Entry
		err := memories.ForEach(func(_, v []byte) error {
			var entry memory.Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to unmarshal memory entry: %w", err)
			}
			if entry.SessionID == id {
				orphaned = append(orphaned, entry)
			}
			return nil
		})
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, entry := range orphaned {
			entry.SessionID = ""
			entry.UpdatedAt = now
			if err := putJSON(memories, entry.ID, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

// putJSON marshals the value and stores it under key.
func putJSON(bucket *bolt.Bucket, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return bucket.Put([]byte(key), data)
}

// getJSON fetches and unmarshals the value under key.
func getJSON(bucket *bolt.Bucket, key string, value interface{}) error {
	data := bucket.Get([]byte(key))
	if data == nil {
		return errors.ErrNotFound
	}
	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return nil
}
