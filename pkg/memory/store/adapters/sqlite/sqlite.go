package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/personamind/memcore/pkg/errors"
	"github.com/personamind/memcore/pkg/identity"
	"github.com/personamind/memcore/pkg/memory"
	"github.com/personamind/memcore/pkg/memory/store"
)

// Store implements the store.Store interface using a SQLite database.
// Embeddings are stored as JSON arrays; candidate sets are small enough
// for exhaustive scoring, so no vector index is needed here.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the SQLite database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open sqlite database: %v", errors.ErrStoreUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%w: failed to ping sqlite database: %v", errors.ErrStoreUnavailable, err)
	}

	s := &Store{db: db}
	if err := s.initializeSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing connection (used for testing with :memory:).
func NewStore(db *sqlx.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initializeSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initializeSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_sessions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS memory_entries (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL DEFAULT '',
		session_id TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		importance INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT 1,
		embedding TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		embedding TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS memory_entries_owner_id_idx ON memory_entries (owner_id);
	CREATE INDEX IF NOT EXISTS memory_entries_session_id_idx ON memory_entries (session_id);
	CREATE INDEX IF NOT EXISTS documents_title_idx ON documents (title);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
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

	embeddingJSON, err := marshalEmbedding(entry.Embedding)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memory_entries (
			id, owner_id, session_id, source, title, content, importance, active, embedding, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = excluded.owner_id,
			session_id = excluded.session_id,
			source = excluded.source,
			title = excluded.title,
			content = excluded.content,
			importance = excluded.importance,
			active = excluded.active,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at
	`,
		entry.ID,
		string(entry.OwnerID),
		entry.SessionID,
		string(entry.Source),
		entry.Title,
		entry.Content,
		entry.Importance,
		entry.Active,
		embeddingJSON,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to store memory entry: %w", err)
	}
	return entry.ID, nil
}

// GetMemory fetches a single memory entry by ID.
func (s *Store) GetMemory(ctx context.Context, id string) (*memory.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, session_id, source, title, content, importance, active, embedding, created_at, updated_at
		FROM memory_entries WHERE id = ?
	`, id)

	entry, err := scanMemoryRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListMemories fetches all memory entries matching the filter.
func (s *Store) ListMemories(ctx context.Context, filter store.MemoryFilter) ([]memory.Entry, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.OwnerID != nil {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, string(*filter.OwnerID))
	}
	if filter.SessionID != nil {
		conditions = append(conditions, "session_id = ?")
		args = append(args, *filter.SessionID)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "active = 1")
	}
	if filter.RequireEmbedding {
		conditions = append(conditions, "embedding IS NOT NULL")
	}

	query := fmt.Sprintf(`
		SELECT id, owner_id, session_id, source, title, content, importance, active, embedding, created_at, updated_at
		FROM memory_entries
		WHERE %s
		ORDER BY updated_at DESC
	`, strings.Join(conditions, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list memory entries: %w", err)
	}
	defer rows.Close()

	var entries []memory.Entry
	for rows.Next() {
		entry, err := scanMemoryRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return entries, nil
}

// UpdateMemoryContent updates content, embedding and importance together.
func (s *Store) UpdateMemoryContent(ctx context.Context, id string, content string, embedding []float32, importance int) error {
	embeddingJSON, err := marshalEmbedding(embedding)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE memory_entries SET content = ?, embedding = ?, importance = ?, updated_at = ? WHERE id = ?
	`, content, embeddingJSON, importance, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update memory entry: %w", err)
	}
	return requireRows(result)
}

// SetMemoryActive flips the soft-delete flag of an entry.
func (s *Store) SetMemoryActive(ctx context.Context, id string, active bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE memory_entries SET active = ?, updated_at = ? WHERE id = ?
	`, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update memory entry: %w", err)
	}
	return requireRows(result)
}

// DeleteMemory removes an entry.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM memory_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete memory entry: %w", err)
	}
	return requireRows(result)
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

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	embeddingJSON, err := marshalEmbedding(doc.Embedding)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (
			id, owner_id, title, content, metadata, embedding, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = excluded.owner_id,
			title = excluded.title,
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at
	`,
		doc.ID,
		string(doc.OwnerID),
		doc.Title,
		doc.Content,
		metadataJSON,
		embeddingJSON,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to store document: %w", err)
	}
	return doc.ID, nil
}

// GetDocument fetches a single document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*memory.Document, error) {
	return s.getDocument(ctx, "id = ?", id)
}

// GetDocumentByTitle fetches a document by its stable title.
func (s *Store) GetDocumentByTitle(ctx context.Context, title string) (*memory.Document, error) {
	return s.getDocument(ctx, "title = ?", title)
}

func (s *Store) getDocument(ctx context.Context, condition string, arg interface{}) (*memory.Document, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, owner_id, title, content, metadata, embedding, created_at, updated_at
		FROM documents WHERE %s
	`, condition), arg)

	doc, err := scanDocumentRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments fetches all documents matching the filter.
func (s *Store) ListDocuments(ctx context.Context, filter store.DocumentFilter) ([]memory.Document, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.OwnerID != nil {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, string(*filter.OwnerID))
	}
	if filter.RequireEmbedding {
		conditions = append(conditions, "embedding IS NOT NULL")
	}

	query := fmt.Sprintf(`
		SELECT id, owner_id, title, content, metadata, embedding, created_at, updated_at
		FROM documents
		WHERE %s
		ORDER BY updated_at DESC
	`, strings.Join(conditions, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []memory.Document
	for rows.Next() {
		doc, err := scanDocumentRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return docs, nil
}

// UpdateDocumentContent updates content, metadata and embedding in one
// transaction so readers never observe a stale (content, embedding) pair.
func (s *Store) UpdateDocumentContent(ctx context.Context, id string, content string, metadata map[string]string, embedding []float32) error {
	if metadata == nil {
		metadata = make(map[string]string)
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	embeddingJSON, err := marshalEmbedding(embedding)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE documents SET content = ?, metadata = ?, embedding = ?, updated_at = ? WHERE id = ?
	`, content, metadataJSON, embeddingJSON, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if err := requireRows(result); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateDocumentEmbedding updates only the embedding of a document.
func (s *Store) UpdateDocumentEmbedding(ctx context.Context, id string, embedding []float32) error {
	embeddingJSON, err := marshalEmbedding(embedding)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE documents SET embedding = ?, updated_at = ? WHERE id = ?
	`, embeddingJSON, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update document embedding: %w", err)
	}
	return requireRows(result)
}

// DeleteDocument removes a document.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return requireRows(result)
}

// PutSession persists a chat session.
func (s *Store) PutSession(ctx context.Context, session memory.Session) (string, error) {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, title, created_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET title = excluded.title
	`, session.ID, session.Title, session.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return session.ID, nil
}

// DeleteSession removes a session and clears the session reference on its
// memories.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE memory_entries SET session_id = '', updated_at = ? WHERE session_id = ?
	`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to clear session references: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := requireRows(result); err != nil {
		return err
	}

	return tx.Commit()
}

// scanMemoryRow scans a memory entry from a row scan function.
func scanMemoryRow(scan func(...interface{}) error) (*memory.Entry, error) {
	var entry memory.Entry
	var ownerID, source string
	var embeddingJSON sql.NullString

	err := scan(
		&entry.ID,
		&ownerID,
		&entry.SessionID,
		&source,
		&entry.Title,
		&entry.Content,
		&entry.Importance,
		&entry.Active,
		&embeddingJSON,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	entry.OwnerID = identity.UserID(ownerID)
	entry.Source = memory.Source(source)
	if embeddingJSON.Valid {
		if err := json.Unmarshal([]byte(embeddingJSON.String), &entry.Embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
		}
	}
	return &entry, nil
}

// scanDocumentRow scans a document from a row scan function.
func scanDocumentRow(scan func(...interface{}) error) (*memory.Document, error) {
	var doc memory.Document
	var ownerID string
	var metadataJSON string
	var embeddingJSON sql.NullString

	err := scan(
		&doc.ID,
		&ownerID,
		&doc.Title,
		&doc.Content,
		&metadataJSON,
		&embeddingJSON,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	doc.OwnerID = identity.UserID(ownerID)
	if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]string)
	}
	if embeddingJSON.Valid {
		if err := json.Unmarshal([]byte(embeddingJSON.String), &doc.Embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
		}
	}
	return &doc, nil
}

// marshalEmbedding encodes a vector as JSON; nil maps to SQL NULL.
func marshalEmbedding(embedding []float32) (interface{}, error) {
	if embedding == nil {
		return nil, nil
	}
	data, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}
	return string(data), nil
}

// requireRows maps zero affected rows to ErrNotFound.
func requireRows(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return errors.ErrNotFound
	}
	return nil
}
