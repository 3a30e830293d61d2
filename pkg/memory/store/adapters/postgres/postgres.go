package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	memerrors "github.com/personamind/memcore/pkg/errors"
	"github.com/personamind/memcore/pkg/identity"
	"github.com/personamind/memcore/pkg/log"
	"github.com/personamind/memcore/pkg/memory"
	"github.com/personamind/memcore/pkg/memory/store"
)

// Store implements the store.Store interface using PostgreSQL with the
// pgvector extension. Embeddings live in VECTOR(n) columns; partial
// updates touch only the named columns plus updated_at.
type Store struct {
	db            *pgxpool.Pool
	dimensionSize int
}

// Config contains the configuration for a postgres store.
type Config struct {
	// DSN is the PostgreSQL connection string
	DSN string

	// DimensionSize is the pinned embedding dimension
	DimensionSize int
}

// DB returns the underlying connection pool (used for testing).
func (s *Store) DB() *pgxpool.Pool {
	return s.db
}

// NewStore connects to PostgreSQL and ensures the schema exists.
func NewStore(ctx context.Context, config Config) (*Store, error) {
	if config.DSN == "" {
		return nil, errors.New("connection string cannot be empty")
	}
	if config.DimensionSize <= 0 {
		config.DimensionSize = 1536
	}

	db, err := pgxpool.New(ctx, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to PostgreSQL: %v", memerrors.ErrStoreUnavailable, err)
	}

	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to ping PostgreSQL: %v", memerrors.ErrStoreUnavailable, err)
	}

	s := &Store{
		db:            db,
		dimensionSize: config.DimensionSize,
	}

	if err := s.initializeSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initializeSchema creates the tables and indices if they don't exist.
// The migrations/ directory carries the same schema for deployments that
// manage it with golang-migrate instead.
func (s *Store) initializeSchema(ctx context.Context) error {
	var extensionExists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')").Scan(&extensionExists)
	if err != nil {
		return fmt.Errorf("failed to check for pgvector extension: %w", err)
	}

	if !extensionExists {
		_, err = s.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
		if err != nil {
			return fmt.Errorf("failed to create pgvector extension: %w", err)
		}
		log.Info("Created pgvector extension")
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memory_entries (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL DEFAULT '',
			session_id TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			importance INTEGER NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			embedding VECTOR(%d),
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`, s.dimensionSize),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding VECTOR(%d),
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`, s.dimensionSize),
		"CREATE INDEX IF NOT EXISTS memory_entries_owner_id_idx ON memory_entries (owner_id)",
		"CREATE INDEX IF NOT EXISTS memory_entries_session_id_idx ON memory_entries (session_id)",
		"CREATE INDEX IF NOT EXISTS memory_entries_active_idx ON memory_entries (active)",
		"CREATE INDEX IF NOT EXISTS documents_owner_id_idx ON documents (owner_id)",
		"CREATE INDEX IF NOT EXISTS documents_title_idx ON documents (title)",
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run schema statement: %w", err)
		}
	}

	return nil
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// PutMemory persists a memory entry.
func (s *Store) PutMemory(ctx context.Context, entry memory.Entry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Embedding != nil && len(entry.Embedding) != s.dimensionSize {
		return "", fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(entry.Embedding), s.dimensionSize)
	}

	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	_, err := s.db.Exec(ctx, `
		INSERT INTO memory_entries (
			id, owner_id, session_id, source, title, content, importance, active, embedding, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = $2,
			session_id = $3,
			source = $4,
			title = $5,
			content = $6,
			importance = $7,
			active = $8,
			embedding = $9::vector,
			updated_at = $11
	`,
		entry.ID,
		string(entry.OwnerID),
		entry.SessionID,
		string(entry.Source),
		entry.Title,
		entry.Content,
		entry.Importance,
		entry.Active,
		embedToString(entry.Embedding),
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to store memory entry: %w", err)
	}

	log.DebugContext(ctx, "Stored memory entry", "id", entry.ID, "owner_id", entry.OwnerID)
	return entry.ID, nil
}

// GetMemory fetches a single memory entry by ID.
func (s *Store) GetMemory(ctx context.Context, id string) (*memory.Entry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner_id, session_id, source, title, content, importance, active, embedding::text, created_at, updated_at
		FROM memory_entries
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query memory entry: %w", err)
	}
	defer rows.Close()

	entries, err := scanMemoryRows(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, memerrors.ErrNotFound
	}
	return &entries[0], nil
}

// ListMemories fetches all memory entries matching the filter.
func (s *Store) ListMemories(ctx context.Context, filter store.MemoryFilter) ([]memory.Entry, error) {
	conditions := []string{"TRUE"}
	var args []interface{}

	if filter.OwnerID != nil {
		args = append(args, string(*filter.OwnerID))
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if filter.SessionID != nil {
		args = append(args, *filter.SessionID)
		conditions = append(conditions, fmt.Sprintf("session_id = $%d", len(args)))
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "active = TRUE")
	}
	if filter.RequireEmbedding {
		conditions = append(conditions, "embedding IS NOT NULL")
	}

	query := fmt.Sprintf(`
		SELECT id, owner_id, session_id, source, title, content, importance, active, embedding::text, created_at, updated_at
		FROM memory_entries
		WHERE %s
		ORDER BY updated_at DESC
	`, strings.Join(conditions, " AND "))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list memory entries: %w", err)
	}
	defer rows.Close()

	return scanMemoryRows(rows)
}

// UpdateMemoryContent updates content, embedding and importance together.
func (s *Store) UpdateMemoryContent(ctx context.Context, id string, content string, embedding []float32, importance int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE memory_entries
		SET content = $1, embedding = $2::vector, importance = $3, updated_at = $4
		WHERE id = $5
	`, content, embedToString(embedding), importance, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update memory entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return memerrors.ErrNotFound
	}
	return nil
}

// SetMemoryActive flips the soft-delete flag of an entry.
func (s *Store) SetMemoryActive(ctx context.Context, id string, active bool) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE memory_entries SET active = $1, updated_at = $2 WHERE id = $3
	`, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update memory entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return memerrors.ErrNotFound
	}
	return nil
}

// DeleteMemory removes an entry.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM memory_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete memory entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return memerrors.ErrNotFound
	}
	return nil
}

// PutDocument persists a document.
func (s *Store) PutDocument(ctx context.Context, doc memory.Document) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Embedding != nil && len(doc.Embedding) != s.dimensionSize {
		return "", fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(doc.Embedding), s.dimensionSize)
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]string)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err = s.db.Exec(ctx, `
		INSERT INTO documents (
			id, owner_id, title, content, metadata, embedding, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6::vector, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = $2,
			title = $3,
			content = $4,
			metadata = $5,
			embedding = $6::vector,
			updated_at = $8
	`,
		doc.ID,
		string(doc.OwnerID),
		doc.Title,
		doc.Content,
		metadataJSON,
		embedToString(doc.Embedding),
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to store document: %w", err)
	}

	log.DebugContext(ctx, "Stored document", "id", doc.ID, "title", doc.Title)
	return doc.ID, nil
}

// GetDocument fetches a single document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*memory.Document, error) {
	return s.getDocument(ctx, "id = $1", id)
}

// GetDocumentByTitle fetches a document by its stable title.
func (s *Store) GetDocumentByTitle(ctx context.Context, title string) (*memory.Document, error) {
	return s.getDocument(ctx, "title = $1", title)
}

func (s *Store) getDocument(ctx context.Context, condition string, arg interface{}) (*memory.Document, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf(`
		SELECT id, owner_id, title, content, metadata, embedding::text, created_at, updated_at
		FROM documents
		WHERE %s
	`, condition), arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	defer rows.Close()

	docs, err := scanDocumentRows(rows)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, memerrors.ErrNotFound
	}
	return &docs[0], nil
}

// ListDocuments fetches all documents matching the filter.
func (s *Store) ListDocuments(ctx context.Context, filter store.DocumentFilter) ([]memory.Document, error) {
	conditions := []string{"TRUE"}
	var args []interface{}

	if filter.OwnerID != nil {
		args = append(args, string(*filter.OwnerID))
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if filter.RequireEmbedding {
		conditions = append(conditions, "embedding IS NOT NULL")
	}

	query := fmt.Sprintf(`
		SELECT id, owner_id, title, content, metadata, embedding::text, created_at, updated_at
		FROM documents
		WHERE %s
		ORDER BY updated_at DESC
	`, strings.Join(conditions, " AND "))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	return scanDocumentRows(rows)
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

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `
		UPDATE documents
		SET content = $1, metadata = $2, embedding = $3::vector, updated_at = $4
		WHERE id = $5
	`, content, metadataJSON, embedToString(embedding), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = memerrors.ErrNotFound
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateDocumentEmbedding updates only the embedding of a document.
func (s *Store) UpdateDocumentEmbedding(ctx context.Context, id string, embedding []float32) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE documents SET embedding = $1::vector, updated_at = $2 WHERE id = $3
	`, embedToString(embedding), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update document embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return memerrors.ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return memerrors.ErrNotFound
	}
	return nil
}

// PutSession persists a chat session.
func (s *Store) PutSession(ctx context.Context, session memory.Session) (string, error) {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO chat_sessions (id, title, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET title = $2
	`, session.ID, session.Title, session.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return session.ID, nil
}

// DeleteSession removes a session and clears the session reference on its
// memories (SET NULL semantics).
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `
		UPDATE memory_entries SET session_id = '', updated_at = $1 WHERE session_id = $2
	`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to clear session references: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = memerrors.ErrNotFound
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// scanMemoryRows converts database rows to memory entries.
func scanMemoryRows(rows pgx.Rows) ([]memory.Entry, error) {
	var entries []memory.Entry

	for rows.Next() {
		var entry memory.Entry
		var ownerID, source string
		var embeddingStr *string

		err := rows.Scan(
			&entry.ID,
			&ownerID,
			&entry.SessionID,
			&source,
			&entry.Title,
			&entry.Content,
			&entry.Importance,
			&entry.Active,
			&embeddingStr,
			&entry.CreatedAt,
			&entry.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		entry.OwnerID = identity.UserID(ownerID)
		entry.Source = memory.Source(source)
		if embeddingStr != nil {
			entry.Embedding = stringToEmbed(*embeddingStr)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return entries, nil
}

// scanDocumentRows converts database rows to documents.
func scanDocumentRows(rows pgx.Rows) ([]memory.Document, error) {
	var docs []memory.Document

	for rows.Next() {
		var doc memory.Document
		var ownerID string
		var metadataJSON []byte
		var embeddingStr *string

		err := rows.Scan(
			&doc.ID,
			&ownerID,
			&doc.Title,
			&doc.Content,
			&metadataJSON,
			&embeddingStr,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		doc.OwnerID = identity.UserID(ownerID)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]string)
		}
		if embeddingStr != nil {
			doc.Embedding = stringToEmbed(*embeddingStr)
		}

		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return docs, nil
}

// embedToString converts []float32 to the pgvector text format. A nil
// vector maps to SQL NULL.
func embedToString(embedding []float32) *string {
	if embedding == nil {
		return nil
	}
	elements := make([]string, len(embedding))
	for i, v := range embedding {
		elements[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	s := "[" + strings.Join(elements, ",") + "]"
	return &s
}

// stringToEmbed converts the pgvector text format back to []float32.
func stringToEmbed(embeddingStr string) []float32 {
	embeddingStr = strings.TrimPrefix(embeddingStr, "[")
	embeddingStr = strings.TrimSuffix(embeddingStr, "]")
	if embeddingStr == "" {
		return nil
	}

	elements := strings.Split(embeddingStr, ",")
	embedding := make([]float32, len(elements))

	for i, element := range elements {
		val, err := strconv.ParseFloat(strings.TrimSpace(element), 32)
		if err != nil {
			log.Error("Failed to parse embedding element", "error", err, "element", element)
			val = 0
		}
		embedding[i] = float32(val)
	}

	return embedding
}
