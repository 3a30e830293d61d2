package memory

import (
	"time"

	"github.com/personamind/memcore/pkg/identity"
)

// Source describes where a memory entry came from.
type Source string

// Memory sources
const (
	SourceChat     Source = "chat"
	SourceDocument Source = "document"
	SourceManual   Source = "manual"
)

// Entry is a long-term memory fact derived from a conversation or
// entered manually. Entries are soft-deleted via the Active flag and are
// only retrievable while Active with a non-nil embedding.
type Entry struct {
	// ID is a unique identifier for the entry
	ID string

	// OwnerID is the user this memory belongs to; empty when anonymous
	OwnerID identity.UserID

	// SessionID is the chat session that produced this memory, if any.
	// Deleting a session clears this field but keeps the memory.
	SessionID string

	// Source records where this memory came from
	Source Source

	// Title is an optional short label for the memory
	Title string

	// Content is the remembered fact, the retrievable payload
	Content string

	// Importance nudges ranking order; higher values are preferred
	Importance int

	// Active is the soft-delete flag; inactive entries are ignored in retrieval
	Active bool

	// Embedding is the vector representation of Content for semantic search
	Embedding []float32

	// CreatedAt is when this entry was initially stored
	CreatedAt time.Time

	// UpdatedAt is when this entry was last modified
	UpdatedAt time.Time
}

// Retrievable reports whether the entry may enter a candidate set.
func (e *Entry) Retrievable() bool {
	return e.Active && len(e.Embedding) > 0
}

// Document is a longer-form reference text (a resume, notes, skills)
// whose content is embedded for semantic search. Content and embedding
// are always updated together; a document is never left with an
// embedding computed for stale content.
type Document struct {
	// ID is a unique identifier for the document
	ID string

	// OwnerID is the user this document belongs to; empty means shared globally
	OwnerID identity.UserID

	// Title names the document; seeding relies on titles being stable
	Title string

	// Content is the plain text of the document
	Content string

	// Metadata holds free-form key-value data such as tags or skills
	Metadata map[string]string

	// Embedding is the vector representation of Content
	Embedding []float32

	// CreatedAt is when this document was created
	CreatedAt time.Time

	// UpdatedAt is when this document was last modified
	UpdatedAt time.Time
}

// Role identifies the author of a chat message.
type Role string

// Message roles
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Session is a single chat conversation. Sessions are anonymous; memories
// produced during a session keep a reference back to it.
type Session struct {
	ID        string
	Title     string
	CreatedAt time.Time
}

// Message is an individual message within a chat session.
type Message struct {
	ID        string
	SessionID string
	Role      Role
	Text      string
	CreatedAt time.Time
}
