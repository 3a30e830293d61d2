package identity

// UserID identifies the user that owns memories and documents.
// The empty UserID means the caller is anonymous; anonymous retrieval
// sees only shared records, while authenticated retrieval sees the
// user's own records plus shared ones.
type UserID string

// Scope holds the identity information for a single call into the core.
type Scope struct {
	// UserID is empty for anonymous callers
	UserID UserID

	// SessionID optionally ties the call to a chat session
	SessionID string
}

// NewScope creates a new Scope with the specified user ID and optional session ID.
func NewScope(userID UserID, sessionID string) Scope {
	return Scope{
		UserID:    userID,
		SessionID: sessionID,
	}
}

// Authenticated reports whether the scope carries an authenticated user.
func (s Scope) Authenticated() bool {
	return s.UserID != ""
}
