package identity

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey int

const (
	// scopeKey is the key for storing a Scope in a context.Context
	scopeKey contextKey = iota
)

// ContextWithScope adds a Scope to a context.Context.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

// ScopeFromContext retrieves the Scope from a context.Context.
// If no Scope is found, it returns a zero-valued (anonymous) Scope and false.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeKey).(Scope)
	return scope, ok
}
