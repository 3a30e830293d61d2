package errors

import (
	"errors"
	"fmt"
)

// Standard errors
var (
	// ErrNotFound is returned when a requested record is not found
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput is returned when the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoAPIKey is returned when no embedding credential is configured.
	// Any operation that requires the embedding provider fails with this error.
	ErrNoAPIKey = errors.New("embedding API key is not configured")

	// ErrEmbeddingProvider is returned when the embedding service call fails
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrStoreUnavailable is returned when the memory store is unavailable
	ErrStoreUnavailable = errors.New("memory store unavailable")

	// ErrLuaExecution is returned when there's an error executing a Lua hook
	ErrLuaExecution = errors.New("lua script execution error")
)

// Wrap wraps an error with additional context
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience function that wraps errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target, and if so, sets
// target to that error value and returns true. Otherwise, it returns false.
// This is a convenience function that wraps errors.As
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
