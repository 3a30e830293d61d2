package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	t.Run("wrapping preserves the sentinel", func(t *testing.T) {
		err := Wrap(ErrNotFound, "loading memory %s", "abc")
		assert.True(t, Is(err, ErrNotFound))
		assert.Equal(t, "loading memory abc: record not found", err.Error())
	})

	t.Run("nil error wraps to nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, "context"))
	})

	t.Run("double wrapping keeps the chain", func(t *testing.T) {
		inner := Wrap(ErrEmbeddingProvider, "request failed")
		outer := Wrap(inner, "embedding query")
		assert.True(t, Is(outer, ErrEmbeddingProvider))
	})
}
