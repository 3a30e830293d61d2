package retrieval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		a := []float32{1, 2, 3}
		assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-9)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		a := []float32{1, 0}
		b := []float32{0, 1}
		assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-9)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		a := []float32{1, 0}
		b := []float32{-1, 0}
		assert.InDelta(t, -1.0, CosineSimilarity(a, b), 1e-9)
	})

	t.Run("scaled vectors keep similarity", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{2, 4, 6}
		assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-9)
	})

	t.Run("symmetric in its arguments", func(t *testing.T) {
		a := []float32{0.3, -1.2, 2.5, 0.7}
		b := []float32{-0.9, 0.4, 1.1, -2.2}
		assert.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))
	})

	t.Run("nil and empty inputs score zero", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
		assert.Equal(t, 0.0, CosineSimilarity(nil, []float32{1}))
		assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, nil))
		assert.Equal(t, 0.0, CosineSimilarity([]float32{}, []float32{}))
	})

	t.Run("mismatched lengths score zero", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{1, 2}
		assert.Equal(t, 0.0, CosineSimilarity(a, b))
	})

	t.Run("zero magnitude scores zero", func(t *testing.T) {
		a := []float32{0, 0, 0}
		b := []float32{1, 2, 3}
		assert.Equal(t, 0.0, CosineSimilarity(a, b))
		assert.Equal(t, 0.0, CosineSimilarity(b, a))
	})

	t.Run("result is finite for tiny magnitudes", func(t *testing.T) {
		a := []float32{1e-20, 1e-20}
		b := []float32{1e-20, 1e-20}
		sim := CosineSimilarity(a, b)
		assert.False(t, math.IsNaN(sim))
		assert.False(t, math.IsInf(sim, 0))
	})
}
