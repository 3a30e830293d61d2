package retrieval

import (
	"math"
)

// CosineSimilarity computes the cosine similarity between two vectors.
//
// It is deliberately fail-soft: nil inputs, zero-length inputs, mismatched
// lengths and zero-magnitude vectors all yield exactly 0.0 instead of an
// error, so a single bad candidate drops out of ranking without aborting
// the whole retrieval.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0.0 || normB == 0.0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
