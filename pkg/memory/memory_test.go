package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntry_Retrievable(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  bool
	}{
		{"active with embedding", Entry{Active: true, Embedding: []float32{1}}, true},
		{"inactive with embedding", Entry{Active: false, Embedding: []float32{1}}, false},
		{"active without embedding", Entry{Active: true}, false},
		{"active with empty embedding", Entry{Active: true, Embedding: []float32{}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.Retrievable())
		})
	}
}
