package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync"

	"github.com/personamind/memcore/pkg/errors"
)

// Call represents a recorded method call on the mock provider.
type Call struct {
	// Method is the name of the method that was called.
	Method string

	// Texts contains the texts passed to the method.
	Texts []string
}

// Provider implements the embedding.Provider interface with canned vectors.
// When no canned vector matches, a deterministic vector derived from the
// text is returned so that equal texts always embed identically.
type Provider struct {
	// cannedEmbeddings maps text to predetermined embeddings
	cannedEmbeddings map[string][]float32

	// dimensions is the vector dimension for generated embeddings
	dimensions int

	// err, when set, is returned by every call
	err error

	// mutex protects the map and history from concurrent access
	mutex sync.RWMutex

	// callHistory records all calls to Embed and EmbedBatch
	callHistory []Call
}

// Option is a function that configures a mock Provider.
type Option func(*Provider)

// WithEmbedding sets a canned embedding for a specific text.
func WithEmbedding(text string, vector []float32) Option {
	return func(p *Provider) {
		p.cannedEmbeddings[text] = vector
	}
}

// WithDimensions sets the dimension used for generated embeddings.
func WithDimensions(n int) Option {
	return func(p *Provider) {
		p.dimensions = n
	}
}

// WithError makes every call fail with the given error.
func WithError(err error) Option {
	return func(p *Provider) {
		p.err = err
	}
}

// NewProvider creates a new mock Provider with the given options.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		cannedEmbeddings: make(map[string][]float32),
		dimensions:       8,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dimensions returns the vector dimension for generated embeddings.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// Embed generates an embedding for a single text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for the given texts, in input order.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.mutex.Lock()
	p.callHistory = append(p.callHistory, Call{Method: "EmbedBatch", Texts: texts})
	p.mutex.Unlock()

	if p.err != nil {
		return nil, errors.Wrap(errors.ErrEmbeddingProvider, "%v", p.err)
	}

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, len(texts))
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	for i, text := range texts {
		if canned, ok := p.cannedEmbeddings[text]; ok {
			vectors[i] = canned
			continue
		}
		vectors[i] = deterministicVector(text, p.dimensions)
	}
	return vectors, nil
}

// CallHistory returns a copy of the recorded calls.
func (p *Provider) CallHistory() []Call {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	history := make([]Call, len(p.callHistory))
	copy(history, p.callHistory)
	return history
}

// deterministicVector derives a unit-length vector from the text so that
// identical texts embed identically and similarity values are stable.
func deterministicVector(text string, dimensions int) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dimensions)
	var norm float64
	for i := range vec {
		// Simple xorshift over the seed for reproducible components
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v := float64(int64(seed%2000)-1000) / 1000.0
		vec[i] = float32(v)
		norm += v * v
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
