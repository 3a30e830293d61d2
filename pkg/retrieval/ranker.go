package retrieval

import (
	"sort"
	"time"

	"github.com/personamind/memcore/pkg/memory"
)

// Kind tags the entity type of a retrieval candidate.
type Kind string

// Candidate kinds
const (
	KindMemory   Kind = "memory"
	KindDocument Kind = "document"
)

// DefaultTopK is the default maximum number of ranked results.
const DefaultTopK = 5

// DefaultImportanceWeight scales a candidate's weight into its score.
// Raw similarity stays dominant; importance acts as a tie-breaker among
// near-equal similarities.
const DefaultImportanceWeight = 0.01

// Candidate is an entity eligible for scoring against a query vector.
// Exactly one of Memory/Document is set, indicated by Kind.
type Candidate struct {
	Kind     Kind
	Memory   *memory.Entry
	Document *memory.Document
}

// MemoryCandidate wraps a memory entry as a candidate.
func MemoryCandidate(e *memory.Entry) Candidate {
	return Candidate{Kind: KindMemory, Memory: e}
}

// DocumentCandidate wraps a document as a candidate.
func DocumentCandidate(d *memory.Document) Candidate {
	return Candidate{Kind: KindDocument, Document: d}
}

// Content returns the retrievable payload of the candidate.
func (c Candidate) Content() string {
	switch c.Kind {
	case KindMemory:
		return c.Memory.Content
	case KindDocument:
		return c.Document.Content
	}
	return ""
}

// Title returns the display title of the candidate, if any.
func (c Candidate) Title() string {
	switch c.Kind {
	case KindMemory:
		return c.Memory.Title
	case KindDocument:
		return c.Document.Title
	}
	return ""
}

// Embedding returns the stored vector of the candidate.
func (c Candidate) Embedding() []float32 {
	switch c.Kind {
	case KindMemory:
		return c.Memory.Embedding
	case KindDocument:
		return c.Document.Embedding
	}
	return nil
}

// Weight returns the importance weight of the candidate. Documents carry
// no explicit importance signal yet and weigh zero.
func (c Candidate) Weight() float64 {
	if c.Kind == KindMemory {
		return float64(c.Memory.Importance)
	}
	return 0.0
}

// updatedAt is the secondary ranking key for equal scores.
func (c Candidate) updatedAt() time.Time {
	switch c.Kind {
	case KindMemory:
		return c.Memory.UpdatedAt
	case KindDocument:
		return c.Document.UpdatedAt
	}
	return time.Time{}
}

// id breaks remaining ties deterministically.
func (c Candidate) id() string {
	switch c.Kind {
	case KindMemory:
		return c.Memory.ID
	case KindDocument:
		return c.Document.ID
	}
	return ""
}

// Result is a scored candidate.
type Result struct {
	Score     float64
	Candidate Candidate
}

// Options configures ranking.
type Options struct {
	// TopK caps the number of results; values <= 0 fall back to DefaultTopK
	TopK int

	// ImportanceWeight scales candidate weight into the score; zero falls
	// back to DefaultImportanceWeight
	ImportanceWeight float64
}

// Rank scores every candidate against the query vector, discards
// non-positive scores, and returns at most TopK results ordered by
// descending score. Equal scores order by most recently updated first,
// then by ID, so ranking is deterministic across runs. Candidates whose
// vector dimension differs from the query score 0 and drop out; they are
// not reported as errors. An empty result means "no relevant context".
func Rank(query []float32, candidates []Candidate, opts Options) []Result {
	if len(query) == 0 {
		return nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	weight := opts.ImportanceWeight
	if weight == 0 {
		weight = DefaultImportanceWeight
	}

	scored := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		similarity := CosineSimilarity(query, c.Embedding())
		score := similarity + c.Weight()*weight
		if score <= 0.0 {
			// Near-orthogonal or negatively correlated content is
			// irrelevant, not a weak match.
			continue
		}
		scored = append(scored, Result{Score: score, Candidate: c})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		ti, tj := scored[i].Candidate.updatedAt(), scored[j].Candidate.updatedAt()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return scored[i].Candidate.id() < scored[j].Candidate.id()
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
