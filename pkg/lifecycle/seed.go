package lifecycle

import (
	"context"

	"github.com/personamind/memcore/pkg/errors"
	"github.com/personamind/memcore/pkg/log"
	"github.com/personamind/memcore/pkg/memory"
)

// SeedDocumentTitle is the stable title that identifies the built-in
// profile document. Seeding keys on the title, never the ID, so the
// document survives store rebuilds.
const SeedDocumentTitle = "Assistant owner profile"

// seedDocumentContent is the built-in profile text. Deployments replace
// this with their own summary; the seeding logic only cares that the
// stored copy matches the compiled-in text.
const seedDocumentContent = `Professional summary for the assistant's owner.

Background: software engineer with experience across backend services,
data pipelines, and infrastructure tooling. Comfortable with Go, Python,
and SQL. Prefers concise technical answers with concrete examples.

Interests: distributed systems, developer tooling, long-distance running.

Communication style: direct, informal, appreciates follow-up questions
when requirements are ambiguous.`

var seedDocumentMetadata = map[string]string{
	"source":   "seed",
	"category": "profile",
}

// EnsureSeedDocument makes sure the built-in profile document exists
// with current content and a matching embedding. It is idempotent:
// repeated calls with unchanged text write nothing. Every failure is
// logged and swallowed so application startup never blocks on seeding.
func (m *Manager) EnsureSeedDocument(ctx context.Context) {
	existing, err := m.store.GetDocumentByTitle(ctx, SeedDocumentTitle)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		log.WarnContext(ctx, "Seed document lookup failed", "error", err)
		return
	}

	if existing != nil && existing.Content == seedDocumentContent && len(existing.Embedding) > 0 {
		return
	}

	emb, err := m.provider.Embed(ctx, seedDocumentContent)
	if err != nil {
		log.WarnContext(ctx, "Seed document embedding failed", "error", err)
		return
	}

	if existing == nil {
		doc := memory.Document{
			Title:     SeedDocumentTitle,
			Content:   seedDocumentContent,
			Metadata:  seedDocumentMetadata,
			Embedding: emb,
		}
		if _, err := m.store.PutDocument(ctx, doc); err != nil {
			log.WarnContext(ctx, "Seed document create failed", "error", err)
			return
		}
		log.InfoContext(ctx, "Created seed document", "title", SeedDocumentTitle)
		return
	}

	if err := m.store.UpdateDocumentContent(ctx, existing.ID, seedDocumentContent, seedDocumentMetadata, emb); err != nil {
		log.WarnContext(ctx, "Seed document update failed", "error", err)
		return
	}
	log.InfoContext(ctx, "Refreshed seed document", "title", SeedDocumentTitle)
}
