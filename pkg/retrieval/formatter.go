package retrieval

import (
	"fmt"
	"strings"
)

// Preamble lines prepended to every non-empty context block.
const (
	preambleLine1 = "You have access to the following long-term memories and user documents."
	preambleLine2 = "Use them to personalize your response and keep details consistent over time."
)

// FormatContext renders ranked results into a text block suitable for
// injection into a downstream prompt. An empty result list yields an
// empty string, signalling that there is no context to inject. Scores are
// always printed with exactly three decimal digits.
func FormatContext(results []Result) string {
	if len(results) == 0 {
		return ""
	}

	lines := make([]string, 0, len(results)+3)
	lines = append(lines, preambleLine1, preambleLine2, "")

	for _, r := range results {
		switch r.Candidate.Kind {
		case KindMemory:
			lines = append(lines, fmt.Sprintf("[Memory, score=%.3f] %s", r.Score, r.Candidate.Content()))
		case KindDocument:
			title := r.Candidate.Title()
			if title == "" {
				title = "Untitled document"
			}
			lines = append(lines, fmt.Sprintf("[Document: %s, score=%.3f] %s", title, r.Score, r.Candidate.Content()))
		}
	}

	return strings.Join(lines, "\n")
}
