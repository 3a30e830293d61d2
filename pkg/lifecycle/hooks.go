package lifecycle

import (
	"context"

	"github.com/personamind/memcore/pkg/errors"
	"github.com/personamind/memcore/pkg/log"
	"github.com/personamind/memcore/pkg/memory"
	"github.com/personamind/memcore/pkg/retrieval"
	"github.com/personamind/memcore/pkg/scripting"
)

const (
	// beforeStoreFuncName is the name of the Lua function to call before a memory is stored
	beforeStoreFuncName = "before_memory_store"

	// afterContextFuncName is the name of the Lua function to call after a context is built
	afterContextFuncName = "after_context_build"
)

// callBeforeStoreHook calls the before_memory_store Lua hook if available.
// The hook may rewrite content and importance, or veto the store by
// returning false. Hook failures never fail the operation.
func (m *Manager) callBeforeStoreHook(ctx context.Context, entry memory.Entry) (memory.Entry, bool) {
	if m.engine == nil {
		return entry, false
	}

	entryMap := map[string]interface{}{
		"owner_id":   string(entry.OwnerID),
		"session_id": entry.SessionID,
		"source":     string(entry.Source),
		"title":      entry.Title,
		"content":    entry.Content,
		"importance": entry.Importance,
	}

	result, err := m.engine.ExecuteFunction(ctx, beforeStoreFuncName, entryMap)
	if err != nil {
		// A missing hook function is fine - just continue
		if errors.Is(err, scripting.ErrFunctionNotFound) {
			return entry, false
		}
		log.WarnContext(ctx, "Error calling Lua hook",
			"hook", beforeStoreFuncName,
			"error", err)
		return entry, false
	}

	// Returning false vetoes the store
	if vetoed, ok := result.(bool); ok && !vetoed {
		return entry, true
	}

	// A returned map may rewrite content and importance
	resultMap, ok := result.(map[string]interface{})
	if !ok {
		return entry, false
	}
	if content, ok := resultMap["content"].(string); ok && content != "" {
		entry.Content = content
	}
	if importance, ok := resultMap["importance"].(float64); ok {
		entry.Importance = int(importance)
	}
	return entry, false
}

// callAfterContextHook calls the after_context_build Lua hook if
// available. The hook observes the selected results; its return value is
// ignored and errors never propagate.
func (m *Manager) callAfterContextHook(ctx context.Context, results []retrieval.Result) {
	if m.engine == nil {
		return
	}

	lines := make([]map[string]interface{}, len(results))
	for i, r := range results {
		lines[i] = map[string]interface{}{
			"kind":    string(r.Candidate.Kind),
			"title":   r.Candidate.Title(),
			"content": r.Candidate.Content(),
			"score":   r.Score,
		}
	}

	if _, err := m.engine.ExecuteFunction(ctx, afterContextFuncName, lines); err != nil {
		if errors.Is(err, scripting.ErrFunctionNotFound) {
			return
		}
		log.WarnContext(ctx, "Error calling Lua hook",
			"hook", afterContextFuncName,
			"error", err)
	}
}
