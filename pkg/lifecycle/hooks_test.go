package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	embmock "github.com/personamind/memcore/pkg/embedding/adapters/mock"
	"github.com/personamind/memcore/pkg/identity"
	storemock "github.com/personamind/memcore/pkg/memory/store/adapters/mock"
	"github.com/personamind/memcore/pkg/scripting"
)

func newHookedManager(t *testing.T, script string) (*Manager, *storemock.MockStore) {
	t.Helper()

	engine, err := scripting.NewLuaEngine(scripting.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	require.NoError(t, engine.LoadScript("hooks.lua", []byte(script)))

	s := storemock.NewMockStore()
	manager, err := NewManager(s, embmock.NewProvider(), engine, Config{})
	require.NoError(t, err)
	return manager, s
}

func TestBeforeStoreHook(t *testing.T) {
	ctx := context.Background()

	t.Run("hook may rewrite content and importance", func(t *testing.T) {
		manager, _ := newHookedManager(t, `
			function before_memory_store(entry)
				entry.content = "rewritten: " .. entry.content
				entry.importance = 9
				return entry
			end
		`)

		entry, err := manager.CreateMemoryFromMessage(ctx, identity.Scope{}, "", "raw fact", nil, 0)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "rewritten: raw fact", entry.Content)
		assert.Equal(t, 9, entry.Importance)
	})

	t.Run("hook may veto the store", func(t *testing.T) {
		manager, s := newHookedManager(t, `
			function before_memory_store(entry)
				return false
			end
		`)

		entry, err := manager.CreateMemoryFromMessage(ctx, identity.Scope{}, "", "never stored", nil, 0)
		require.NoError(t, err)
		assert.Nil(t, entry)

		_, err = s.GetMemory(ctx, "any")
		assert.Error(t, err)
	})

	t.Run("missing hook is a no-op", func(t *testing.T) {
		manager, _ := newHookedManager(t, `
			-- no hooks defined here
			function unrelated() return 1 end
		`)

		entry, err := manager.CreateMemoryFromMessage(ctx, identity.Scope{}, "", "plain fact", nil, 0)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "plain fact", entry.Content)
	})

	t.Run("hook errors never fail the operation", func(t *testing.T) {
		manager, _ := newHookedManager(t, `
			function before_memory_store(entry)
				error("hook exploded")
			end
		`)

		entry, err := manager.CreateMemoryFromMessage(ctx, identity.Scope{}, "", "survives hooks", nil, 0)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "survives hooks", entry.Content)
	})
}

func TestAfterContextHook(t *testing.T) {
	ctx := context.Background()

	t.Run("hook observes the built context", func(t *testing.T) {
		manager, _ := newHookedManager(t, `
			observed = 0
			function after_context_build(lines)
				observed = #lines
			end
			function get_observed()
				return observed
			end
		`)

		_, err := manager.CreateMemoryFromMessage(ctx, identity.Scope{}, "", "observable fact", nil, 0)
		require.NoError(t, err)

		_, err = manager.BuildContext(ctx, identity.Scope{}, "observable fact", nil, 0)
		require.NoError(t, err)

		result, err := manager.engine.ExecuteFunction(ctx, "get_observed")
		require.NoError(t, err)
		assert.Equal(t, float64(1), result)
	})
}
