package scripting

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memerrors "github.com/personamind/memcore/pkg/errors"
)

func TestLuaEngine_LoadScript(t *testing.T) {
	engine, err := NewLuaEngine(DefaultConfig())
	require.NoError(t, err)
	defer engine.Close()

	// Test loading a valid script
	err = engine.LoadScript("test", []byte(`
		function hello()
			return "Hello, World!"
		end
	`))
	assert.NoError(t, err)

	// Test loading an invalid script
	err = engine.LoadScript("invalid", []byte(`
		function invalid(
			return "This is not valid Lua"
		end
	`))
	assert.Error(t, err)
}

func TestLuaEngine_LoadScriptFile(t *testing.T) {
	engine, err := NewLuaEngine(DefaultConfig())
	require.NoError(t, err)
	defer engine.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "hook.lua")
	require.NoError(t, os.WriteFile(path, []byte(`
		function from_file()
			return "loaded"
		end
	`), 0o644))

	require.NoError(t, engine.LoadScriptFile(path))

	result, err := engine.ExecuteFunction(context.Background(), "from_file")
	require.NoError(t, err)
	assert.Equal(t, "loaded", result)

	// Missing file is an error
	assert.Error(t, engine.LoadScriptFile(filepath.Join(dir, "missing.lua")))
}

func TestLuaEngine_LoadScriptDir(t *testing.T) {
	engine, err := NewLuaEngine(DefaultConfig())
	require.NoError(t, err)
	defer engine.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`function a() return 1 end`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`function b() return 2 end`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`not lua`), 0o644))

	require.NoError(t, engine.LoadScriptDir(dir))

	_, err = engine.ExecuteFunction(context.Background(), "a")
	assert.NoError(t, err)
	_, err = engine.ExecuteFunction(context.Background(), "b")
	assert.NoError(t, err)
}

func TestLuaEngine_ExecuteFunction(t *testing.T) {
	engine, err := NewLuaEngine(DefaultConfig())
	require.NoError(t, err)
	defer engine.Close()

	// Load a test script
	err = engine.LoadScript("test", []byte(`
		function hello()
			return "Hello, World!"
		end

		function add(a, b)
			return a + b
		end

		function get_table()
			return {
				name = "test",
				value = 123,
				nested = {
					key = "value"
				}
			}
		end

		function get_list()
			return {"one", "two", "three"}
		end

		function use_args(args)
			return args.name .. " is " .. args.age
		end
	`))
	require.NoError(t, err)

	t.Run("string return", func(t *testing.T) {
		result, err := engine.ExecuteFunction(context.Background(), "hello")
		assert.NoError(t, err)
		assert.Equal(t, "Hello, World!", result)
	})

	t.Run("numeric arguments and return", func(t *testing.T) {
		result, err := engine.ExecuteFunction(context.Background(), "add", 2, 3)
		assert.NoError(t, err)
		assert.Equal(t, float64(5), result)
	})

	t.Run("table return converts to map", func(t *testing.T) {
		result, err := engine.ExecuteFunction(context.Background(), "get_table")
		require.NoError(t, err)

		table, ok := result.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "test", table["name"])
		assert.Equal(t, float64(123), table["value"])

		nested, ok := table["nested"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "value", nested["key"])
	})

	t.Run("array-style table converts to slice", func(t *testing.T) {
		result, err := engine.ExecuteFunction(context.Background(), "get_list")
		require.NoError(t, err)

		list, ok := result.([]interface{})
		require.True(t, ok)
		assert.Equal(t, []interface{}{"one", "two", "three"}, list)
	})

	t.Run("map argument converts to table", func(t *testing.T) {
		result, err := engine.ExecuteFunction(context.Background(), "use_args", map[string]interface{}{
			"name": "memcore",
			"age":  1,
		})
		assert.NoError(t, err)
		assert.Equal(t, "memcore is 1", result)
	})

	t.Run("missing function returns sentinel", func(t *testing.T) {
		_, err := engine.ExecuteFunction(context.Background(), "does_not_exist")
		assert.ErrorIs(t, err, ErrFunctionNotFound)
	})

	t.Run("runtime error propagates", func(t *testing.T) {
		err := engine.LoadScript("boom", []byte(`
			function boom()
				error("exploded")
			end
		`))
		require.NoError(t, err)

		_, err = engine.ExecuteFunction(context.Background(), "boom")
		require.Error(t, err)
		assert.ErrorIs(t, err, memerrors.ErrLuaExecution)
		assert.Contains(t, err.Error(), "exploded")
	})
}

func TestLuaEngine_Sandbox(t *testing.T) {
	engine, err := NewLuaEngine(DefaultConfig())
	require.NoError(t, err)
	defer engine.Close()

	err = engine.LoadScript("sandbox", []byte(`
		function try_io()
			return io == nil and os == nil and require == nil
		end
	`))
	require.NoError(t, err)

	result, err := engine.ExecuteFunction(context.Background(), "try_io")
	require.NoError(t, err)
	assert.Equal(t, true, result)
}

func TestLuaEngine_Close(t *testing.T) {
	engine, err := NewLuaEngine(DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, engine.Close())
	// Double close is harmless
	require.NoError(t, engine.Close())

	assert.Error(t, engine.LoadScript("late", []byte(`x = 1`)))
	_, err = engine.ExecuteFunction(context.Background(), "anything")
	assert.Error(t, err)
}
