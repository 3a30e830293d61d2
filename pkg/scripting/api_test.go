package scripting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPI_JSON(t *testing.T) {
	engine, err := NewLuaEngine(DefaultConfig())
	require.NoError(t, err)
	defer engine.Close()

	err = engine.LoadScript("json", []byte(`
		function roundtrip()
			local encoded = memcore.json_encode({name = "test", value = 42})
			local decoded = memcore.json_decode(encoded)
			return decoded.name .. ":" .. decoded.value
		end

		function decode_bad()
			local decoded, err = memcore.json_decode("{not json")
			return decoded == nil and err ~= nil
		end
	`))
	require.NoError(t, err)

	result, err := engine.ExecuteFunction(context.Background(), "roundtrip")
	require.NoError(t, err)
	assert.Equal(t, "test:42", result)

	result, err = engine.ExecuteFunction(context.Background(), "decode_bad")
	require.NoError(t, err)
	assert.Equal(t, true, result)
}

func TestAPI_UUID(t *testing.T) {
	engine, err := NewLuaEngine(DefaultConfig())
	require.NoError(t, err)
	defer engine.Close()

	err = engine.LoadScript("uuid", []byte(`
		function two_uuids()
			return memcore.uuid() .. "|" .. memcore.uuid()
		end
	`))
	require.NoError(t, err)

	result, err := engine.ExecuteFunction(context.Background(), "two_uuids")
	require.NoError(t, err)

	s, ok := result.(string)
	require.True(t, ok)
	// Two distinct 36-char UUIDs separated by a pipe
	assert.Len(t, s, 73)
	assert.NotEqual(t, s[:36], s[37:])
}

func TestAPI_Time(t *testing.T) {
	engine, err := NewLuaEngine(DefaultConfig())
	require.NoError(t, err)
	defer engine.Close()

	err = engine.LoadScript("time", []byte(`
		function format_epoch()
			return memcore.format_time(0, "2006-01-02")
		end

		function now_is_positive()
			return memcore.now() > 0
		end
	`))
	require.NoError(t, err)

	result, err := engine.ExecuteFunction(context.Background(), "format_epoch")
	require.NoError(t, err)
	assert.Equal(t, "1970-01-01", result)

	result, err = engine.ExecuteFunction(context.Background(), "now_is_positive")
	require.NoError(t, err)
	assert.Equal(t, true, result)
}
