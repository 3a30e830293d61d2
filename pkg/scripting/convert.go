package scripting

import (
	lua "github.com/yuin/gopher-lua"
)

// convertGoToLua converts a Go value to its Lua representation.
// Maps become tables keyed by string; slices become array-style tables.
func convertGoToLua(L *lua.LState, value interface{}) lua.LValue {
	switch v := value.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case int:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case float32:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case string:
		return lua.LString(v)
	case []interface{}:
		table := L.NewTable()
		for i, item := range v {
			table.RawSetInt(i+1, convertGoToLua(L, item))
		}
		return table
	case []map[string]interface{}:
		table := L.NewTable()
		for i, item := range v {
			table.RawSetInt(i+1, convertGoToLua(L, item))
		}
		return table
	case []string:
		table := L.NewTable()
		for i, item := range v {
			table.RawSetInt(i+1, lua.LString(item))
		}
		return table
	case []float32:
		table := L.NewTable()
		for i, item := range v {
			table.RawSetInt(i+1, lua.LNumber(item))
		}
		return table
	case map[string]interface{}:
		table := L.NewTable()
		for key, item := range v {
			table.RawSetString(key, convertGoToLua(L, item))
		}
		return table
	case map[string]string:
		table := L.NewTable()
		for key, item := range v {
			table.RawSetString(key, lua.LString(item))
		}
		return table
	default:
		return lua.LNil
	}
}

// convertLuaToGo converts a Lua value back to a Go value. Tables with
// contiguous integer keys starting at 1 become []interface{}; anything
// else becomes map[string]interface{}.
func convertLuaToGo(value lua.LValue) interface{} {
	switch v := value.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		return convertLuaTable(v)
	default:
		return nil
	}
}

func convertLuaTable(table *lua.LTable) interface{} {
	arrayLen := table.Len()
	if arrayLen > 0 {
		isArray := true
		table.ForEach(func(key, _ lua.LValue) {
			if n, ok := key.(lua.LNumber); !ok || n != lua.LNumber(int(n)) || int(n) < 1 || int(n) > arrayLen {
				isArray = false
			}
		})
		if isArray {
			result := make([]interface{}, 0, arrayLen)
			for i := 1; i <= arrayLen; i++ {
				result = append(result, convertLuaToGo(table.RawGetInt(i)))
			}
			return result
		}
	}

	result := make(map[string]interface{})
	table.ForEach(func(key, item lua.LValue) {
		result[key.String()] = convertLuaToGo(item)
	})
	return result
}
