package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/personamind/memcore/pkg/log"
)

// setupSandbox configures a restricted sandbox environment for Lua scripts.
// It opens the standard libraries and then removes dangerous entry points.
func setupSandbox(L *lua.LState) {
	L.OpenLibs()

	// Explicitly make unsafe modules nil
	L.SetGlobal("io", lua.LNil)
	L.SetGlobal("os", lua.LNil)
	L.SetGlobal("package", lua.LNil)
	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("load", lua.LNil)

	// Redirect print to the structured logger
	L.SetGlobal("print", L.NewFunction(safePrint))
}

// safePrint redirects Lua's print to our logger
func safePrint(L *lua.LState) int {
	top := L.GetTop()
	args := make([]interface{}, top)

	for i := 1; i <= top; i++ {
		args[i-1] = convertLuaToGo(L.Get(i))
	}

	log.Debug("Lua print", "args", args)
	return 0
}
