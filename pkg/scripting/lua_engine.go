package scripting

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	memerrors "github.com/personamind/memcore/pkg/errors"
	"github.com/personamind/memcore/pkg/log"
)

// LuaEngine implements the Engine interface on top of gopher-lua.
// A single LState is shared across calls and guarded by a mutex;
// gopher-lua states are not safe for concurrent use.
type LuaEngine struct {
	mu     sync.Mutex
	state  *lua.LState
	config Config
	closed bool
}

// NewLuaEngine creates a Lua engine with the given configuration.
func NewLuaEngine(config Config) (*LuaEngine, error) {
	L := lua.NewState()

	if config.EnableSandboxing {
		setupSandbox(L)
	} else {
		L.OpenLibs()
	}
	registerAPIFunctions(L)

	return &LuaEngine{
		state:  L,
		config: config,
	}, nil
}

// LoadScript loads a Lua script with the given name and content.
func (e *LuaEngine) LoadScript(name string, content []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("engine is closed")
	}

	fn, err := e.state.Load(bytes.NewReader(content), name)
	if err != nil {
		return fmt.Errorf("failed to load script %s: %w", name, err)
	}

	e.state.Push(fn)
	if err := e.state.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("%w: script %s: %v", memerrors.ErrLuaExecution, name, err)
	}

	log.Debug("Loaded Lua script", "name", name, "bytes", len(content))
	return nil
}

// LoadScriptFile loads a Lua script from a file path.
func (e *LuaEngine) LoadScriptFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read script file %s: %w", path, err)
	}
	return e.LoadScript(filepath.Base(path), content)
}

// LoadScriptDir loads all Lua scripts from a directory.
func (e *LuaEngine) LoadScriptDir(dir string) error {
	return LoadAllScripts(e, dir)
}

// ExecuteFunction calls a previously loaded Lua function with the given
// arguments. Arguments are converted to Lua values; the first return
// value is converted back to Go.
func (e *LuaEngine) ExecuteFunction(ctx context.Context, funcName string, args ...interface{}) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, fmt.Errorf("engine is closed")
	}

	fn := e.state.GetGlobal(funcName)
	if fn == lua.LNil {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, funcName)
	}

	luaFn, ok := fn.(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a function", ErrFunctionNotFound, funcName)
	}

	if e.config.ScriptTimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.config.ScriptTimeoutMs)*time.Millisecond)
		defer cancel()
	}
	e.state.SetContext(ctx)
	defer e.state.RemoveContext()

	luaArgs := make([]lua.LValue, len(args))
	for i, arg := range args {
		luaArgs[i] = convertGoToLua(e.state, arg)
	}

	err := e.state.CallByParam(lua.P{
		Fn:      luaFn,
		NRet:    1,
		Protect: true,
	}, luaArgs...)
	if err != nil {
		return nil, fmt.Errorf("%w: function %s: %v", memerrors.ErrLuaExecution, funcName, err)
	}

	result := e.state.Get(-1)
	e.state.Pop(1)

	return convertLuaToGo(result), nil
}

// Close releases resources associated with the engine.
func (e *LuaEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.state.Close()
	return nil
}
