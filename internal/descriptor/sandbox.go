package descriptor

import (
	lua "github.com/yuin/gopher-lua"
)

// descriptorLibs are the only standard libraries a descriptor can reach.
// os, io, package and debug are never opened.
var descriptorLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// blockedGlobals are base-library functions that load code from outside
// the descriptor.
var blockedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "require", "module"}

// newSandboxedVM creates a Lua VM that can build tables and strings but
// cannot touch the filesystem, run commands or load other code.
func newSandboxedVM() *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: 64,
	})

	for _, lib := range descriptorLibs {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	return L
}
