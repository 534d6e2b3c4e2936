package script

import lua "github.com/yuin/gopher-lua"

// registerGlobalsBuiltins exposes the cross-record store as
// get_global/set_global for arbitrary values and inc/dec/get_counter/
// reset_counter for the separate integer-counter table. glob is also
// reachable directly as a table-like global (see Exec's "glob" binding);
// these functions exist for scripts that prefer calls to indexing, and for
// the counter table, which has no direct global binding at all.
func (h *Host) registerGlobalsBuiltins() {
	L := h.L

	L.SetGlobal("get_global", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		v, ok := h.store.Get(name)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(toLua(L, v))
		return 1
	}))

	L.SetGlobal("set_global", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		val := fromLua(L.Get(2))
		h.store.Set(name, val)
		return 0
	}))

	L.SetGlobal("inc", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		delta := int64(1)
		if L.GetTop() >= 2 && L.Get(2) != lua.LNil {
			delta = L.CheckInt64(2)
		}
		L.Push(lua.LNumber(h.store.Inc(name, delta)))
		return 1
	}))

	L.SetGlobal("dec", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		delta := int64(1)
		if L.GetTop() >= 2 && L.Get(2) != lua.LNil {
			delta = L.CheckInt64(2)
		}
		L.Push(lua.LNumber(h.store.Inc(name, -delta)))
		return 1
	}))

	L.SetGlobal("get_counter", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(lua.LNumber(h.store.Counter(name)))
		return 1
	}))

	L.SetGlobal("reset_counter", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		h.store.ResetCounter(name)
		return 0
	}))
}
