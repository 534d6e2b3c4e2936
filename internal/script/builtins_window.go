package script

import lua "github.com/yuin/gopher-lua"

// registerWindowBuiltins exposes window_size() and window_values().
// window_size() reports h.win.Len() (0 when the step is not window-wrapped).
// window_values() returns the `window` global table already populated by
// Exec (see buildWindowTable in host.go) as-is; it takes no key argument
// and does not collect a single field across entries.
func (h *Host) registerWindowBuiltins() {
	L := h.L

	L.SetGlobal("window_size", L.NewFunction(func(L *lua.LState) int {
		if h.win == nil {
			L.Push(lua.LNumber(0))
			return 1
		}
		L.Push(lua.LNumber(h.win.Len()))
		return 1
	}))

	L.SetGlobal("window_values", L.NewFunction(func(L *lua.LState) int {
		wt, ok := L.GetGlobal("window").(*lua.LTable)
		if !ok {
			L.Push(L.NewTable())
			return 1
		}
		L.Push(wt)
		return 1
	}))
}
