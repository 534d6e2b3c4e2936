package script

import lua "github.com/yuin/gopher-lua"

// registerControlBuiltins wires emit/emit_all/skip/exit/terminate: every
// one of these just flips a field on h.flags rather than touching any
// thread-local or global mutable cell, so nothing here needs locking even
// though the Host is reused across many Exec calls.
func (h *Host) registerControlBuiltins() {
	L := h.L

	L.SetGlobal("emit", L.NewFunction(func(L *lua.LState) int {
		text := L.CheckString(1)
		if h.flags.DataMode {
			L.RaiseError("emit() can only be used in line mode (when 'data' is None)")
			return 0
		}
		h.flags.Emissions = append(h.flags.Emissions, text)
		return 0
	}))

	L.SetGlobal("emit_all", L.NewFunction(func(L *lua.LState) int {
		if h.flags.DataMode {
			L.RaiseError("emit_all() can only be used in line mode (when 'data' is None)")
			return 0
		}
		arg := L.CheckTable(1)
		arg.ForEach(func(_, v lua.LValue) {
			h.flags.Emissions = append(h.flags.Emissions, lua.LVAsString(v))
		})
		return 0
	}))

	L.SetGlobal("skip", L.NewFunction(func(L *lua.LState) int {
		h.flags.Skip = true
		return 0
	}))

	L.SetGlobal("exit", L.NewFunction(func(L *lua.LState) int {
		h.flags.Terminate = true
		if L.GetTop() >= 1 && L.Get(1) != lua.LNil {
			h.flags.TerminateMsg = L.CheckString(1)
		}
		return 0
	}))

	L.SetGlobal("terminate", L.NewFunction(func(L *lua.LState) int {
		h.flags.Terminate = true
		if L.GetTop() >= 1 && L.Get(1) != lua.LNil {
			h.flags.TerminateMsg = L.CheckString(1)
		}
		return 0
	}))
}
