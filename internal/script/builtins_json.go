package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/stelp/stelp/internal/format"
)

func (h *Host) registerJSONBuiltins() {
	L := h.L

	L.SetGlobal("parse_json", L.NewFunction(func(L *lua.LState) int {
		text := L.CheckString(1)
		v, err := format.DecodeJSONValue(text)
		if err != nil {
			L.RaiseError("failed to parse JSON: %v", err)
			return 0
		}
		L.Push(toLua(L, v))
		return 1
	}))

	L.SetGlobal("dump_json", L.NewFunction(func(L *lua.LState) int {
		v := fromLua(L.Get(1))
		s, err := format.EncodeJSONValue(v)
		if err != nil {
			L.RaiseError("failed to encode JSON: %v", err)
			return 0
		}
		L.Push(lua.LString(s))
		return 1
	}))
}
