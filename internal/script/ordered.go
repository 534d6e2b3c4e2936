package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/stelp/stelp/internal/record"
)

// mapProxy and listProxy back the `data` and `glob` script bindings: plain
// Lua tables do not preserve string-key insertion order, which would
// silently break the "structured values preserve insertion order" rule the
// moment a script read `data` and wrote it back unchanged. Wrapping the
// underlying record.Map/record.List in userdata with custom __index and
// __newindex lets every script-side field read/write go straight through
// to the ordered Go structure instead of through Lua's native hash table.
type mapProxy struct{ m *record.Map }
type listProxy struct{ l *record.List }

const mapProxyMeta = "stelp.map"
const listProxyMeta = "stelp.list"

func registerProxyMetatables(L *lua.LState) {
	mapMT := L.NewTypeMetatable(mapProxyMeta)
	L.SetField(mapMT, "__index", L.NewFunction(mapProxyIndex))
	L.SetField(mapMT, "__newindex", L.NewFunction(mapProxyNewIndex))
	L.SetField(mapMT, "__len", L.NewFunction(mapProxyLen))
	L.SetField(mapMT, "__pairs", L.NewFunction(mapProxyPairs))

	listMT := L.NewTypeMetatable(listProxyMeta)
	L.SetField(listMT, "__index", L.NewFunction(listProxyIndex))
	L.SetField(listMT, "__newindex", L.NewFunction(listProxyNewIndex))
	L.SetField(listMT, "__len", L.NewFunction(listProxyLen))
}

func newMapProxy(L *lua.LState, m *record.Map) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = &mapProxy{m: m}
	L.SetMetatable(ud, L.GetTypeMetatable(mapProxyMeta))
	return ud
}

func newListProxy(L *lua.LState, l *record.List) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = &listProxy{l: l}
	L.SetMetatable(ud, L.GetTypeMetatable(listProxyMeta))
	return ud
}

func asMapProxy(L *lua.LState, idx int) *mapProxy {
	ud, ok := L.CheckUserData(idx).Value.(*mapProxy)
	if !ok {
		L.ArgError(idx, "expected ordered map")
		return nil
	}
	return ud
}

func mapProxyIndex(L *lua.LState) int {
	p := asMapProxy(L, 1)
	key := L.CheckString(2)
	v, ok := p.m.Get(key)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(toLua(L, v))
	return 1
}

func mapProxyNewIndex(L *lua.LState) int {
	p := asMapProxy(L, 1)
	key := L.CheckString(2)
	val := L.Get(3)
	if val == lua.LNil {
		p.m.Delete(key)
		return 0
	}
	p.m.Set(key, fromLua(val))
	return 0
}

func mapProxyLen(L *lua.LState) int {
	p := asMapProxy(L, 1)
	L.Push(lua.LNumber(p.m.Len()))
	return 1
}

// mapProxyPairs implements Lua 5.2-style __pairs so `for k, v in pairs(data)
// do` walks keys in insertion order instead of failing with "attempt to
// iterate a userdata value".
func mapProxyPairs(L *lua.LState) int {
	p := asMapProxy(L, 1)
	keys := p.m.Keys()
	i := 0
	iter := L.NewFunction(func(L *lua.LState) int {
		if i >= len(keys) {
			L.Push(lua.LNil)
			return 1
		}
		k := keys[i]
		i++
		v, _ := p.m.Get(k)
		L.Push(lua.LString(k))
		L.Push(toLua(L, v))
		return 2
	})
	L.Push(iter)
	L.Push(L.Get(1))
	L.Push(lua.LNil)
	return 3
}

func asListProxy(L *lua.LState, idx int) *listProxy {
	ud, ok := L.CheckUserData(idx).Value.(*listProxy)
	if !ok {
		L.ArgError(idx, "expected list")
		return nil
	}
	return ud
}

func listProxyIndex(L *lua.LState) int {
	p := asListProxy(L, 1)
	i := L.CheckInt(2)
	if i < 1 || i > p.l.Len() {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(toLua(L, p.l.At(i-1)))
	return 1
}

func listProxyNewIndex(L *lua.LState) int {
	p := asListProxy(L, 1)
	i := L.CheckInt(2)
	val := fromLua(L.Get(3))
	if i == p.l.Len()+1 {
		p.l.Append(val)
		return 0
	}
	if i < 1 || i > p.l.Len() {
		L.ArgError(2, "list index out of range")
		return 0
	}
	items := p.l.Items()
	items[i-1] = val
	return 0
}

func listProxyLen(L *lua.LState) int {
	p := asListProxy(L, 1)
	L.Push(lua.LNumber(p.l.Len()))
	return 1
}
