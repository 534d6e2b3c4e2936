package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/stelp/stelp/internal/record"
)

// toLua converts a record.Value into an LValue. Maps and Lists become
// ordered-proxy userdata (see ordered.go) rather than native Lua tables, so
// that a script mutating a nested object keeps the original key order.
func toLua(L *lua.LState, v record.Value) lua.LValue {
	switch v.Kind() {
	case record.KindNull:
		return lua.LNil
	case record.KindBool:
		b, _ := v.Bool()
		return lua.LBool(b)
	case record.KindInt:
		i, _ := v.Int()
		return lua.LNumber(i)
	case record.KindFloat:
		f, _ := v.Float()
		return lua.LNumber(f)
	case record.KindString:
		s, _ := v.Str()
		return lua.LString(s)
	case record.KindList:
		l, _ := v.List()
		return newListProxy(L, l)
	case record.KindMap:
		m, _ := v.Map()
		return newMapProxy(L, m)
	}
	return lua.LNil
}

// fromLua converts an LValue back into a record.Value. Plain Lua tables
// (produced by a script with `{}` or `{1,2,3}`) are classified as a List if
// every key is a contiguous 1-based integer, and a Map otherwise.
func fromLua(v lua.LValue) record.Value {
	switch lv := v.(type) {
	case *lua.LNilType:
		return record.Null()
	case lua.LBool:
		return record.Bool(bool(lv))
	case lua.LNumber:
		f := float64(lv)
		if f == float64(int64(f)) {
			return record.Int(int64(f))
		}
		return record.Float(f)
	case lua.LString:
		return record.String(string(lv))
	case *lua.LUserData:
		switch p := lv.Value.(type) {
		case *mapProxy:
			return record.FromMap(p.m)
		case *listProxy:
			return record.FromList(p.l)
		}
		return record.Null()
	case *lua.LTable:
		return fromLuaTable(lv)
	default:
		return record.String(v.String())
	}
}

func fromLuaTable(t *lua.LTable) record.Value {
	maxN := t.Len()
	isArray := maxN > 0
	count := 0
	t.ForEach(func(k, _ lua.LValue) {
		count++
		if n, ok := k.(lua.LNumber); !ok || float64(n) != float64(int(n)) || int(n) < 1 || int(n) > maxN {
			isArray = false
		}
	})
	if isArray && count == maxN {
		l := record.NewList()
		for i := 1; i <= maxN; i++ {
			l.Append(fromLua(t.RawGetInt(i)))
		}
		return record.FromList(l)
	}
	m := record.NewMap()
	t.ForEach(func(k, v lua.LValue) {
		m.Set(k.String(), fromLua(v))
	})
	return record.FromMap(m)
}
