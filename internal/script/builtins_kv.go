package script

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// registerKVBuiltins implements parse_kv(text). The upstream implementation
// this is ported from builds a dict internally but then formats it straight
// back into a "{k: v, k2: v2}" string rather than returning the dict itself —
// scripts that want structured access have to re-parse that string. We keep
// the quirk rather than silently upgrading callers to a dict return: any
// script written against the documented behavior still gets the same value
// back.
func (h *Host) registerKVBuiltins() {
	L := h.L

	L.SetGlobal("parse_kv", L.NewFunction(func(L *lua.LState) int {
		text := L.CheckString(1)
		pairs := parseKVPairs(text)
		parts := make([]string, len(pairs))
		for i, p := range pairs {
			parts[i] = p.key + ": " + p.value
		}
		L.Push(lua.LString("{" + strings.Join(parts, ", ") + "}"))
		return 1
	}))
}

type kvPair struct{ key, value string }

// parseKVPairs splits "k=v k2=v2" text on whitespace, then each chunk on the
// first '='. Chunks without an '=' are skipped.
func parseKVPairs(text string) []kvPair {
	var pairs []kvPair
	for _, field := range strings.Fields(text) {
		idx := strings.IndexByte(field, '=')
		if idx < 0 {
			continue
		}
		pairs = append(pairs, kvPair{key: field[:idx], value: field[idx+1:]})
	}
	return pairs
}
