package script

import (
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/stelp/stelp/internal/record"
)

// registerCSVBuiltins implements parse_csv(line, headers?, sep?) and
// dump_csv(values, delimiter?): parse_csv
// auto-generates col1/col2/... headers when none are given, pads missing
// trailing fields with empty strings when there are more headers than
// fields, and silently drops extra fields when there are more fields than
// headers. dump_csv never quotes fields (it mirrors a "never quote" CSV
// writer) — callers are expected to pre-sanitize values containing the
// delimiter themselves.
func (h *Host) registerCSVBuiltins() {
	L := h.L

	L.SetGlobal("parse_csv", L.NewFunction(func(L *lua.LState) int {
		line := L.CheckString(1)
		sep := ","
		if s, ok := L.Get(3).(lua.LString); ok && len(s) > 0 {
			sep = string(s[0])
		}
		fields := splitCSVLine(line, sep)

		var headerNames []string
		if headersVal := L.Get(2); headersVal != lua.LNil {
			tbl, ok := headersVal.(*lua.LTable)
			if !ok {
				L.ArgError(2, "headers must be a list")
				return 0
			}
			n := tbl.Len()
			headerNames = make([]string, n)
			for i := 1; i <= n; i++ {
				headerNames[i-1] = lua.LVAsString(tbl.RawGetInt(i))
			}
		} else {
			headerNames = make([]string, len(fields))
			for i := range fields {
				headerNames[i] = "col" + strconv.Itoa(i+1)
			}
		}

		out := record.NewMap()
		for i, name := range headerNames {
			if i < len(fields) {
				out.Set(name, record.String(fields[i]))
			} else {
				out.Set(name, record.String(""))
			}
		}
		L.Push(newMapProxy(L, out))
		return 1
	}))

	L.SetGlobal("dump_csv", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		delim := ","
		if s, ok := L.Get(2).(lua.LString); ok && len(s) > 0 {
			delim = string(s)
		}
		n := tbl.Len()
		fields := make([]string, n)
		for i := 1; i <= n; i++ {
			fields[i-1] = lua.LVAsString(tbl.RawGetInt(i))
		}
		L.Push(lua.LString(strings.Join(fields, delim)))
		return 1
	}))
}

// splitCSVLine is a single-record variant of the quote-aware field scanner
// used for whole-file CSV parsing (internal/format), reused here with a
// configurable single-character separator for the parse_csv() builtin.
func splitCSVLine(line, sep string) []string {
	sepByte := byte(',')
	if len(sep) > 0 {
		sepByte = sep[0]
	}
	var fields []string
	var current strings.Builder
	inQuotes := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				current.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == sepByte && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	fields = append(fields, current.String())
	return fields
}
