package script

import (
	"regexp"

	lua "github.com/yuin/gopher-lua"
)

// compileRegex compiles pattern once and caches it for the lifetime of the
// Host, guarded by singleflight the same way a local cache
// protects a concurrent cache-miss stampede — the script host itself is
// single-threaded, but the cache is process-lifetime and the guard costs
// nothing to keep.
func (h *Host) compileRegex(pattern string) (*regexp.Regexp, error) {
	if re, ok := h.regexes[pattern]; ok {
		return re, nil
	}
	v, err, _ := h.regexSF.Do(pattern, func() (interface{}, error) {
		return regexp.Compile(pattern)
	})
	if err != nil {
		return nil, err
	}
	re := v.(*regexp.Regexp)
	h.regexes[pattern] = re
	return re, nil
}

func (h *Host) registerTextBuiltins() {
	L := h.L

	L.SetGlobal("regex_match", L.NewFunction(func(L *lua.LState) int {
		pattern := L.CheckString(1)
		text := L.CheckString(2)
		re, err := h.compileRegex(pattern)
		if err != nil {
			L.RaiseError("invalid regex %q: %v", pattern, err)
			return 0
		}
		L.Push(lua.LBool(re.MatchString(text)))
		return 1
	}))

	L.SetGlobal("regex_replace", L.NewFunction(func(L *lua.LState) int {
		pattern := L.CheckString(1)
		replacement := L.CheckString(2)
		text := L.CheckString(3)
		re, err := h.compileRegex(pattern)
		if err != nil {
			L.RaiseError("invalid regex %q: %v", pattern, err)
			return 0
		}
		L.Push(lua.LString(re.ReplaceAllString(text, goReplacement(replacement))))
		return 1
	}))

	L.SetGlobal("regex_find_all", L.NewFunction(func(L *lua.LState) int {
		pattern := L.CheckString(1)
		text := L.CheckString(2)
		re, err := h.compileRegex(pattern)
		if err != nil {
			L.RaiseError("invalid regex %q: %v", pattern, err)
			return 0
		}
		matches := re.FindAllString(text, -1)
		t := L.NewTable()
		for i, m := range matches {
			t.RawSetInt(i+1, lua.LString(m))
		}
		L.Push(t)
		return 1
	}))
}

// goReplacement rewrites a Perl-style "$1"/"\1" replacement template into
// Go's "${1}" form when it sees backslash-digit group references, leaving
// already-Go-style templates untouched.
func goReplacement(repl string) string {
	out := make([]byte, 0, len(repl))
	for i := 0; i < len(repl); i++ {
		if repl[i] == '\\' && i+1 < len(repl) && repl[i+1] >= '0' && repl[i+1] <= '9' {
			out = append(out, '$', '{')
			i++
			out = append(out, repl[i], '}')
		} else {
			out = append(out, repl[i])
		}
	}
	return string(out)
}
