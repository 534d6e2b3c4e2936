package script

import (
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/stelp/stelp/internal/logging"
	"github.com/stelp/stelp/internal/record"
	"github.com/stelp/stelp/internal/store"
)

func mustHost(t *testing.T, source string) *Host {
	t.Helper()
	h, err := New(source, logging.Default())
	if err != nil {
		t.Fatalf("New(%q): %v", source, err)
	}
	t.Cleanup(h.Close)
	return h
}

func textInput(line string) Input {
	return Input{
		Record: record.NewText(line, record.Context{LineNum: 1, RecordCount: 1}),
		Store:  store.New(),
	}
}

func structuredInput(m *record.Map) Input {
	return Input{
		Record: record.NewStructured(record.FromMap(m), record.Context{LineNum: 1, RecordCount: 1}),
		Store:  store.New(),
	}
}

func TestSandboxRemovesFileAndProcessAccess(t *testing.T) {
	for _, name := range []string{"load", "loadstring", "loadfile", "dofile", "require", "collectgarbage", "io", "os"} {
		h := mustHost(t, "return "+name)
		out, err := h.Exec(textInput("x"))
		if err != nil {
			t.Fatalf("%s: unexpected Exec error: %v", name, err)
		}
		if out.ReturnValue != lua.LNil {
			t.Errorf("global %q should be nil in the sandbox, got %v", name, out.ReturnValue)
		}
	}
}

func TestSandboxPrintDoesNotPanic(t *testing.T) {
	h := mustHost(t, `print("hi"); return "ok"`)
	out, err := h.Exec(textInput("x"))
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if lua.LVAsString(out.ReturnValue) != "ok" {
		t.Errorf("return = %v, want ok", out.ReturnValue)
	}
}

func TestRegexBuiltins(t *testing.T) {
	h := mustHost(t, `return regex_match("^foo", line)`)
	out, err := h.Exec(textInput("foobar"))
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if lua.LVAsString(out.ReturnValue) != "true" {
		t.Errorf("regex_match = %v, want true", out.ReturnValue)
	}

	h2 := mustHost(t, `return regex_replace("o", "0", line)`)
	out2, err := h2.Exec(textInput("foobar"))
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if lua.LVAsString(out2.ReturnValue) != "f00bar" {
		t.Errorf("regex_replace = %v, want f00bar", out2.ReturnValue)
	}
}

func TestRegexCacheReusesCompiledPattern(t *testing.T) {
	h := mustHost(t, `return regex_match("[0-9]+", line)`)
	if _, err := h.Exec(textInput("abc123")); err != nil {
		t.Fatalf("Exec (first call): %v", err)
	}
	if len(h.regexes) != 1 {
		t.Fatalf("regexes cache has %d entries after first call, want 1", len(h.regexes))
	}
	cached := h.regexes["[0-9]+"]
	if _, err := h.Exec(textInput("xyz")); err != nil {
		t.Fatalf("Exec (second call): %v", err)
	}
	if len(h.regexes) != 1 {
		t.Fatalf("regexes cache has %d entries after second call, want 1 (no new compile)", len(h.regexes))
	}
	if h.regexes["[0-9]+"] != cached {
		t.Error("second call recompiled the pattern instead of reusing the cached *regexp.Regexp")
	}
}

func TestRegexInvalidPatternIsAnError(t *testing.T) {
	h := mustHost(t, `return regex_match("(", line)`)
	if _, err := h.Exec(textInput("x")); err == nil {
		t.Error("expected an error for an invalid regex pattern")
	}
}

func TestUUIDBuiltinProducesDistinctValues(t *testing.T) {
	h := mustHost(t, `return uuid()`)
	out1, err := h.Exec(textInput("a"))
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	out2, err := h.Exec(textInput("b"))
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	id1, id2 := lua.LVAsString(out1.ReturnValue), lua.LVAsString(out2.ReturnValue)
	if id1 == "" || id2 == "" {
		t.Fatal("uuid() returned an empty string")
	}
	if id1 == id2 {
		t.Error("two uuid() calls returned the same value")
	}
	if len(id1) != 36 {
		t.Errorf("uuid() length = %d, want 36 (canonical hyphenated form)", len(id1))
	}
}

func TestHashBuiltinAlgorithms(t *testing.T) {
	cases := []struct {
		algo    string
		wantLen int
	}{
		{"", 64}, // defaults to sha256
		{"sha256", 64},
		{"sha1", 40},
		{"md5", 32},
		{"blake2b", 64},
	}
	for _, tc := range cases {
		var src string
		if tc.algo == "" {
			src = `return hash("hello")`
		} else {
			src = `return hash("hello", "` + tc.algo + `")`
		}
		h := mustHost(t, src)
		out, err := h.Exec(textInput("x"))
		if err != nil {
			t.Fatalf("hash algo %q: Exec: %v", tc.algo, err)
		}
		got := lua.LVAsString(out.ReturnValue)
		if len(got) != tc.wantLen {
			t.Errorf("hash algo %q: length = %d, want %d (%q)", tc.algo, len(got), tc.wantLen, got)
		}
	}
}

func TestHashBuiltinUnsupportedAlgorithm(t *testing.T) {
	h := mustHost(t, `return hash("hello", "rot13")`)
	if _, err := h.Exec(textInput("x")); err == nil {
		t.Error("expected an error for an unsupported hash algorithm")
	}
}

func TestParseTsDefaultRFC3339(t *testing.T) {
	h := mustHost(t, `return parse_ts("2023-10-01T12:00:00Z")`)
	out, err := h.Exec(textInput("x"))
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if lua.LVAsString(out.ReturnValue) != "1696161600" {
		t.Errorf("parse_ts = %v, want 1696161600", out.ReturnValue)
	}
}

func TestParseTsWithStrftimeLayout(t *testing.T) {
	h := mustHost(t, `return parse_ts("2023-10-01 12:00:00", "%Y-%m-%d %H:%M:%S")`)
	out, err := h.Exec(textInput("x"))
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if lua.LVAsString(out.ReturnValue) != "1696161600" {
		t.Errorf("parse_ts = %v, want 1696161600", out.ReturnValue)
	}
}

func TestGuessTsRecognizesCommonLayouts(t *testing.T) {
	cases := []string{
		"2023-10-01T12:00:00Z",
		"2023-10-01 12:00:00",
		"2023-10-01",
	}
	for _, text := range cases {
		h := mustHost(t, `return guess_ts(line)`)
		out, err := h.Exec(textInput(text))
		if err != nil {
			t.Errorf("guess_ts(%q): %v", text, err)
			continue
		}
		if _, ok := out.ReturnValue.(lua.LNumber); !ok {
			t.Errorf("guess_ts(%q) = %v (%T), want a number", text, out.ReturnValue, out.ReturnValue)
		}
	}
}

func TestGuessTsUnrecognizedFormatIsAnError(t *testing.T) {
	h := mustHost(t, `return guess_ts(line)`)
	if _, err := h.Exec(textInput("not a timestamp")); err == nil {
		t.Error("expected an error for an unrecognized timestamp format")
	}
}

// TestDualModeWholesaleReassignment covers a script that starts from a Text
// record and assigns `data` outright, rather than mutating field by field.
func TestDualModeWholesaleReassignment(t *testing.T) {
	h := mustHost(t, `data = {converted = true, original = line}`)
	out, err := h.Exec(textInput("hello"))
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if !out.DataWasUsed {
		t.Fatal("DataWasUsed = false after a wholesale `data = {...}` assignment")
	}
	m, ok := out.DataAfter.Map()
	if !ok {
		t.Fatalf("DataAfter is not a map: %v", out.DataAfter.Kind())
	}
	conv, ok := m.Get("converted")
	if !ok {
		t.Fatal("missing key \"converted\"")
	}
	if b, _ := conv.Bool(); !b {
		t.Error("converted = false, want true")
	}
	orig, ok := m.Get("original")
	if !ok {
		t.Fatal("missing key \"original\"")
	}
	if s, _ := orig.Str(); s != "hello" {
		t.Errorf("original = %q, want %q", s, "hello")
	}
}

// TestDualModeExplicitClear covers a Structured-entry script that sets
// `data = nil`: the step must not fall back to the stale pre-call map.
func TestDualModeExplicitClear(t *testing.T) {
	m := record.NewMap()
	m.Set("k", record.String("v"))
	h := mustHost(t, `data = nil; return "plain text now"`)
	out, err := h.Exec(structuredInput(m))
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if out.DataWasUsed {
		t.Errorf("DataWasUsed = true after an explicit `data = nil` clear, DataAfter = %+v", out.DataAfter)
	}
	if lua.LVAsString(out.ReturnValue) != "plain text now" {
		t.Errorf("ReturnValue = %v, want %q", out.ReturnValue, "plain text now")
	}
}

// TestDualModeUntouchedDataSurvivesAsIs covers the common case: a
// Structured-entry script that reads but never reassigns `data` keeps the
// original value mode in effect.
func TestDualModeUntouchedDataSurvivesAsIs(t *testing.T) {
	m := record.NewMap()
	m.Set("k", record.String("v"))
	h := mustHost(t, `local x = data["k"]`)
	out, err := h.Exec(structuredInput(m))
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if !out.DataWasUsed {
		t.Fatal("DataWasUsed = false for a script that only reads data")
	}
	got, ok := out.DataAfter.Map()
	if !ok {
		t.Fatalf("DataAfter is not a map: %v", out.DataAfter.Kind())
	}
	v, ok := got.Get("k")
	if !ok {
		t.Fatal("missing key \"k\"")
	}
	if s, _ := v.Str(); s != "v" {
		t.Errorf("DataAfter[\"k\"] = %q, want %q", s, "v")
	}
}

func TestDualModeFieldMutation(t *testing.T) {
	m := record.NewMap()
	m.Set("count", record.Int(1))
	h := mustHost(t, `data["count"] = data["count"] + 1`)
	out, err := h.Exec(structuredInput(m))
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	got, _ := out.DataAfter.Map()
	v, _ := got.Get("count")
	if i, _ := v.Int(); i != 2 {
		t.Errorf("count = %d, want 2", i)
	}
}

func TestExecCompileError(t *testing.T) {
	if _, err := New("this is not ) valid lua (((", logging.Default()); err == nil {
		t.Error("expected a compile error for invalid Lua source")
	}
}

func TestExecRuntimeErrorIsWrapped(t *testing.T) {
	h := mustHost(t, `error("boom")`)
	_, err := h.Exec(textInput("x"))
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %v, want it to mention \"boom\"", err)
	}
}
