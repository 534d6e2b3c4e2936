// Package script embeds Lua as the pipeline's per-step expression
// language. Each Host wraps one script, compiled once at construction and
// executed fresh per record against a shared store/window/regex cache.
package script

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"golang.org/x/sync/singleflight"

	"github.com/stelp/stelp/internal/logging"
	"github.com/stelp/stelp/internal/record"
	"github.com/stelp/stelp/internal/store"
	"github.com/stelp/stelp/internal/window"
)

// Flags carries the per-call control-flow outcomes a script can set via
// emit()/emit_all()/skip()/exit(). It replaces the thread-local/raw-pointer
// globals the Lua host's original design would otherwise need: one struct,
// reset before each call, read back after.
type Flags struct {
	Skip        bool
	Terminate   bool
	TerminateMsg string
	Emissions   []string
	DataMode    bool // true when `data` is non-nil on entry to the script
}

func (f *Flags) reset() {
	*f = Flags{}
}

// Host runs one compiled script against a stream of records.
type Host struct {
	L       *lua.LState
	proto   *lua.FunctionProto
	flags   *Flags
	store   *store.Store
	win     *window.Buffer
	regexSF singleflight.Group
	regexes map[string]*regexp.Regexp
	logger  *logging.Logger
}

// Input is everything a single Exec call needs from the surrounding
// pipeline: the record being processed, its metadata, and the shared
// global store/window buffer.
type Input struct {
	Record record.Record
	Store  *store.Store
	Window *window.Buffer // nil if this step is not window-wrapped
}

// Outcome is the result of one script execution, before the dual-mode
// dispatch rule (internal/pipeline) turns it into a pipeline StepResult.
type Outcome struct {
	ReturnValue  lua.LValue
	DataAfter    record.Value
	DataWasUsed  bool // true if `data` was non-nil when the script finished
	Skip         bool
	Terminate    bool
	TerminateMsg string
	Emissions    []string
}

// New compiles source once. Sandboxing rules: only base,
// table, string, and math libraries are opened; load/loadstring/dofile/
// loadfile/require are removed after opening so no script can read a file,
// open a socket, or evaluate fresh code at runtime.
func New(source string, logger *logging.Logger) (*Host, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	registerProxyMetatables(L)

	h := &Host{
		L:       L,
		flags:   &Flags{},
		regexes: make(map[string]*regexp.Regexp),
		logger:  logger,
	}
	sandbox(L, logger)
	h.registerBuiltins()

	rewritten := rewriteMetaNamespace(source)
	chunk, err := L.LoadString(rewritten)
	if err != nil {
		return nil, fmt.Errorf("script compile error: %w", err)
	}
	proto := chunk.Proto
	h.proto = proto
	return h, nil
}

func sandbox(L *lua.LState, logger *logging.Logger) {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "collectgarbage"} {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = lua.LVAsString(L.Get(i))
		}
		fmt.Fprintln(os.Stderr, strings.Join(parts, "\t"))
		return 0
	}))
}

// Close releases the underlying Lua state.
func (h *Host) Close() { h.L.Close() }

// Exec runs the compiled script once against in, exactly as a single Lua
// call: fresh local scope each call (any `local` declared at the script's
// top level is a fresh binding in this frame), shared globals across calls
// via the Host's persistent LState.
func (h *Host) Exec(in Input) (Outcome, error) {
	h.flags.reset()
	h.store = in.Store
	h.win = in.Window

	L := h.L
	ctx := in.Record.Ctx

	var dataVal lua.LValue = lua.LNil
	if in.Record.Kind == record.Structured {
		var dataMap *record.Map
		if m, ok := in.Record.Value.Map(); ok {
			dataMap = m
		} else {
			dataMap = record.NewMap()
			dataMap.Set("_value", in.Record.Value)
		}
		dataVal = newMapProxy(L, dataMap)
	}
	h.flags.DataMode = dataVal != lua.LNil

	L.SetGlobal("line", luaLineValue(in.Record))
	L.SetGlobal("data", dataVal)
	L.SetGlobal("LINENUM", lua.LNumber(ctx.LineNum))
	L.SetGlobal("meta_linenum", lua.LNumber(ctx.LineNum))
	L.SetGlobal("RECNUM", lua.LNumber(ctx.RecordCount))
	L.SetGlobal("meta_record_count", lua.LNumber(ctx.RecordCount))
	L.SetGlobal("FILENAME", lua.LString(ctx.Filename))
	L.SetGlobal("meta_filename", lua.LString(ctx.Filename))
	L.SetGlobal("glob", newMapProxy(L, in.Store.Vars()))
	L.SetGlobal("window", buildWindowTable(L, in.Window))

	ret, err := h.callProto()
	if err != nil {
		return Outcome{}, fmt.Errorf("script error: %w", err)
	}

	out := Outcome{
		ReturnValue:  ret,
		Skip:         h.flags.Skip,
		Terminate:    h.flags.Terminate,
		TerminateMsg: h.flags.TerminateMsg,
		Emissions:    h.flags.Emissions,
	}

	// Re-read `data` from the Lua global table rather than trusting the
	// pre-execution snapshot: a script can reassign it wholesale (`data =
	// {...}`, starting from a Text record) or explicitly clear it (`data =
	// nil`, which must NOT fall back to the stale pre-call map). Whatever
	// the global holds when the call returns is what went into data mode.
	finalData := L.GetGlobal("data")
	if finalData != lua.LNil {
		out.DataWasUsed = true
		out.DataAfter = fromLua(finalData)
	}
	return out, nil
}

// callProto invokes the compiled script once, converting any Go-level
// panic raised from inside a builtin (not just a Lua-level script error,
// which lua.LState.PCall already turns into a returned error) into a plain
// error instead of crashing the process, the same recover-and-wrap shape
// as a generic Try helper.
func (h *Host) callProto() (ret lua.LValue, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
		}
	}()
	L := h.L
	fn := L.NewFunctionFromProto(h.proto)
	L.Push(fn)
	if callErr := L.PCall(0, 1, nil); callErr != nil {
		return nil, callErr
	}
	ret = L.Get(-1)
	L.Pop(1)
	return ret, nil
}

func luaLineValue(rec record.Record) lua.LValue {
	if rec.Kind == record.Text {
		return lua.LString(rec.Text)
	}
	return lua.LNil
}

// buildWindowTable lays out the window entries at both positive indices
// (1 == oldest ... N == most recent) and their negative-from-newest
// counterparts (-1 == most recent, -2 == one before that, ...), because
// Window addressing treats "the most recent record is
// always index -1" while Lua tables only natively support positive
// integer keys. A metatable on the returned table resolves any negative
// key a script indexes with against the positive slots already populated,
// so `window[-1]` and `window[N]` are the same row without double storage.
func buildWindowTable(L *lua.LState, win *window.Buffer) *lua.LTable {
	t := L.NewTable()
	if win == nil {
		return t
	}
	entries := win.FromNewest() // index 0 == most recent == script index -1
	n := len(entries)
	for i, e := range entries {
		row := L.NewTable()
		if e.IsText {
			row.RawSetString("line", lua.LString(e.Text))
			row.RawSetString("data", lua.LNil)
		} else {
			row.RawSetString("line", lua.LNil)
			row.RawSetString("data", toLua(L, e.Value))
		}
		row.RawSetString("line_number", lua.LNumber(e.LineNum))
		row.RawSetString("linenum", lua.LNumber(e.LineNum))
		row.RawSetString("record_count", lua.LNumber(e.RecordCount))
		// positive slot: N - i, so the newest entry (i==0) lands at index N
		t.RawSetInt(n-i, row)
	}
	mt := L.NewTable()
	L.SetField(mt, "__index", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		idxVal := L.Get(2)
		if num, ok := idxVal.(lua.LNumber); ok {
			idx := int(num)
			if idx < 0 {
				length := tbl.Len()
				idx = length + idx + 1
			}
			L.Push(tbl.RawGetInt(idx))
			return 1
		}
		L.Push(lua.LNil)
		return 1
	}))
	L.SetMetatable(t, mt)
	return t
}

// rewriteMetaNamespace rewrites meta.foo references to meta_foo so scripts
// can write either spelling, matching the dual-named meta variables (e.g.
// meta.linenum and meta_linenum/LINENUM refer to the same value).
func rewriteMetaNamespace(source string) string {
	replacer := strings.NewReplacer(
		"meta.linenum", "meta_linenum",
		"meta.record_count", "meta_record_count",
		"meta.filename", "meta_filename",
	)
	return replacer.Replace(source)
}
