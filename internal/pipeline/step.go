package pipeline

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/stelp/stelp/internal/logging"
	"github.com/stelp/stelp/internal/record"
	"github.com/stelp/stelp/internal/script"
	"github.com/stelp/stelp/internal/store"
	"github.com/stelp/stelp/internal/window"
)

// StepContext is everything a Step needs to process one record beyond the
// record itself: the shared global store, the window buffer (nil unless
// this step is window-wrapped), and the debug flag ("record
// context... a reference to the global store, and a debug flag").
type StepContext struct {
	Store  *store.Store
	Window *window.Buffer
	Debug  bool
}

// Step is one unit of pipeline logic: a filter, a transform, or a
// level-filter. Reset clears any step-owned state (currently
// only the window wrapper has any) between inputs.
type Step interface {
	Name() string
	Run(rec record.Record, sctx *StepContext) StepResult
	Reset()
}

// TransformStep runs a compiled script and applies the dual-mode dispatch
// rule to decide the downstream record.
type TransformStep struct {
	name string
	host *script.Host
}

func NewTransformStep(name, source string, logger *logging.Logger) (*TransformStep, error) {
	h, err := script.New(source, logger)
	if err != nil {
		return nil, err
	}
	return &TransformStep{name: name, host: h}, nil
}

func (s *TransformStep) Name() string { return s.name }
func (s *TransformStep) Reset()       {}

func (s *TransformStep) Run(rec record.Record, sctx *StepContext) StepResult {
	out, err := s.host.Exec(script.Input{Record: rec, Store: sctx.Store, Window: sctx.Window})
	if err != nil {
		return Error(&StepError{Kind: ErrScript, Step: s.name, LineNum: rec.Ctx.LineNum, Detail: err.Error(), Cause: err})
	}
	return dispatchOutcome(rec, out)
}

// FilterStep runs a compiled script and keeps the record when the script's
// return value is truthy ("--filter EXPR — add filter step (truthy
// → keep)"). terminate()/skip()/emit() still take precedence per the same
// flag-precedence table transform steps use: a filter script
// that calls skip() drops the record regardless of its return value, one
// that calls terminate() ends the stream, and one that calls emit() fans
// out exactly like a transform step would.
type FilterStep struct {
	name string
	host *script.Host
}

func NewFilterStep(name, source string, logger *logging.Logger) (*FilterStep, error) {
	h, err := script.New(source, logger)
	if err != nil {
		return nil, err
	}
	return &FilterStep{name: name, host: h}, nil
}

func (s *FilterStep) Name() string { return s.name }
func (s *FilterStep) Reset()       {}

func (s *FilterStep) Run(rec record.Record, sctx *StepContext) StepResult {
	out, err := s.host.Exec(script.Input{Record: rec, Store: sctx.Store, Window: sctx.Window})
	if err != nil {
		return Error(&StepError{Kind: ErrScript, Step: s.name, LineNum: rec.Ctx.LineNum, Detail: err.Error(), Cause: err})
	}

	if out.Terminate {
		return dispatchOutcome(rec, out)
	}
	if out.Skip {
		return dispatchOutcome(rec, out)
	}
	if len(out.Emissions) > 0 {
		return dispatchOutcome(rec, out)
	}
	if isTruthy(out.ReturnValue) {
		return Transform(rec)
	}
	return Skip()
}

func dispatchOutcome(rec record.Record, out script.Outcome) StepResult {
	returned, returnedIsNil := luaReturnToString(out.ReturnValue)
	return Dispatch(rec, returned, returnedIsNil, out.DataAfter, out.DataWasUsed, out.Emissions, out.Skip, out.Terminate, out.TerminateMsg)
}

func isTruthy(v lua.LValue) bool {
	if v == nil || v == lua.LNil {
		return false
	}
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return true
}

func luaReturnToString(v lua.LValue) (s string, isNil bool) {
	if v == nil || v == lua.LNil {
		return "", true
	}
	return lua.LVAsString(v), false
}

// WindowedStep wraps an inner Step in a fixed-capacity ring buffer:
// every record is appended to the window before the inner step
// runs, the buffer is visible to the step's script as `window` for the
// duration of that one Run call, and it persists across records within one
// input, cleared only by Reset.
type WindowedStep struct {
	inner Step
	buf   *window.Buffer
	size  int
}

func NewWindowedStep(size int, inner Step) *WindowedStep {
	return &WindowedStep{inner: inner, buf: window.New(size), size: size}
}

func (s *WindowedStep) Name() string { return s.inner.Name() }

func (s *WindowedStep) Reset() {
	s.buf = window.New(s.size)
	s.inner.Reset()
}

func (s *WindowedStep) Run(rec record.Record, sctx *StepContext) StepResult {
	s.buf.Push(entryFromRecord(rec))
	inner := *sctx
	inner.Window = s.buf
	return s.inner.Run(rec, &inner)
}

func entryFromRecord(rec record.Record) window.Entry {
	if rec.Kind == record.Text {
		return window.Entry{IsText: true, Text: rec.Text, LineNum: rec.Ctx.LineNum, RecordCount: rec.Ctx.RecordCount}
	}
	return window.Entry{IsText: false, Value: rec.Value, LineNum: rec.Ctx.LineNum, RecordCount: rec.Ctx.RecordCount}
}
