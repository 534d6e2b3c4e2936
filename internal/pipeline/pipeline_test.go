package pipeline

import (
	"testing"

	"github.com/stelp/stelp/internal/record"
)

func mustTransform(t *testing.T, name, src string) *TransformStep {
	t.Helper()
	s, err := NewTransformStep(name, src, nil)
	if err != nil {
		t.Fatalf("NewTransformStep(%q): %v", src, err)
	}
	return s
}

func mustFilter(t *testing.T, name, src string) *FilterStep {
	t.Helper()
	s, err := NewFilterStep(name, src, nil)
	if err != nil {
		t.Fatalf("NewFilterStep(%q): %v", src, err)
	}
	return s
}

func processAll(t *testing.T, p *Pipeline, recs []record.Record) []record.Record {
	t.Helper()
	var out []record.Record
	for _, r := range recs {
		o, err := p.Process(r)
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		out = append(out, o.Records...)
		if o.Terminate {
			break
		}
	}
	return out
}

func textRecords(lines ...string) []record.Record {
	recs := make([]record.Record, len(lines))
	for i, l := range lines {
		recs[i] = record.NewText(l, record.Context{LineNum: int64(i + 1), RecordCount: int64(i + 1)})
	}
	return recs
}

// Scenario A: line upper.
func TestScenarioLineUpper(t *testing.T) {
	step := mustTransform(t, "upper", "return line:upper()")
	p := New([]Step{step})

	out := processAll(t, p, textRecords("hello", "world"))

	want := []string{"HELLO", "WORLD"}
	if len(out) != len(want) {
		t.Fatalf("got %d records, want %d", len(out), len(want))
	}
	for i, w := range want {
		if out[i].Text != w {
			t.Errorf("out[%d] = %q, want %q", i, out[i].Text, w)
		}
	}
	stats := p.Stats()
	if stats.RecordsProcessed != 2 || stats.RecordsOutput != 2 || stats.RecordsSkipped != 0 || stats.Errors != 0 {
		t.Errorf("stats = %+v, want processed=2 output=2 skipped=0 errors=0", stats)
	}
}

// Scenario B: counter.
func TestScenarioCounter(t *testing.T) {
	step := mustTransform(t, "counter", `local n = inc("n"); return n .. ":" .. line`)
	p := New([]Step{step})

	out := processAll(t, p, textRecords("a", "b", "c"))
	want := []string{"1:a", "2:b", "3:c"}
	for i, w := range want {
		if out[i].Text != w {
			t.Errorf("out[%d] = %q, want %q", i, out[i].Text, w)
		}
	}
}

// Scenario C: emit-then-skip.
func TestScenarioEmitThenSkip(t *testing.T) {
	src := `
for f in line:gmatch("[^,]+") do
  emit(f:upper())
end
skip()
`
	step := mustTransform(t, "split", src)
	p := New([]Step{step})

	out := processAll(t, p, textRecords("x,y", "foo,bar"))
	want := []string{"X", "Y", "FOO", "BAR"}
	if len(out) != len(want) {
		t.Fatalf("got %d records %v, want %d", len(out), out, len(want))
	}
	for i, w := range want {
		if out[i].Text != w {
			t.Errorf("out[%d] = %q, want %q", i, out[i].Text, w)
		}
	}
	stats := p.Stats()
	if stats.RecordsSkipped != 0 {
		// emissions on skip() become a FanOut, not a Skip result:
		// "If emissions are non-empty on skip, the result is FanOut").
		t.Errorf("RecordsSkipped = %d, want 0 (emissions were present)", stats.RecordsSkipped)
	}
	if stats.RecordsOutput != 4 {
		t.Errorf("RecordsOutput = %d, want 4", stats.RecordsOutput)
	}
}

// Scenario D: terminate.
func TestScenarioTerminate(t *testing.T) {
	src := `
if string.find(line, "STOP") then
  exit("bye")
  return nil
end
return line:upper()
`
	step := mustTransform(t, "stopper", src)
	p := New([]Step{step})

	recs := textRecords("a", "STOP", "b")
	var out []record.Record
	for _, r := range recs {
		o, err := p.Process(r)
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		out = append(out, o.Records...)
		if o.Terminate {
			break
		}
	}
	want := []string{"A", "bye"}
	if len(out) != len(want) {
		t.Fatalf("got %v, want %v", renderTexts(out), want)
	}
	for i, w := range want {
		if out[i].Text != w {
			t.Errorf("out[%d] = %q, want %q", i, out[i].Text, w)
		}
	}
}

func renderTexts(recs []record.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Text
	}
	return out
}

// Scenario G: window diff.
func TestScenarioWindowDiff(t *testing.T) {
	src := `
local n = tonumber(line)
local p = n
if window_size() >= 2 then
  p = tonumber(window[-2]["line"])
end
return "D " .. (n - p)
`
	inner := mustTransform(t, "diff", src)
	windowed := NewWindowedStep(3, inner)
	p := New([]Step{windowed})

	out := processAll(t, p, textRecords("10", "15", "12", "20"))
	want := []string{"D 0", "D 5", "D -3", "D 8"}
	if len(out) != len(want) {
		t.Fatalf("got %v, want %v", renderTexts(out), want)
	}
	for i, w := range want {
		if out[i].Text != w {
			t.Errorf("out[%d] = %q, want %q", i, out[i].Text, w)
		}
	}
}

// Dual-mode rule (property 5): assigning data["k"]=v and returning a string
// commits to structured output; the returned string is ignored.
func TestDualModeDataWins(t *testing.T) {
	step := mustTransform(t, "mutate", `data["k"] = "mutated"; return "ignored"`)
	p := New([]Step{step})

	m := record.NewMap()
	m.Set("k", record.String("orig"))
	rec := record.NewStructured(record.FromMap(m), record.Context{LineNum: 1, RecordCount: 1})

	o, err := p.Process(rec)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(o.Records) != 1 || o.Records[0].Kind != record.Structured {
		t.Fatalf("expected one structured record, got %+v", o.Records)
	}
	got, _ := o.Records[0].Value.Map()
	v, ok := got.Get("k")
	if !ok {
		t.Fatal("expected key k to survive")
	}
	s, _ := v.Str()
	if s != "mutated" {
		t.Errorf("data[\"k\"] = %q, want %q", s, "mutated")
	}
}

// Precedence (property 6): skip() alone yields nothing.
func TestSkipAloneYieldsNothing(t *testing.T) {
	step := mustTransform(t, "skipper", "skip()")
	p := New([]Step{step})

	o, err := p.Process(textRecords("x")[0])
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(o.Records) != 0 {
		t.Errorf("expected no records, got %v", o.Records)
	}
	if p.Stats().RecordsSkipped != 1 {
		t.Errorf("RecordsSkipped = %d, want 1", p.Stats().RecordsSkipped)
	}
}

func TestFilterStepTruthy(t *testing.T) {
	step := mustFilter(t, "keep-foo", `return string.find(line, "foo") ~= nil`)
	p := New([]Step{step})

	out := processAll(t, p, textRecords("foobar", "baz", "foo"))
	if len(out) != 2 || out[0].Text != "foobar" || out[1].Text != "foo" {
		t.Errorf("got %v, want [foobar foo]", renderTexts(out))
	}
}

func TestLevelFilterExcludeWinsOverInclude(t *testing.T) {
	step := NewLevelFilterStep("lvl", []string{"info", "error"}, []string{"error"})
	p := New([]Step{step})

	out := processAll(t, p, textRecords("this is INFO", "an ERROR occurred", "plain DEBUG line"))
	if len(out) != 1 || out[0].Text != "this is INFO" {
		t.Errorf("got %v, want [this is INFO]", renderTexts(out))
	}
}

func TestResetProcessorsPreservesStore(t *testing.T) {
	step := mustTransform(t, "counter", `return inc("n") .. ":" .. line`)
	p := New([]Step{step})
	processAll(t, p, textRecords("a"))

	p.ResetProcessors()
	out := processAll(t, p, textRecords("b"))
	if out[0].Text != "2:b" {
		t.Errorf("counter did not persist across ResetProcessors: got %q, want %q", out[0].Text, "2:b")
	}

	p.HardReset()
	out = processAll(t, p, textRecords("c"))
	if out[0].Text != "1:c" {
		t.Errorf("counter should reset to 1 after HardReset: got %q", out[0].Text)
	}
}
