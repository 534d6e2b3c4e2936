// Package pipeline implements the orchestrator that drives an ordered list
// of steps over a stream of records: the per-record result algebra, the
// dual-mode dispatch rule, statistics, error policy, and resource resetting
// between inputs.
package pipeline

import "github.com/stelp/stelp/internal/record"

// ResultKind tags which branch of the result algebra a StepResult carries.
type ResultKind int

const (
	ResultTransform ResultKind = iota
	ResultFanOut
	ResultTransformWithEmissions
	ResultSkip
	ResultTerminate
	ResultError
)

// StepResult is the outcome of running one step on one record, matching
// the result algebra exactly: Transform/FanOut/TransformWithEmissions/
// Skip/Terminate/Error, modeled as a single tagged struct instead of six
// separate return paths so the orchestrator can switch on one Kind field.
type StepResult struct {
	Kind ResultKind

	Record    record.Record   // ResultTransform
	FanOut    []record.Record // ResultFanOut
	Primary   *record.Record  // ResultTransformWithEmissions (nil = emissions only)
	Emissions []record.Record // ResultTransformWithEmissions

	TerminateRecord *record.Record // ResultTerminate (nil = nothing to emit)

	Err *StepError // ResultError
}

func Transform(r record.Record) StepResult {
	return StepResult{Kind: ResultTransform, Record: r}
}

func FanOut(recs []record.Record) StepResult {
	return StepResult{Kind: ResultFanOut, FanOut: recs}
}

func TransformWithEmissions(primary *record.Record, emissions []record.Record) StepResult {
	return StepResult{Kind: ResultTransformWithEmissions, Primary: primary, Emissions: emissions}
}

func Skip() StepResult {
	return StepResult{Kind: ResultSkip}
}

func Terminate(rec *record.Record) StepResult {
	return StepResult{Kind: ResultTerminate, TerminateRecord: rec}
}

func Error(err *StepError) StepResult {
	return StepResult{Kind: ResultError, Err: err}
}

// Dispatch implements the dual-mode rule as an explicit tagged-variant
// transition function instead of inspecting a flag after the fact:
// a pure function (record_in, return_value, data_after, data_was_used,
// emissions, skip, terminate) → StepResult, with no hidden flags. The
// precedence is fixed: terminate > skip > emissions > return
// value.
//
// dataWasUsed is true when `data` is non-nil after the script ran (a record
// that entered structured and was explicitly cleared with `data = nil` does
// not count); that alone commits the downstream record to data mode and the
// step's textual return value is ignored.
func Dispatch(recIn record.Record, returned string, returnedIsNil bool, dataAfter record.Value, dataWasUsed bool, emissions []string, skip, terminate bool, terminateMsg string) StepResult {
	if terminate {
		if terminateMsg == "" {
			return Terminate(nil)
		}
		final := record.NewText(terminateMsg, recIn.Ctx)
		return Terminate(&final)
	}

	if skip {
		if len(emissions) > 0 {
			return FanOut(emissionsToRecords(emissions, recIn.Ctx))
		}
		return Skip()
	}

	primary := primaryRecord(recIn, returned, returnedIsNil, dataAfter, dataWasUsed)

	if len(emissions) > 0 {
		return TransformWithEmissions(&primary, emissionsToRecords(emissions, recIn.Ctx))
	}

	return Transform(primary)
}

// primaryRecord applies the dual-mode rule to decide the step's own output
// record, independent of skip/terminate/emissions: data mode wins whenever
// `data` is non-nil after the script, otherwise a nil return keeps the input unchanged and
// any other return value becomes a new text record.
func primaryRecord(recIn record.Record, returned string, returnedIsNil bool, dataAfter record.Value, dataWasUsed bool) record.Record {
	if dataWasUsed {
		return record.NewStructured(dataAfter, recIn.Ctx)
	}
	if returnedIsNil {
		return recIn
	}
	return record.NewText(returned, recIn.Ctx)
}

func emissionsToRecords(emissions []string, ctx record.Context) []record.Record {
	out := make([]record.Record, len(emissions))
	for i, e := range emissions {
		out[i] = record.NewText(e, ctx)
	}
	return out
}
