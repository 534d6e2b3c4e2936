package pipeline

import (
	"time"

	"github.com/stelp/stelp/internal/record"
	"github.com/stelp/stelp/internal/store"
)

// Stats tracks the running counters the orchestrator
// maintain across a stream and return at end-of-stream.
type Stats struct {
	RecordsProcessed int64
	RecordsOutput    int64
	RecordsSkipped   int64
	Errors           int64
	Elapsed          time.Duration
}

// Outcome is returned to the caller after Process runs one input record
// through every step. Records is everything that must be written
// downstream, in order (a single Transform produces one, a FanOut or
// TransformWithEmissions may produce several, a Skip or swallowed Error
// produces none). Terminate signals that, after writing Records, the
// whole stream must stop.
type Outcome struct {
	Records   []record.Record
	Terminate bool
}

// Pipeline holds an ordered list of steps and the state shared across
// records within one pipeline lifetime: the global store and running
// stats. It is the orchestrator loop, generalized from
// original_source/src/pipeline.rs's StreamPipeline with the thread-local
// emit/skip/terminate cell bank replaced by the explicit *script.Flags
// struct each step already threads through internally.
type Pipeline struct {
	steps    []Step
	store    *store.Store
	strategy ErrorStrategy
	debug    bool
	stats    Stats

	onError func(*StepError)
}

// Option configures a Pipeline at construction.
type Option func(*Pipeline)

func WithErrorStrategy(s ErrorStrategy) Option {
	return func(p *Pipeline) { p.strategy = s }
}

func WithDebug(debug bool) Option {
	return func(p *Pipeline) { p.debug = debug }
}

// WithErrorHandler installs a callback invoked for every StepError the
// pipeline encounters, regardless of strategy — used by the CLI front end
// to print the `--debug` per-record diagnostic and the end-of-stream
// summary.
func WithErrorHandler(fn func(*StepError)) Option {
	return func(p *Pipeline) { p.onError = fn }
}

func New(steps []Step, opts ...Option) *Pipeline {
	p := &Pipeline{steps: steps, store: store.New(), strategy: SkipErrors}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Store() *store.Store { return p.store }
func (p *Pipeline) Stats() Stats        { return p.stats }

// Process runs rec through every step in order, implementing the
// step 2's branch table. It returns every record that must be written
// (in order) and whether the stream should stop after writing them.
//
// Invariant: records_processed = records_kept + records_skipped
// + errors"), RecordsProcessed is incremented unconditionally on entry;
// every other branch below increments exactly one of RecordsSkipped,
// Errors, or (implicitly, via RecordsOutput at write time) the kept count.
func (p *Pipeline) Process(rec record.Record) (Outcome, error) {
	start := time.Now()
	defer func() { p.stats.Elapsed += time.Since(start) }()

	p.stats.RecordsProcessed++

	sctx := &StepContext{Store: p.store, Debug: p.debug}
	current := rec

	for _, step := range p.steps {
		result := step.Run(current, sctx)

		switch result.Kind {
		case ResultTransform:
			current = result.Record
			continue

		case ResultSkip:
			p.stats.RecordsSkipped++
			return Outcome{}, nil

		case ResultFanOut:
			// fan-out products are not fed back into the
			// remaining steps of this record cycle; the orchestrator
			// commits immediately.
			p.stats.RecordsOutput += int64(len(result.FanOut))
			return Outcome{Records: result.FanOut}, nil

		case ResultTransformWithEmissions:
			recs := make([]record.Record, 0, len(result.Emissions)+1)
			if result.Primary != nil {
				recs = append(recs, *result.Primary)
			}
			recs = append(recs, result.Emissions...)
			p.stats.RecordsOutput += int64(len(recs))
			return Outcome{Records: recs}, nil

		case ResultTerminate:
			var recs []record.Record
			if result.TerminateRecord != nil {
				recs = []record.Record{*result.TerminateRecord}
				p.stats.RecordsOutput++
			}
			return Outcome{Records: recs, Terminate: true}, nil

		case ResultError:
			p.stats.Errors++
			if p.onError != nil {
				p.onError(result.Err)
			}
			if p.strategy == FailFast || result.Err.Kind.NeverSilent() {
				return Outcome{}, result.Err
			}
			return Outcome{}, nil
		}
	}

	p.stats.RecordsOutput++
	return Outcome{Records: []record.Record{current}}, nil
}

// HandleParseError reports a record that never made it into the pipeline
// because the input format parser rejected it, via the same ErrorStrategy/
// Stats path a step's own ResultError takes: it counts toward
// RecordsProcessed and Errors, reaches the installed error handler, and
// aborts the stream when the strategy is FailFast or the kind is
// never-silent (parse errors aren't, but the check stays generic).
func (p *Pipeline) HandleParseError(stepErr *StepError) error {
	p.stats.RecordsProcessed++
	p.stats.Errors++
	if p.onError != nil {
		p.onError(stepErr)
	}
	if p.strategy == FailFast || stepErr.Kind.NeverSilent() {
		return stepErr
	}
	return nil
}

// ResetProcessors calls Reset on every step:
// the window buffer and any other step-owned state clears, but the global
// store survives, since it is shared across inputs within one pipeline
// lifetime.
func (p *Pipeline) ResetProcessors() {
	for _, step := range p.steps {
		step.Reset()
	}
}

// HardReset additionally clears the global store (cleared only
// by an explicit hard reset").
func (p *Pipeline) HardReset() {
	p.ResetProcessors()
	p.store.Reset()
}
