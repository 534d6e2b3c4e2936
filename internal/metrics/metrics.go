// Package metrics exposes stelp's pipeline statistics as Prometheus
// collectors, using the promauto idiom
// (infra/queue/asynq/metrics.go) for package-level var blocks of
// promauto.New*Vec collectors. These are a read-only observer of the
// same counters internal/pipeline.Stats already maintains; Record never
// becomes a second source of truth for the stats struct.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stelp_records_processed_total",
		Help: "Records read from the input parser, before any step runs.",
	})
	RecordsOutputTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stelp_records_output_total",
		Help: "Records actually written downstream, including emissions and the final terminate record.",
	})
	RecordsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stelp_records_skipped_total",
		Help: "Records dropped by skip() or a level/filter step.",
	})
	ErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stelp_errors_total",
		Help: "Records that failed a parse, script, or output step.",
	})
	ProcessingDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stelp_processing_duration_seconds",
		Help:    "Wall-clock time spent running the step chain on one record.",
		Buckets: prometheus.DefBuckets,
	})
)

// Snapshot holds the fields of pipeline.Stats this package reports;
// declared locally so this package doesn't need to import internal/pipeline
// just for its Stats struct shape.
type Snapshot struct {
	RecordsProcessed int64
	RecordsOutput    int64
	RecordsSkipped   int64
	Errors           int64
	Elapsed          time.Duration
}

// Record sets every gauge-like counter to a fresh absolute snapshot value.
// Prometheus counters only support Add, so this tracks the last-seen totals
// and adds the delta, which is safe because stelp runs a single pipeline
// per process and Record is only ever called with a monotonically
// increasing Snapshot (pipeline.Stats never decreases within one run).
type Recorder struct {
	last Snapshot
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Record(s Snapshot) {
	RecordsProcessedTotal.Add(float64(s.RecordsProcessed - r.last.RecordsProcessed))
	RecordsOutputTotal.Add(float64(s.RecordsOutput - r.last.RecordsOutput))
	RecordsSkippedTotal.Add(float64(s.RecordsSkipped - r.last.RecordsSkipped))
	ErrorsTotal.Add(float64(s.Errors - r.last.Errors))
	if delta := s.Elapsed - r.last.Elapsed; delta > 0 {
		ProcessingDurationSeconds.Observe(delta.Seconds())
	}
	r.last = s
}
