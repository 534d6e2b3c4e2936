// Package store implements the global variable and counter tables shared
// across every record in a pipeline run: a string-to-value map plus a
// separate string-to-int64 counter table, both persisting until an
// explicit hard reset.
package store

import "github.com/stelp/stelp/internal/record"

// Store is single-threaded, matching the rest of the pipeline: the script
// host calls into it synchronously once per record, never concurrently.
type Store struct {
	vars     *record.Map
	counters map[string]int64
}

func New() *Store {
	return &Store{vars: record.NewMap(), counters: make(map[string]int64)}
}

func (s *Store) Get(key string) (record.Value, bool) { return s.vars.Get(key) }
func (s *Store) Set(key string, v record.Value)       { s.vars.Set(key, v) }
func (s *Store) Delete(key string)                    { s.vars.Delete(key) }
func (s *Store) Keys() []string                       { return s.vars.Keys() }
func (s *Store) Vars() *record.Map                    { return s.vars }

// Inc increments counter name by delta (default 1 via Inc1) and returns the
// new value.
func (s *Store) Inc(name string, delta int64) int64 {
	s.counters[name] += delta
	return s.counters[name]
}

func (s *Store) Inc1(name string) int64 { return s.Inc(name, 1) }
func (s *Store) Dec1(name string) int64 { return s.Inc(name, -1) }

func (s *Store) Counter(name string) int64 { return s.counters[name] }

func (s *Store) ResetCounter(name string) {
	delete(s.counters, name)
}

// Reset clears both tables entirely; called only on an explicit hard reset
// of the pipeline (a hard reset), never between ordinary records.
func (s *Store) Reset() {
	s.vars = record.NewMap()
	s.counters = make(map[string]int64)
}
