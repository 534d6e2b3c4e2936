// Package record defines the structured value model shared by every stage of
// the pipeline: parsers produce it, steps mutate it, writers consume it.
package record

import "fmt"

// Kind distinguishes the two shapes a Record can take.
type Kind int

const (
	// Text records carry an opaque line of text and no structured Value.
	Text Kind = iota
	// Structured records carry a parsed Value in place of a raw line.
	Structured
)

func (k Kind) String() string {
	if k == Text {
		return "text"
	}
	return "structured"
}

// ValueKind tags the concrete type held by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

// Value is a tagged union mirroring the JSON data model, with one addition:
// Map preserves the insertion order of its keys. Parsers, scripts, and
// writers must never reorder a Map's keys on their own.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
	list *List
	mp   *Map
}

func Null() Value               { return Value{kind: KindNull} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Int(i int64) Value         { return Value{kind: KindInt, i: i} }
func Float(f float64) Value     { return Value{kind: KindFloat, f: f} }
func String(s string) Value     { return Value{kind: KindString, s: s} }
func FromList(l *List) Value    { return Value{kind: KindList, list: l} }
func FromMap(m *Map) Value      { return Value{kind: KindMap, mp: m} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }

func (v Value) Bool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) Int() (int64, bool)       { return v.i, v.kind == KindInt }
func (v Value) Float() (float64, bool)   { return v.f, v.kind == KindFloat }
func (v Value) Str() (string, bool)      { return v.s, v.kind == KindString }
func (v Value) List() (*List, bool)      { return v.list, v.kind == KindList }
func (v Value) Map() (*Map, bool)        { return v.mp, v.kind == KindMap }

// AsFloat64 widens Int/Float into a float64 for arithmetic builtins; it
// reports false for any other kind.
func (v Value) AsFloat64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// String renders a Value for diagnostics and logfmt/text output; it is not
// used for JSON serialization (see internal/format for that).
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindList:
		return fmt.Sprintf("%v", v.list.Items())
	case KindMap:
		return fmt.Sprintf("%v", v.mp.Keys())
	}
	return ""
}

// List is an ordered sequence of Values.
type List struct {
	items []Value
}

func NewList(items ...Value) *List { return &List{items: items} }

func (l *List) Len() int        { return len(l.items) }
func (l *List) Items() []Value  { return l.items }
func (l *List) Append(v Value)  { l.items = append(l.items, v) }
func (l *List) At(i int) Value  { return l.items[i] }

// Map is a string-keyed map that preserves insertion order. Re-assigning an
// existing key updates its value in place without moving it to the end;
// that is the one mutation rule scripts rely on to keep output columns
// stable across a pipeline run.
type Map struct {
	keys   []string
	values map[string]Value
}

func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

func (m *Map) Len() int { return len(m.keys) }

func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set inserts or updates key. New keys are appended to the end of Keys();
// existing keys keep their original position.
func (m *Map) Set(key string, v Value) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *Map) Delete(key string) {
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m *Map) Keys() []string { return m.keys }

// Clone returns a deep-enough copy: scalar values are copied by value, but
// nested Lists/Maps are copied recursively so a script can mutate its own
// `data` without aliasing a previous record's window entry.
func (m *Map) Clone() *Map {
	out := NewMap()
	for _, k := range m.keys {
		out.Set(k, cloneValue(m.values[k]))
	}
	return out
}

func cloneValue(v Value) Value {
	switch v.kind {
	case KindList:
		items := make([]Value, v.list.Len())
		for i, it := range v.list.Items() {
			items[i] = cloneValue(it)
		}
		return FromList(NewList(items...))
	case KindMap:
		return FromMap(v.mp.Clone())
	default:
		return v
	}
}
