package format

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/stelp/stelp/internal/flatten"
	"github.com/stelp/stelp/internal/record"
)

// Writer renders Records to an output stream in one structured format,
// applying an optional --keys column filter/reorder.
type Writer struct {
	out         *bufio.Writer
	kind        OutputKind
	keys        []string // nil means "natural key order"
	headerWrote bool
	order       []string // CSV/logfmt's frozen column order, set by the first structured record
}

func NewWriter(out *bufio.Writer, kind OutputKind, keys []string) *Writer {
	return &Writer{out: out, kind: kind, keys: keys}
}

// Reset clears the header-already-written state and the frozen column
// order, so the next structured record sets a new order and CSV output
// writes a fresh header. Pipeline.HardReset does not call it.
func (w *Writer) Reset() {
	w.headerWrote = false
	w.order = nil
}

func (w *Writer) WriteRecord(rec record.Record) error {
	switch w.kind {
	case OutJSONL:
		return w.writeJSONL(rec)
	case OutCSV:
		return w.writeCSV(rec)
	case OutLogfmt:
		return w.writeLogfmt(rec)
	}
	return fmt.Errorf("unknown output format")
}

func (w *Writer) keyOrder(m *record.Map) []string {
	if w.keys == nil {
		return m.Keys()
	}
	order := make([]string, 0, len(w.keys))
	for _, k := range w.keys {
		if _, ok := m.Get(k); ok {
			order = append(order, k)
		}
	}
	return order
}

// establishOrder returns CSV/logfmt's fixed column order: the declared
// projection (-k), or the first structured record's own key order. Either
// way it is computed once and cached, so a later record with a different
// key set reuses the same header — missing keys read back as empty
// (record.Value's zero value is KindNull, which scalarString renders as
// ""), extra keys are simply never looked up.
func (w *Writer) establishOrder(m *record.Map) []string {
	if w.order != nil {
		return w.order
	}
	if w.keys != nil {
		w.order = w.keys
	} else {
		w.order = m.Keys()
	}
	return w.order
}

func (w *Writer) writeJSONL(rec record.Record) error {
	if rec.Kind == record.Text {
		_, err := fmt.Fprintln(w.out, rec.Text)
		return err
	}
	m, isMap := rec.Value.Map()
	if !isMap || w.keys == nil {
		s, err := EncodeJSONValue(rec.Value)
		if err != nil {
			return fmt.Errorf("JSON encoding error: %w", err)
		}
		_, err = fmt.Fprintln(w.out, s)
		return err
	}
	order := w.keyOrder(m)
	parts := make([]string, 0, len(order))
	for _, k := range order {
		v, _ := m.Get(k)
		keyJSON, err := EncodeJSONValue(record.String(k))
		if err != nil {
			return err
		}
		valJSON, err := EncodeJSONValue(v)
		if err != nil {
			return fmt.Errorf("JSON value encoding error: %w", err)
		}
		parts = append(parts, keyJSON+":"+valJSON)
	}
	_, err := fmt.Fprintf(w.out, "{%s}\n", strings.Join(parts, ","))
	return err
}

func (w *Writer) writeCSV(rec record.Record) error {
	if rec.Kind == record.Text {
		if !w.headerWrote {
			fmt.Fprintln(w.out, "text")
			w.headerWrote = true
		}
		_, err := fmt.Fprintln(w.out, csvEscape(rec.Text))
		return err
	}
	m, isMap := rec.Value.Map()
	if !isMap {
		return fmt.Errorf("CSV format requires object records")
	}
	if flatten.HasNestedData(rec.Value) {
		m = flatten.Flatten(rec.Value)
	}
	order := w.establishOrder(m)
	if !w.headerWrote {
		fmt.Fprintln(w.out, strings.Join(order, ","))
		w.headerWrote = true
	}
	values := make([]string, 0, len(order))
	for _, k := range order {
		v, _ := m.Get(k)
		values = append(values, csvEscape(scalarString(v)))
	}
	_, err := fmt.Fprintln(w.out, strings.Join(values, ","))
	return err
}

func (w *Writer) writeLogfmt(rec record.Record) error {
	if rec.Kind == record.Text {
		_, err := fmt.Fprintf(w.out, "text=%s\n", logfmtEscape(rec.Text))
		return err
	}
	m, isMap := rec.Value.Map()
	if !isMap {
		return fmt.Errorf("logfmt format requires object records")
	}
	if flatten.HasNestedData(rec.Value) {
		m = flatten.Flatten(rec.Value)
	}
	order := w.establishOrder(m)
	pairs := make([]string, 0, len(order))
	for _, k := range order {
		v, _ := m.Get(k)
		pairs = append(pairs, fmt.Sprintf("%s=%s", logfmtEscapeKey(k), logfmtEscape(scalarString(v))))
	}
	_, err := fmt.Fprintln(w.out, strings.Join(pairs, " "))
	return err
}

// scalarString renders a Value for tabular (CSV/logfmt) output: strings
// pass through as-is, null becomes empty, everything else falls back to
// JSON so nested structures stay machine-readable instead of Go's %v.
func scalarString(v record.Value) string {
	switch v.Kind() {
	case record.KindString:
		s, _ := v.Str()
		return s
	case record.KindNull:
		return ""
	case record.KindBool, record.KindInt, record.KindFloat:
		return v.String()
	default:
		s, err := EncodeJSONValue(v)
		if err != nil {
			return "null"
		}
		return s
	}
}

func csvEscape(value string) string {
	if strings.ContainsAny(value, ",\"\n") {
		return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	}
	return value
}

func logfmtEscape(value string) string {
	if strings.ContainsAny(value, ` ="`) {
		return `"` + strings.ReplaceAll(value, `"`, `\"`) + `"`
	}
	return value
}

func logfmtEscapeKey(key string) string {
	key = strings.ReplaceAll(key, " ", "_")
	return strings.ReplaceAll(key, "=", "_")
}
