// Package format implements the input parsers and output writers that sit
// at the edges of the pipeline, translating between raw bytes and the
// ordered record.Value model.
package format

import "github.com/stelp/stelp/internal/record"

// InputKind names a structured input format.
type InputKind string

const (
	JSONL  InputKind = "jsonl"
	CSV    InputKind = "csv"
	Logfmt InputKind = "logfmt"
	Syslog InputKind = "syslog"
	Weblog InputKind = "weblog"
)

// LineParser turns one already-chunked line of input into a structured
// record.Value. Each concrete parser owns whatever state it needs across
// calls (the CSV parser needs its header row, the others are stateless).
type LineParser interface {
	ParseLine(line string) (record.Value, error)
}

// NewParser returns the parser for kind, or nil, false if kind is unknown.
func NewParser(kind InputKind) (LineParser, bool) {
	switch kind {
	case JSONL:
		return NewJSONLParser(), true
	case CSV:
		return NewCSVParser(), true
	case Logfmt:
		return NewLogfmtParser(), true
	case Syslog:
		return NewSyslogParser(), true
	case Weblog:
		return NewWeblogParser(), true
	}
	return nil, false
}

// OutputKind names a structured output format.
type OutputKind string

const (
	OutJSONL  OutputKind = "jsonl"
	OutCSV    OutputKind = "csv"
	OutLogfmt OutputKind = "logfmt"
)
