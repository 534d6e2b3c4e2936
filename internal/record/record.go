package record

// Context carries the per-record metadata every script sees, regardless of
// format: line/record numbers and the source file name.
type Context struct {
	LineNum     int64  // 1-based line number within the current input
	RecordCount int64  // 1-based count of records emitted so far (includes this one)
	Filename    string // "-" for stdin
}

// Record is either a Text line or a Structured value, never both.
type Record struct {
	Kind  Kind
	Text  string
	Value Value
	Ctx   Context
}

func NewText(text string, ctx Context) Record {
	return Record{Kind: Text, Text: text, Ctx: ctx}
}

func NewStructured(v Value, ctx Context) Record {
	return Record{Kind: Structured, Value: v, Ctx: ctx}
}

// Clone deep-copies the Value half of a Record so window buffers and
// emitted records never alias a live `data` binding a script keeps mutating.
func (r Record) Clone() Record {
	out := r
	if r.Kind == Structured {
		out.Value = cloneValue(r.Value)
	}
	return out
}
