package format

import (
	"testing"

	"github.com/stelp/stelp/internal/record"
)

func mustMap(t *testing.T, v record.Value) *record.Map {
	t.Helper()
	m, ok := v.Map()
	if !ok {
		t.Fatalf("value is not a map: %v", v.Kind())
	}
	return m
}

func mustStr(t *testing.T, m *record.Map, key string) string {
	t.Helper()
	v, ok := m.Get(key)
	if !ok {
		t.Fatalf("missing key %q", key)
	}
	s, ok := v.Str()
	if !ok {
		t.Fatalf("key %q is not a string: %v", key, v.Kind())
	}
	return s
}

func mustInt(t *testing.T, m *record.Map, key string) int64 {
	t.Helper()
	v, ok := m.Get(key)
	if !ok {
		t.Fatalf("missing key %q", key)
	}
	i, ok := v.Int()
	if !ok {
		t.Fatalf("key %q is not an int: %v", key, v.Kind())
	}
	return i
}

func TestJSONLParseLine(t *testing.T) {
	p := NewJSONLParser()
	v, err := p.ParseLine(`{"name":"Alice","age":30}`)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	m := mustMap(t, v)
	if got := mustStr(t, m, "name"); got != "Alice" {
		t.Errorf("name = %q", got)
	}
	if got := mustInt(t, m, "age"); got != 30 {
		t.Errorf("age = %d", got)
	}
	// insertion order survives the round trip
	if got := m.Keys(); len(got) != 2 || got[0] != "name" || got[1] != "age" {
		t.Errorf("key order = %v, want [name age]", got)
	}
}

func TestJSONLParseLineRejectsTrailingGarbage(t *testing.T) {
	p := NewJSONLParser()
	if _, err := p.ParseLine(`{"a":1} garbage`); err == nil {
		t.Error("expected error for trailing data after JSON value")
	}
}

func TestJSONLParseLineInvalid(t *testing.T) {
	p := NewJSONLParser()
	if _, err := p.ParseLine(`{not json`); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestJSONLRoundTrip(t *testing.T) {
	parser := NewJSONLParser()
	v, err := parser.ParseLine(`{"b":2,"a":1,"nested":{"x":true}}`)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	encoded, err := EncodeJSONValue(v)
	if err != nil {
		t.Fatalf("EncodeJSONValue: %v", err)
	}
	want := `{"b":2,"a":1,"nested":{"x":true}}`
	if encoded != want {
		t.Errorf("round trip = %q, want %q", encoded, want)
	}
}

func TestCSVParseHeadersAndLine(t *testing.T) {
	p := NewCSVParser()
	if err := p.ParseHeaders("name,age,city"); err != nil {
		t.Fatalf("ParseHeaders: %v", err)
	}
	if !p.HeadersSet() {
		t.Fatal("HeadersSet() = false after ParseHeaders")
	}
	v, err := p.ParseLine(`Alice,30,"New York, NY"`)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	m := mustMap(t, v)
	if got := mustStr(t, m, "name"); got != "Alice" {
		t.Errorf("name = %q", got)
	}
	if got := mustStr(t, m, "city"); got != "New York, NY" {
		t.Errorf("city = %q", got)
	}
}

func TestCSVParseHeadersDropsEmptyNames(t *testing.T) {
	p := NewCSVParser()
	if err := p.ParseHeaders(`name,,city`); err != nil {
		t.Fatalf("ParseHeaders: %v", err)
	}
	// the blank column name is dropped, so only two headers remain and a
	// three-field data row no longer lines up with them.
	if _, err := p.ParseLine("Alice,ignored,NYC"); err == nil {
		t.Error("expected field count mismatch after dropping the blank header")
	}
}

func TestCSVParseHeadersAllEmptyDegradesToZeroColumns(t *testing.T) {
	p := NewCSVParser()
	if err := p.ParseHeaders(",,"); err != nil {
		t.Fatalf("ParseHeaders on an all-empty header line should not error: %v", err)
	}
	if !p.HeadersSet() {
		t.Fatal("HeadersSet() = false after an all-empty header line")
	}
	v, err := p.ParseLine("anything,goes,here")
	if err != nil {
		t.Fatalf("ParseLine after zero-column header: %v", err)
	}
	m := mustMap(t, v)
	if m.Len() != 0 {
		t.Errorf("expected an empty record, got %d keys", m.Len())
	}
}

func TestCSVParseLineFieldCountMismatch(t *testing.T) {
	p := NewCSVParser()
	if err := p.ParseHeaders("a,b,c"); err != nil {
		t.Fatalf("ParseHeaders: %v", err)
	}
	if _, err := p.ParseLine("1,2"); err == nil {
		t.Error("expected error for field count mismatch")
	}
}

func TestLogfmtParseLine(t *testing.T) {
	p := NewLogfmtParser()
	v, err := p.ParseLine(`level=info msg="hello world" count=3`)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	m := mustMap(t, v)
	if got := mustStr(t, m, "level"); got != "info" {
		t.Errorf("level = %q", got)
	}
	if got := mustStr(t, m, "msg"); got != "hello world" {
		t.Errorf("msg = %q", got)
	}
	if got := mustStr(t, m, "count"); got != "3" {
		t.Errorf("count = %q", got)
	}
}

func TestLogfmtParseLineRejectsSpaceInKey(t *testing.T) {
	p := NewLogfmtParser()
	if _, err := p.ParseLine(`bad key=value`); err == nil {
		t.Error("expected error for a space inside a key")
	}
}

func TestSyslogParseRFC5424(t *testing.T) {
	p := NewSyslogParser()
	line := `<34>1 2023-10-01T12:00:00Z myhost myapp 1234 ID47 - message body here`
	v, err := p.ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	m := mustMap(t, v)
	if got := mustInt(t, m, "pri"); got != 34 {
		t.Errorf("pri = %d", got)
	}
	if got := mustInt(t, m, "facility"); got != 4 {
		t.Errorf("facility = %d", got)
	}
	if got := mustInt(t, m, "severity"); got != 2 {
		t.Errorf("severity = %d", got)
	}
	if got := mustStr(t, m, "host"); got != "myhost" {
		t.Errorf("host = %q", got)
	}
	if got := mustStr(t, m, "prog"); got != "myapp" {
		t.Errorf("prog = %q", got)
	}
	if got := mustInt(t, m, "pid"); got != 1234 {
		t.Errorf("pid = %d", got)
	}
	if got := mustStr(t, m, "msg"); got != "message body here" {
		t.Errorf("msg = %q", got)
	}
}

func TestSyslogParseRFC3164(t *testing.T) {
	p := NewSyslogParser()
	line := `Oct 11 22:14:15 myhost myapp[1234]: a message`
	v, err := p.ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	m := mustMap(t, v)
	if got := mustStr(t, m, "host"); got != "myhost" {
		t.Errorf("host = %q", got)
	}
	if got := mustStr(t, m, "prog"); got != "myapp" {
		t.Errorf("prog = %q", got)
	}
	if got := mustInt(t, m, "pid"); got != 1234 {
		t.Errorf("pid = %d", got)
	}
	if got := mustStr(t, m, "msg"); got != "a message" {
		t.Errorf("msg = %q", got)
	}
}

func TestSyslogParseUnrecognized(t *testing.T) {
	p := NewSyslogParser()
	if _, err := p.ParseLine("not a syslog line at all"); err == nil {
		t.Error("expected error for an unrecognized line")
	}
}

func TestWeblogParseCombined(t *testing.T) {
	p := NewWeblogParser()
	line := `127.0.0.1 - frank [10/Oct/2023:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.0" 200 2326 "http://ref.example/" "Mozilla/5.0"`
	v, err := p.ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	m := mustMap(t, v)
	if got := mustStr(t, m, "ip"); got != "127.0.0.1" {
		t.Errorf("ip = %q", got)
	}
	if got := mustStr(t, m, "user"); got != "frank" {
		t.Errorf("user = %q", got)
	}
	if got := mustStr(t, m, "method"); got != "GET" {
		t.Errorf("method = %q", got)
	}
	if got := mustStr(t, m, "path"); got != "/apache_pb.gif" {
		t.Errorf("path = %q", got)
	}
	if got := mustInt(t, m, "status"); got != 200 {
		t.Errorf("status = %d", got)
	}
	if got := mustInt(t, m, "size"); got != 2326 {
		t.Errorf("size = %d", got)
	}
	if got := mustStr(t, m, "referer"); got != "http://ref.example/" {
		t.Errorf("referer = %q", got)
	}
	if got := mustStr(t, m, "ua"); got != "Mozilla/5.0" {
		t.Errorf("ua = %q", got)
	}
}

func TestWeblogParseCommonFallback(t *testing.T) {
	p := NewWeblogParser()
	line := `10.0.0.1 - - [10/Oct/2023:13:55:36 -0700] "GET / HTTP/1.1" 404 -`
	v, err := p.ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	m := mustMap(t, v)
	if _, ok := m.Get("ident"); ok {
		t.Error("ident should be dropped when '-'")
	}
	if _, ok := m.Get("user"); ok {
		t.Error("user should be dropped when '-'")
	}
	if got := mustInt(t, m, "status"); got != 404 {
		t.Errorf("status = %d", got)
	}
	if _, ok := m.Get("size"); ok {
		t.Error("size should be dropped when '-'")
	}
}

func TestWeblogParseUnrecognized(t *testing.T) {
	p := NewWeblogParser()
	if _, err := p.ParseLine("not a web log line"); err == nil {
		t.Error("expected error for an unrecognized line")
	}
}

func TestNewParserUnknownKind(t *testing.T) {
	if _, ok := NewParser(InputKind("bogus")); ok {
		t.Error("expected ok=false for an unknown input kind")
	}
}
