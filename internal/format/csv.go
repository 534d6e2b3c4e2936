package format

import (
	"fmt"
	"strings"

	"github.com/stelp/stelp/internal/record"
)

// CSVParser holds the header row parsed from the first line of input and
// applies it to every subsequent line. Quoted fields containing commas or
// embedded quotes ("") are handled by a small hand-rolled state machine
// rather than encoding/csv, matching the exact quoting rules the rest of
// this pipeline was built against.
type CSVParser struct {
	headers []string
}

func NewCSVParser() *CSVParser { return &CSVParser{} }

// HeadersSet reports whether ParseHeaders has already run, so a caller
// feeding chunks in can tell the header row apart from data rows.
func (p *CSVParser) HeadersSet() bool { return p.headers != nil }

// ParseHeaders sets the column names from the first line of a CSV stream.
// Empty header names (after trimming whitespace and surrounding quotes) are
// dropped; an all-empty header line degrades to zero columns rather than
// erroring, so every subsequent row parses to an empty record.Map instead of
// aborting the run over a header anomaly.
func (p *CSVParser) ParseHeaders(headerLine string) error {
	fields, err := parseCSVFields(strings.TrimSpace(headerLine))
	if err != nil {
		return fmt.Errorf("failed to parse CSV headers: %w", err)
	}
	headers := make([]string, 0, len(fields))
	for _, h := range fields {
		h = strings.Trim(strings.TrimSpace(h), `"`)
		if h == "" {
			continue
		}
		headers = append(headers, h)
	}
	p.headers = headers
	return nil
}

func (p *CSVParser) ParseLine(line string) (record.Value, error) {
	if p.headers == nil {
		return record.Value{}, fmt.Errorf("CSV headers not initialized")
	}
	if len(p.headers) == 0 {
		return record.FromMap(record.NewMap()), nil
	}
	values, err := parseCSVFields(line)
	if err != nil {
		return record.Value{}, err
	}
	if len(values) != len(p.headers) {
		return record.Value{}, fmt.Errorf("CSV line has %d fields but expected %d headers", len(values), len(p.headers))
	}
	m := record.NewMap()
	for i, header := range p.headers {
		v := values[i]
		if len(v) > 1 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
			v = v[1 : len(v)-1]
		}
		m.Set(header, record.String(v))
	}
	return record.FromMap(m), nil
}

// parseCSVFields splits one CSV line into fields, honoring RFC4180-style
// quoting: a field wrapped in double quotes may contain commas, and an
// embedded double quote is written as two consecutive double quotes.
func parseCSVFields(line string) ([]string, error) {
	var fields []string
	var current strings.Builder
	inQuotes := false
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch ch {
		case '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ',':
			if inQuotes {
				current.WriteRune(',')
			} else {
				fields = append(fields, strings.TrimSpace(current.String()))
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}
	fields = append(fields, strings.TrimSpace(current.String()))
	if inQuotes {
		return nil, fmt.Errorf("unclosed quote in CSV line")
	}
	return fields, nil
}
