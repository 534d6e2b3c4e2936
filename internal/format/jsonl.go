package format

import (
	"fmt"
	"strings"

	"github.com/stelp/stelp/internal/record"
)

// JSONLParser parses one JSON document per line.
type JSONLParser struct{}

func NewJSONLParser() *JSONLParser { return &JSONLParser{} }

func (p *JSONLParser) ParseLine(line string) (record.Value, error) {
	v, err := DecodeJSONValue(strings.TrimSpace(line))
	if err != nil {
		return record.Value{}, fmt.Errorf("failed to parse JSONL: %w", err)
	}
	return v, nil
}
