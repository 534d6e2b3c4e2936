package format

import (
	"fmt"
	"strings"

	"github.com/stelp/stelp/internal/record"
)

// LogfmtParser parses "key1=value1 key2=\"value with spaces\"" lines.
type LogfmtParser struct{}

func NewLogfmtParser() *LogfmtParser { return &LogfmtParser{} }

func (p *LogfmtParser) ParseLine(line string) (record.Value, error) {
	pairs, err := parseLogfmtPairs(strings.TrimSpace(line))
	if err != nil {
		return record.Value{}, err
	}
	m := record.NewMap()
	for _, kv := range pairs {
		m.Set(kv.key, record.String(kv.value))
	}
	return record.FromMap(m), nil
}

type logfmtPair struct{ key, value string }

func parseLogfmtPairs(line string) ([]logfmtPair, error) {
	var pairs []logfmtPair
	runes := []rune(line)
	i := 0
	n := len(runes)

	for i < n {
		for i < n && (runes[i] == ' ' || runes[i] == '\t') {
			i++
		}
		if i >= n {
			break
		}

		var key strings.Builder
		for i < n && runes[i] != '=' {
			if runes[i] == ' ' || runes[i] == '\t' {
				return nil, fmt.Errorf("key cannot contain spaces")
			}
			key.WriteRune(runes[i])
			i++
		}
		if key.Len() == 0 {
			return nil, fmt.Errorf("empty key found")
		}
		if i >= n || runes[i] != '=' {
			return nil, fmt.Errorf("expected '=' after key '%s'", key.String())
		}
		i++ // consume '='

		var value strings.Builder
		if i < n && runes[i] == '"' {
			i++ // consume opening quote
			for i < n {
				ch := runes[i]
				if ch == '"' {
					if i+1 < n && runes[i+1] == '"' {
						value.WriteRune('"')
						i += 2
						continue
					}
					i++
					break
				} else if ch == '\\' && i+1 < n {
					switch runes[i+1] {
					case 'n':
						value.WriteRune('\n')
					case 't':
						value.WriteRune('\t')
					case 'r':
						value.WriteRune('\r')
					case '\\':
						value.WriteRune('\\')
					case '"':
						value.WriteRune('"')
					default:
						value.WriteRune('\\')
						value.WriteRune(runes[i+1])
					}
					i += 2
				} else {
					value.WriteRune(ch)
					i++
				}
			}
		} else {
			for i < n && runes[i] != ' ' && runes[i] != '\t' {
				value.WriteRune(runes[i])
				i++
			}
		}

		pairs = append(pairs, logfmtPair{key: key.String(), value: value.String()})
	}

	return pairs, nil
}
