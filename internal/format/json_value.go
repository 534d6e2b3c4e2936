package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/stelp/stelp/internal/record"
)

// DecodeJSONValue parses a single JSON document from text into an
// order-preserving record.Value. encoding/json's native Unmarshal into
// map[string]any loses key order, which would silently violate the
// "insertion order preserved" invariant every time a JSON object passed
// through the pipeline untouched, so objects are walked token by token
// instead (modeled on the streaming NDJSON decoder in
// util/json, generalized here to rebuild an ordered value instead of a Go
// struct).
func DecodeJSONValue(text string) (record.Value, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return record.Value{}, err
	}
	// Reject trailing garbage so malformed lines are reported, not silently
	// truncated at the first valid value.
	if _, err := dec.Token(); err != io.EOF {
		return record.Value{}, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (record.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return record.Value{}, err
	}
	return jsonTokenToValue(dec, tok)
}

func jsonTokenToValue(dec *json.Decoder, tok json.Token) (record.Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := record.NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return record.Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return record.Value{}, fmt.Errorf("expected object key, got %v", keyTok)
				}
				val, err := decodeJSONValue(dec)
				if err != nil {
					return record.Value{}, err
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return record.Value{}, err
			}
			return record.FromMap(m), nil
		case '[':
			l := record.NewList()
			for dec.More() {
				val, err := decodeJSONValue(dec)
				if err != nil {
					return record.Value{}, err
				}
				l.Append(val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return record.Value{}, err
			}
			return record.FromList(l), nil
		default:
			return record.Value{}, fmt.Errorf("unexpected JSON delimiter %v", t)
		}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return record.Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return record.Value{}, err
		}
		return record.Float(f), nil
	case string:
		return record.String(t), nil
	case bool:
		return record.Bool(t), nil
	case nil:
		return record.Null(), nil
	default:
		return record.Value{}, fmt.Errorf("unsupported JSON token %v", tok)
	}
}

// EncodeJSONValue renders v as a compact JSON document, preserving Map key
// order exactly as stored.
func EncodeJSONValue(v record.Value) (string, error) {
	var buf []byte
	buf, err := appendJSONValue(buf, v)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func appendJSONValue(buf []byte, v record.Value) ([]byte, error) {
	switch v.Kind() {
	case record.KindNull:
		return append(buf, "null"...), nil
	case record.KindBool:
		b, _ := v.Bool()
		if b {
			return append(buf, "true"...), nil
		}
		return append(buf, "false"...), nil
	case record.KindInt:
		i, _ := v.Int()
		return append(buf, fmt.Sprintf("%d", i)...), nil
	case record.KindFloat:
		f, _ := v.Float()
		return append(buf, fmt.Sprintf("%g", f)...), nil
	case record.KindString:
		s, _ := v.Str()
		enc, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		return append(buf, enc...), nil
	case record.KindList:
		l, _ := v.List()
		buf = append(buf, '[')
		for i, item := range l.Items() {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			buf, err = appendJSONValue(buf, item)
			if err != nil {
				return nil, err
			}
		}
		return append(buf, ']'), nil
	case record.KindMap:
		m, _ := v.Map()
		buf = append(buf, '{')
		for i, k := range m.Keys() {
			if i > 0 {
				buf = append(buf, ',')
			}
			keyEnc, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, keyEnc...)
			buf = append(buf, ':')
			val, _ := m.Get(k)
			buf, err = appendJSONValue(buf, val)
			if err != nil {
				return nil, err
			}
		}
		return append(buf, '}'), nil
	}
	return buf, nil
}
