// Package flatten collapses nested record.Value structures into a single
// flat record.Map with dot-notation keys, for output sinks (CSV, logfmt)
// that cannot represent nesting natively.
package flatten

import (
	"strconv"

	"github.com/stelp/stelp/internal/record"
)

// Flatten returns a new flat Map built from v. Nested objects contribute
// "parent.child" keys; nested arrays contribute "parent.0", "parent.1", ...
// An empty nested object or array contributes nothing (not even a marker
// key) since it has no leaves to flatten.
func Flatten(v record.Value) *record.Map {
	result := record.NewMap()
	flattenInto(v, "", result)
	return result
}

func flattenInto(v record.Value, prefix string, result *record.Map) {
	switch v.Kind() {
	case record.KindMap:
		m, _ := v.Map()
		for _, key := range m.Keys() {
			child, _ := m.Get(key)
			flattenInto(child, joinKey(prefix, key), result)
		}
	case record.KindList:
		l, _ := v.List()
		for i, item := range l.Items() {
			flattenInto(item, joinKey(prefix, strconv.Itoa(i)), result)
		}
	default:
		if prefix != "" {
			result.Set(prefix, v)
		}
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// HasNestedData reports whether v (expected to be a Map or List) contains
// any Map or List child that would produce dotted keys under Flatten.
func HasNestedData(v record.Value) bool {
	switch v.Kind() {
	case record.KindMap:
		m, _ := v.Map()
		for _, key := range m.Keys() {
			child, _ := m.Get(key)
			if child.Kind() == record.KindMap || child.Kind() == record.KindList {
				return true
			}
		}
	case record.KindList:
		l, _ := v.List()
		for _, item := range l.Items() {
			if item.Kind() == record.KindMap || item.Kind() == record.KindList {
				return true
			}
		}
	}
	return false
}
