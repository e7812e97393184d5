// Package normalize turns the untyped collections found in the tree store
// into compact ordered sequences.
//
// A roster may come back as nil, as an array with nil holes left by earlier
// partial deletes, or as a keyed object when the array was written sparsely.
// Every reader goes through Compact before touching the elements and every
// writer persists the compact form.
package normalize

import (
	"sort"
	"strconv"
)

// Entry is a non-nil element together with the key it was stored under.
type Entry struct {
	Key   string
	Value any
}

// Compact returns the non-nil elements of v in order. Objects are ordered by
// key: integer keys first ascending, then the rest lexicographically.
// Compact(Compact(v)) equals Compact(v).
func Compact(v any) []any {
	entries := Entries(v)
	out := make([]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Value)
	}
	return out
}

// Entries is Compact that keeps each element's original key. Array elements
// are keyed by their index before compaction.
func Entries(v any) []Entry {
	switch c := v.(type) {
	case []any:
		out := make([]Entry, 0, len(c))
		for i, item := range c {
			if item == nil {
				continue
			}
			out = append(out, Entry{Key: strconv.Itoa(i), Value: item})
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(c))
		for k, item := range c {
			if item != nil {
				keys = append(keys, k)
			}
		}
		sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })
		out := make([]Entry, 0, len(keys))
		for _, k := range keys {
			out = append(out, Entry{Key: k, Value: c[k]})
		}
		return out
	default:
		return []Entry{}
	}
}

// Objects is Compact restricted to object elements; scalars mixed into a
// roster by hand edits are dropped.
func Objects(v any) []map[string]any {
	items := Compact(v)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func keyLess(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}
