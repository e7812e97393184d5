package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompact(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected []any
	}{
		{name: "nil", input: nil, expected: []any{}},
		{name: "scalar", input: "turma", expected: []any{}},
		{name: "compact array", input: []any{"a", "b"}, expected: []any{"a", "b"}},
		{name: "array with holes", input: []any{nil, "a", nil, "b", nil}, expected: []any{"a", "b"}},
		{
			name:     "object with numeric keys orders numerically",
			input:    map[string]any{"10": "c", "2": "b", "0": "a"},
			expected: []any{"a", "b", "c"},
		},
		{
			name:     "numeric keys precede named keys",
			input:    map[string]any{"zeta": "z", "1": "one", "alpha": "a"},
			expected: []any{"one", "a", "z"},
		},
		{
			name:     "object holes dropped",
			input:    map[string]any{"0": "a", "1": nil, "3": "d"},
			expected: []any{"a", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compact(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got, Compact(got), "compacting twice must be stable")
			assert.NotContains(t, got, nil)
		})
	}
}

func TestEntriesKeepKeys(t *testing.T) {
	got := Entries(map[string]any{"4": "e", "1": "b"})
	assert.Equal(t, []Entry{{Key: "1", Value: "b"}, {Key: "4", Value: "e"}}, got)

	got = Entries([]any{nil, "b", nil, "d"})
	assert.Equal(t, []Entry{{Key: "1", Value: "b"}, {Key: "3", Value: "d"}}, got)
}

func TestObjects(t *testing.T) {
	got := Objects([]any{map[string]any{"nome": "Ana"}, "lixo", nil, map[string]any{"nome": "Bia"}})
	assert.Equal(t, []map[string]any{{"nome": "Ana"}, {"nome": "Bia"}}, got)
}
