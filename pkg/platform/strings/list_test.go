package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnique(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil", input: nil, expected: nil},
		{name: "empty", input: []string{}, expected: []string{}},
		{name: "keeps first appearance", input: []string{"futsal", "volei", "futsal"}, expected: []string{"futsal", "volei"}},
		{name: "drops empty", input: []string{"", "u-1", ""}, expected: []string{"u-1"}},
		{name: "case sensitive", input: []string{"Sub 9", "sub 9"}, expected: []string{"Sub 9", "sub 9"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Unique(tt.input))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList("", ","))
	assert.Nil(t, SplitList("   ", ","))
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"},
		SplitList(" kafka-1:9092, kafka-2:9092 ,,kafka-1:9092", ","))
}

func TestUniqueDoesNotAliasInput(t *testing.T) {
	in := []string{"a", "a", "b"}
	out := Unique(in)
	out[0] = "z"
	assert.Equal(t, []string{"a", "a", "b"}, in)
}
