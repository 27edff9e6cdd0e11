package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFalsy(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"nil", nil, true},
		{"empty string", "", true},
		{"string", "x", false},
		{"zero int", 0, true},
		{"int", 3, false},
		{"zero float", 0.0, true},
		{"false", false, true},
		{"true", true, false},
		{"empty map", map[string]any{}, true},
		{"map", map[string]any{"a": 1}, false},
		{"empty slice", []any{}, true},
		{"typed empty slice", []string{}, true},
		{"typed slice", []string{"a"}, false},
		{"uint zero", uint8(0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFalsy(tt.in))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitList("a, b,,c "))
	assert.Empty(t, SplitList(""))
}

func TestUnpack2(t *testing.T) {
	a, b := Unpack2([]int{1, 2, 3})
	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)

	a, b = Unpack2([]int{7})
	assert.Equal(t, 7, a)
	assert.Equal(t, 0, b)
}
