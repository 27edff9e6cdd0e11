package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPath(t *testing.T) {
	tests := []struct {
		key  string
		want Path
	}{
		{"a", Path{"a"}},
		{"a.b", Path{"a", "b"}},
		{"a__b.c", Path{"a", "b", "c"}},
		{"a..b", Path{"a", "b"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitPath(tt.key))
		})
	}
}

func TestFlattenUnflatten(t *testing.T) {
	nested := map[string]any{
		"a": map[string]any{"b": 1, "c": map[string]any{"d": "x"}},
		"e": []any{1, 2},
		"f": map[string]any{},
	}

	flat := Flatten(nested)
	assert.Equal(t, map[string]any{
		"a.b":   1,
		"a.c.d": "x",
		"e":     []any{1, 2},
		"f":     map[string]any{},
	}, flat)

	back, conflicts := Unflatten(flat)
	assert.Equal(t, nested, back)
	assert.Empty(t, conflicts)
}

func TestUnflatten_Conflicts(t *testing.T) {
	nested, conflicts := Unflatten(map[string]any{"a": 1, "a.b": 2, "c__d": 3})

	assert.Equal(t, map[string]any{"a": 1, "c": map[string]any{"d": 3}}, nested)
	assert.Equal(t, map[string]any{"a.b": 2}, conflicts)
}
