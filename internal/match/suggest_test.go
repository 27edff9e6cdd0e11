package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"same", "same", 0},
		{"héllo", "hello", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b))
			assert.Equal(t, tt.want, Levenshtein(tt.b, tt.a))
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("Order_ID", "orderId"), 1e-9)
	assert.InDelta(t, 1.0, Similarity("", ""), 1e-9)
	assert.Less(t, Similarity("widget", "env"), 0.5)
}

func TestSuggest(t *testing.T) {
	keys := []string{"models/ds", "models/widget", "instances/ds/bow", "instances/env/prod"}

	assert.Equal(t, []string{"models/widget"}, Suggest("models/widgte", keys, 3, 0.6))
	assert.Equal(t, []string{"instances/ds/bow"}, Suggest("instances/ds/bwo", keys, 3, 0.3))
	assert.Empty(t, Suggest("models/zzz", keys, 3, 0.6))
}
