package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xds/internal/diagnostic"
)

func depsOf(m map[string][]string) func(string) []string {
	return func(n string) []string { return m[n] }
}

func TestOrderModels(t *testing.T) {
	order, err := orderModels([]string{"c", "b", "a", "b"}, depsOf(map[string][]string{
		"c": {"b"},
		"b": {"a", "missing"},
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)

	order, err = orderModels([]string{"a", "z", "m"}, depsOf(map[string][]string{"a": {"z"}, "m": {"m"}}))
	require.NoError(t, err)
	assert.Equal(t, []string{"m", "z", "a"}, order)

	order, err = orderModels(nil, depsOf(nil))
	require.NoError(t, err)
	assert.Empty(t, order)
}

func TestOrderModels_Cycle(t *testing.T) {
	_, err := orderModels([]string{"a", "b", "c"}, depsOf(map[string][]string{"a": {"b"}, "b": {"a"}}))
	require.ErrorIs(t, err, diagnostic.ErrInvalidSpec)
	assert.Contains(t, err.Error(), "[a b]")
}
