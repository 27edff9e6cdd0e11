package proxy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xds/internal/diagnostic"
	"xds/internal/log"
)

type counter struct {
	Label  string
	Tags   []string
	Hook   func(int) int
	n      int
	kwargs map[string]any
}

func (c *counter) Exports() []string {
	return []string{"label", "tags", "add", "count", "hook", "split", "fail"}
}

func (c *counter) Add(delta int) int {
	c.n += delta
	return c.n
}

func (c *counter) Count() int { return c.n }

func (c *counter) Split(s string, sep ...string) (string, int) {
	return s, len(sep)
}

func (c *counter) Fail() error { return errors.New("boom") }

func newCounter(kws map[string]any) (Delegate, error) {
	label, _ := kws["label"].(string)
	return &counter{Label: label, Tags: []string{"a"}, Hook: func(i int) int { return i * 10 }, kwargs: kws}, nil
}

func testBinder(t *testing.T) *Binder {
	m := NewMap()
	m.Register("Counter", newCounter)

	return NewBinder(m, log.NewTesting(t))
}

func TestBinder_Bind(t *testing.T) {
	b := testBinder(t)

	c, err := b.Bind("Counter", map[string]any{"label": "clicks", "unused": 1})
	require.NoError(t, err)

	assert.Equal(t, "Counter", c.Name())
	assert.Equal(t, []string{"label", "tags", "add", "count", "hook", "split", "fail"}, c.Exports())

	label, ok := c.Value("label")
	require.True(t, ok)
	assert.Equal(t, "clicks", label)

	_, ok = c.Func("label")
	assert.False(t, ok)

	v, err := c.Call("add", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	// forwarding is live
	d := c.Delegate().(*counter)
	d.n = 40

	v, err = c.Call("count")
	require.NoError(t, err)
	assert.Equal(t, 40, v)

	v, err = c.Call("hook", int64(3))
	require.NoError(t, err)
	assert.Equal(t, 30, v)

	d.Hook = func(i int) int { return -i }
	v, err = c.Call("hook", 3)
	require.NoError(t, err)
	assert.Equal(t, -3, v)

	v, err = c.Call("split", "x", ",", ";")
	require.NoError(t, err)
	assert.Equal(t, []any{"x", 2}, v)

	_, err = c.Call("fail")
	assert.EqualError(t, err, "boom")
}

func TestBinder_SnapshotIsNotLive(t *testing.T) {
	b := testBinder(t)

	c, err := b.Bind("Counter", map[string]any{"label": "x"})
	require.NoError(t, err)

	d := c.Delegate().(*counter)
	d.Label = "changed"
	d.Tags[0] = "mutated"

	label, _ := c.Value("label")
	assert.Equal(t, "x", label)

	tags, _ := c.Value("tags")
	assert.Equal(t, []string{"a"}, tags)
}

func TestBinder_DelegateGetsCopyOfValues(t *testing.T) {
	b := testBinder(t)
	values := map[string]any{"label": "x"}

	c, err := b.Bind("Counter", values)
	require.NoError(t, err)

	c.Delegate().(*counter).kwargs["label"] = "y"
	assert.Equal(t, "x", values["label"])
}

func TestBinder_ProxyNotFound(t *testing.T) {
	b := testBinder(t)

	_, err := b.Bind("Countr", nil)
	require.ErrorIs(t, err, diagnostic.ErrProxyNotFound)
	assert.Contains(t, err.Error(), "Counter")
}

func TestBinder_CallErrors(t *testing.T) {
	b := testBinder(t)

	c, err := b.Bind("Counter", nil)
	require.NoError(t, err)

	_, err = c.Call("nope")
	assert.Error(t, err)

	_, err = c.Call("add")
	assert.Error(t, err)

	_, err = c.Call("add", "two")
	assert.Error(t, err)
}

type broken struct{}

func (broken) Exports() []string { return []string{"missing"} }

func TestBinder_UnresolvableExport(t *testing.T) {
	m := NewMap()
	m.Register("Broken", func(map[string]any) (Delegate, error) { return broken{}, nil })
	m.Register("Failing", func(map[string]any) (Delegate, error) { return nil, errors.New("no ns") })

	b := NewBinder(m, log.Discard{})

	_, err := b.Bind("Broken", nil)
	assert.ErrorContains(t, err, `"missing"`)

	_, err = b.Bind("Failing", nil)
	assert.ErrorContains(t, err, "construct proxy Failing: no ns")
}

func TestMap(t *testing.T) {
	m := NewMap()
	m.Register("B", newCounter)
	m.Register("A", newCounter)

	assert.Equal(t, []string{"A", "B"}, m.Names())
	assert.True(t, m.Has("A"))
	assert.False(t, m.Has("C"))

	var nilMap *Map
	assert.False(t, nilMap.Has("A"))
}
