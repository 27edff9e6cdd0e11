package log

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTfmt(t *testing.T) {
	got := tfmt("INF ", "registered", []any{"kind", "DS", "fields", 4}, []any{"ns", "models"})
	assert.Equal(t, "INF registered kind=DS fields=4 ns=models", got)
}

type recorder struct {
	lines []string
}

func (r *recorder) Logf(f string, args ...any) { r.lines = append(r.lines, fmt.Sprintf(f, args...)) }
func (r *recorder) Helper()                    {}

func TestTestingWith(t *testing.T) {
	rec := &recorder{}
	l := NewTesting(rec).With("component", "registry")
	l.Warn("xref unresolved", "field", "ds")

	assert.Equal(t, []string{"WRN xref unresolved field=ds component=registry"}, rec.lines)
}

func TestOr(t *testing.T) {
	assert.Equal(t, Root, Or(nil))

	d := Discard{}
	assert.Equal(t, Logger(d), Or(d))
}
