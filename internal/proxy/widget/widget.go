// Package widget provides a display delegate that renders the fields of the
// instance it is bound to.
package widget

import (
	"fmt"
	"strings"

	"xds/internal/common"
	"xds/internal/proxy"
)

// Name is the proxy name the delegate registers under.
const Name = "WidgetProxy"

// Widget keeps the bound instance's fields.
type Widget struct {
	Type string
	kws  map[string]any
}

// Register adds the delegate to m.
func Register(m *proxy.Map) {
	m.Register(Name, New)
}

// New builds a widget; the type field selects the rendering, "table" by default.
func New(kws map[string]any) (proxy.Delegate, error) {
	typ, _ := kws["type"].(string)
	if typ == "" {
		typ = "table"
	}

	return &Widget{Type: typ, kws: kws}, nil
}

func (w *Widget) Exports() []string { return []string{"render", "type"} }

// Render formats the non-empty fields as "type: k=v ...". Only the named
// fields are rendered when any are given.
func (w *Widget) Render(fields ...string) string {
	if len(fields) == 0 {
		fields = common.SortedKeys(w.kws)
	}

	parts := make([]string, 0, len(fields))

	for _, k := range fields {
		v, ok := w.kws[k]
		if !ok || common.IsFalsy(v) {
			continue
		}

		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}

	return w.Type + ": " + strings.Join(parts, " ")
}
