package proxy

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/pkg/errors"

	"xds/internal/common"
	"xds/internal/diagnostic"
	"xds/internal/log"
	"xds/internal/match"
)

var errorType = reflect.TypeFor[error]()

// Func forwards a call to a delegate member. Results are unwrapped: no
// result is nil, one is returned as is, several come back as []any. A
// trailing error result is returned as the error.
type Func func(args ...any) (any, error)

// Capability is the surface a delegate adds to a bound instance: live
// forwarding functions for callable exports and values snapshotted at bind
// time for the rest.
type Capability struct {
	name     string
	delegate Delegate
	exports  []string
	funcs    map[string]Func
	values   map[string]any
}

// Name returns the proxy name the capability was bound from.
func (c *Capability) Name() string { return c.name }

// Delegate returns the bound delegate. The instance does not own it.
func (c *Capability) Delegate() Delegate { return c.delegate }

// Exports returns the export names in the delegate's order.
func (c *Capability) Exports() []string { return slices.Clone(c.exports) }

// Func returns the forwarding function for a callable export.
func (c *Capability) Func(name string) (Func, bool) {
	f, ok := c.funcs[name]
	return f, ok
}

// Value returns the snapshot of a non-callable export.
func (c *Capability) Value(name string) (any, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Call invokes a callable export.
func (c *Capability) Call(name string, args ...any) (any, error) {
	f, ok := c.funcs[name]
	if !ok {
		return nil, errors.Errorf("proxy %s: %q is not a callable export", c.name, name)
	}

	return f(args...)
}

// Binder constructs delegates from a proxy map and resolves their exports.
type Binder struct {
	proxies *Map
	log     log.Logger
}

// NewBinder creates a binder over m.
func NewBinder(m *Map, l log.Logger) *Binder {
	return &Binder{proxies: m, log: log.Or(l)}
}

// Proxies returns the binder's proxy map.
func (b *Binder) Proxies() *Map { return b.proxies }

// Bind constructs the delegate registered as name with values as its
// arguments and resolves its exports.
func (b *Binder) Bind(name string, values map[string]any) (*Capability, error) {
	ctor, ok := b.proxies.Lookup(name)
	if !ok {
		e := diagnostic.Errorf(diagnostic.CodeProxyNotFound, "", "proxy", "no delegate registered as %q", name)
		if suggestions := match.Suggest(name, b.proxies.Names(), 3, 0.5); len(suggestions) > 0 {
			e.Msg += fmt.Sprintf(" (did you mean %v?)", suggestions)
		}

		return nil, e
	}

	d, err := ctor(maps.Clone(values))
	if err != nil {
		return nil, errors.Wrapf(err, "construct proxy %s", name)
	}

	c := &Capability{
		name:     name,
		delegate: d,
		exports:  d.Exports(),
		funcs:    map[string]Func{},
		values:   map[string]any{},
	}

	rv := reflect.ValueOf(d)

	for _, export := range c.exports {
		if err := c.resolve(rv, export); err != nil {
			return nil, err
		}
	}

	b.log.Debug("bound proxy", "proxy", name, "exports", len(c.exports))

	return c, nil
}

func (c *Capability) resolve(rv reflect.Value, export string) error {
	want := match.NormalizeIdent(export)

	for i := range rv.NumMethod() {
		if match.NormalizeIdent(rv.Type().Method(i).Name) == want {
			c.funcs[export] = forward(rv.Method(i))
			return nil
		}
	}

	sv := reflect.Indirect(rv)
	if sv.Kind() == reflect.Struct {
		for i := range sv.NumField() {
			sf := sv.Type().Field(i)
			if !sf.IsExported() || match.NormalizeIdent(sf.Name) != want {
				continue
			}

			fv := sv.Field(i)
			if fv.Kind() == reflect.Func {
				// read the field on every call so reassignment stays visible
				c.funcs[export] = func(args ...any) (any, error) {
					if fv.IsNil() {
						return nil, errors.Errorf("proxy %s: export %q is nil", c.name, export)
					}

					return forward(fv)(args...)
				}

				return nil
			}

			c.values[export] = snapshot(fv)

			return nil
		}
	}

	return errors.Errorf("proxy %s: delegate %T has no member for export %q", c.name, c.delegate, export)
}

// snapshot copies slices and maps one level deep so later delegate-side
// mutation is not visible through the value.
func snapshot(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return v.Interface()
		}

		c := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		reflect.Copy(c, v)

		return c.Interface()

	case reflect.Map:
		if v.IsNil() {
			return v.Interface()
		}

		c := reflect.MakeMapWithSize(v.Type(), v.Len())

		iter := v.MapRange()
		for iter.Next() {
			c.SetMapIndex(iter.Key(), iter.Value())
		}

		return c.Interface()
	}

	return v.Interface()
}

func forward(fn reflect.Value) Func {
	return func(args ...any) (any, error) {
		in, err := arguments(fn.Type(), args)
		if err != nil {
			return nil, err
		}

		return results(fn.Call(in))
	}
}

func arguments(ft reflect.Type, args []any) ([]reflect.Value, error) {
	n := ft.NumIn()

	switch {
	case ft.IsVariadic() && len(args) < n-1:
		return nil, errors.Errorf("want at least %d arguments, got %d", n-1, len(args))
	case !ft.IsVariadic() && len(args) != n:
		return nil, errors.Errorf("want %d arguments, got %d", n, len(args))
	}

	in := make([]reflect.Value, len(args))

	for i, a := range args {
		var pt reflect.Type
		if ft.IsVariadic() && i >= n-1 {
			pt = ft.In(n - 1).Elem()
		} else {
			pt = ft.In(i)
		}

		v, err := convert(a, pt)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d", i)
		}

		in[i] = v
	}

	return in, nil
}

func convert(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}

		return reflect.Value{}, errors.Errorf("nil for %s", t)
	}

	v := reflect.ValueOf(a)

	switch {
	case v.Type().AssignableTo(t):
		return v, nil
	case v.Type().ConvertibleTo(t) && v.Kind() != reflect.String && t.Kind() != reflect.String:
		return v.Convert(t), nil
	case v.Kind() == reflect.String && t.Kind() == reflect.String:
		return v.Convert(t), nil
	}

	return reflect.Value{}, errors.Errorf("%T is not assignable to %s", a, t)
}

func results(out []reflect.Value) (any, error) {
	var err error

	if last, ok := common.Last(out); ok && last.Type().Implements(errorType) && last.Type().Kind() == reflect.Interface {
		if !last.IsNil() {
			err = last.Interface().(error)
		}

		out = out[:len(out)-1]
	}

	switch len(out) {
	case 0:
		return nil, err
	case 1:
		return out[0].Interface(), err
	}

	vals := make([]any, len(out))
	for i, v := range out {
		vals[i] = v.Interface()
	}

	return vals, err
}
