package instance

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"xds/internal/common"
	"xds/internal/diagnostic"
	"xds/internal/log"
	"xds/internal/normalize"
	"xds/internal/proxy"
	"xds/internal/schema"
)

// DefaultIdentity stamps created_by and updated_by when no identity is configured.
const DefaultIdentity = "xds"

// Factory constructs validated instances. The zero value is usable; nil
// hooks fall back to the wall clock, random uuids and the root logger.
type Factory struct {
	Proxies  *proxy.Binder
	Identity string
	Now      func() time.Time
	NewUUID  func() uuid.UUID
	Log      log.Logger
}

// NewFactory creates a factory binding proxies through b.
func NewFactory(b *proxy.Binder, identity string, l log.Logger) *Factory {
	return &Factory{Proxies: b, Identity: identity, Log: l}
}

// stamped system fields are set by the factory rather than validated from input
var stamped = map[string]bool{
	schema.FieldKind:      true,
	schema.FieldNS:        true,
	schema.FieldNSID:      true,
	schema.FieldUID:       true,
	schema.FieldUUID:      true,
	schema.FieldCreatedTS: true,
	schema.FieldUpdatedTS: true,
	schema.FieldCreatedBy: true,
	schema.FieldUpdatedBy: true,
}

// Construct normalizes raw against rt, coerces and checks every field and
// stamps the namespace and audit fields. When the type declares a non-empty
// proxy field the named delegate is bound; if binding fails, the fully
// constructed instance is returned together with the error.
func (f *Factory) Construct(rt *schema.RecordType, raw map[string]any) (*Instance, error) {
	l := log.Or(f.Log).With("kind", rt.Kind)

	res := normalize.Normalize(rt, raw)

	if err := checkKind(rt, res.Values[schema.FieldKind]); err != nil {
		return nil, err
	}

	if len(res.Strays) > 0 {
		return nil, diagnostic.Errorf(diagnostic.CodeStrictExtraField, rt.Kind, res.Strays[0],
			"not declared by strict type (%d unexpected)", len(res.Strays))
	}

	values := make(map[string]any, rt.Len())

	for _, fd := range rt.Fields() {
		if stamped[fd.Name] {
			continue
		}

		v, err := f.value(fd, res.Values[fd.Name], fd.Name)
		if err != nil {
			return nil, attribute(err, rt.Kind)
		}

		values[fd.Name] = v
	}

	if !rt.Child {
		if err := f.stamp(rt, res.Values, values); err != nil {
			return nil, attribute(err, rt.Kind)
		}
	}

	inst := &Instance{rt: rt, values: values, extras: res.Extras}

	name, _ := values[schema.FieldProxy].(string)
	if name == "" {
		return inst, nil
	}

	if f.Proxies == nil {
		err := diagnostic.Errorf(diagnostic.CodeProxyNotFound, rt.Kind, schema.FieldProxy, "no proxies configured for %q", name)
		l.Warn("proxy binding failed", "proxy", name, "err", err)

		return inst, err
	}

	c, err := f.Proxies.Bind(name, inst.Values())
	if err != nil {
		err = attribute(err, rt.Kind)
		l.Warn("proxy binding failed", "proxy", name, "err", err)

		return inst, err
	}

	inst.proxy = c

	l.Debug("constructed", "ns", inst.NS(), "proxy", name)

	return inst, nil
}

func checkKind(rt *schema.RecordType, v any) error {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}

	if name, _ := schema.SplitKind(s); !strings.EqualFold(name, rt.Kind) {
		return diagnostic.Errorf(diagnostic.CodeUnknownKind, rt.Kind, schema.FieldKind, "input is of kind %q", s)
	}

	return nil
}

func (f *Factory) value(fd *schema.FieldDefinition, v any, path string) (any, error) {
	if v == normalize.Missing || (fd.Required && (v == nil || v == "")) {
		return nil, diagnostic.Errorf(diagnostic.CodeValidation, "", path, "required %s missing", fd.Meta.DType)
	}

	if v == nil {
		return nil, nil
	}

	switch fd.Value {
	case schema.ValueRecord:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, diagnostic.Errorf(diagnostic.CodeValidation, "", path, "expected a %s record, got %T", fd.Record.Kind, v)
		}

		return f.record(fd.Record, m, path)

	case schema.ValueSequence:
		items, ok := v.([]any)
		if !ok {
			items = []any{v}
		}

		out := make([]any, len(items))

		for i, item := range items {
			at := path + "." + strconv.Itoa(i)

			m, ok := item.(map[string]any)
			if !ok {
				return nil, diagnostic.Errorf(diagnostic.CodeValidation, "", at, "expected a %s record, got %T", fd.Record.Kind, item)
			}

			r, err := f.record(fd.Record, m, at)
			if err != nil {
				return nil, err
			}

			out[i] = r
		}

		return out, nil
	}

	cv, err := fd.Spec.CoerceValue(v)
	if err != nil {
		return nil, &diagnostic.Error{
			Code:  diagnostic.CodeValidation,
			Field: path,
			Msg:   "expected " + fd.Spec.DType(),
			Err:   err,
		}
	}

	if err := fd.Spec.Check(path, cv); err != nil {
		return nil, err
	}

	return cv, nil
}

// record validates a nested object. Keys outside rt survive only on open
// types.
func (f *Factory) record(rt *schema.RecordType, m map[string]any, path string) (map[string]any, error) {
	out := make(map[string]any, len(m))

	for _, k := range common.SortedKeys(m) {
		if _, declared := rt.Field(k); declared {
			continue
		}

		if rt.Strict {
			return nil, diagnostic.Errorf(diagnostic.CodeStrictExtraField, "", path+"."+k, "not declared by strict type %s", rt.Kind)
		}

		out[k] = m[k]
	}

	for _, fd := range rt.Fields() {
		v, err := f.value(fd, m[fd.Name], path+"."+fd.Name)
		if err != nil {
			return nil, err
		}

		out[fd.Name] = v
	}

	return out, nil
}

// stamp sets kind, the namespace pair and the audit fields. Supplied
// creation stamps and uuids are kept, so reconstructing from an instance's
// own values preserves its identity.
func (f *Factory) stamp(rt *schema.RecordType, in, out map[string]any) error {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}

	newUUID := uuid.New
	if f.NewUUID != nil {
		newUUID = f.NewUUID
	}

	identity := f.Identity
	if identity == "" {
		identity = DefaultIdentity
	}

	ns := Namespace(rt.Kind, in[schema.FieldNS])

	out[schema.FieldKind] = rt.Kind
	out[schema.FieldNS] = ns
	out[schema.FieldNSID] = strings.ToLower(ns)
	out[schema.FieldUpdatedTS] = now()
	out[schema.FieldUpdatedBy] = identity

	fallback := map[string]func() any{
		schema.FieldUID:       func() any { return identity },
		schema.FieldUUID:      func() any { return newUUID() },
		schema.FieldCreatedTS: func() any { return out[schema.FieldUpdatedTS] },
		schema.FieldCreatedBy: func() any { return identity },
	}

	for name, def := range fallback {
		fd, ok := rt.Field(name)
		if !ok {
			continue
		}

		v, err := f.value(fd, in[name], name)
		if err != nil {
			return err
		}

		if v == nil || v == "" {
			v = def()
		}

		out[name] = v
	}

	return nil
}

// Namespace joins model with a caller supplied namespace, keeping the case
// of both. A namespace already rooted at model, compared without case, is
// kept as is. The nsid is the lower-cased namespace.
func Namespace(model string, callerNS any) string {
	s, _ := callerNS.(string)
	s = strings.Trim(s, "/")

	switch {
	case s == "":
		return model
	case strings.EqualFold(s, model), hasFoldPrefix(s, model+"/"):
		return s
	}

	return model + "/" + s
}

func hasFoldPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func attribute(err error, kind string) error {
	var e *diagnostic.Error
	if errors.As(err, &e) && e.Kind == "" {
		if e == err {
			return e.WithKind(kind)
		}

		e.Kind = kind
	}

	return err
}
