package fieldspec

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"xds/internal/common"
)

// layouts lists accepted input layouts per temporal type; the first one is
// used for output.
var layouts = map[BaseType][]string{
	TypeDate: {time.DateOnly, "2006/01/02", "20060102"},
	TypeTime: {time.TimeOnly, "15:04", time.Kitchen},
	TypeDatetime: {
		time.RFC3339,
		time.RFC3339Nano,
		time.DateTime,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		time.DateOnly,
	},
}

// Coerce converts a raw text value to the field's effective type. List
// fields split the text on commas.
func (fs *FieldSpec) Coerce(raw string) (any, error) {
	if !fs.List() {
		return coerceScalar(fs.Type, raw)
	}

	parts := common.SplitList(raw)
	out := make([]any, 0, len(parts))

	for _, p := range parts {
		v, err := coerceScalar(fs.Type, p)
		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, nil
}

// CoerceValue converts an arbitrary decoded value (YAML, JSON or Go) to the
// field's effective type. A scalar given to a list field becomes a
// one-element list; a string given to a list field is split on commas.
func (fs *FieldSpec) CoerceValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	if !fs.List() {
		return coerceAny(fs.Type, v)
	}

	if s, ok := v.(string); ok {
		return fs.Coerce(s)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		x, err := coerceAny(fs.Type, v)
		if err != nil {
			return nil, err
		}

		return []any{x}, nil
	}

	out := make([]any, 0, rv.Len())

	for i := range rv.Len() {
		x, err := coerceAny(fs.Type, rv.Index(i).Interface())
		if err != nil {
			return nil, errors.Wrapf(err, "item %d", i)
		}

		out = append(out, x)
	}

	return out, nil
}

func coerceScalar(t BaseType, s string) (any, error) {
	s = strings.TrimSpace(s)

	switch t {
	case TypeInt:
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil || f != math.Trunc(f) {
				return nil, errors.Errorf("%q is not an int", s)
			}

			return int64(f), nil
		}

		return n, nil

	case TypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Errorf("%q is not a float", s)
		}

		return f, nil

	case TypeBool:
		switch strings.ToLower(s) {
		case "true", "yes", "on", "1", "y", "t":
			return true, nil
		case "false", "no", "off", "0", "n", "f", "":
			return false, nil
		}

		return nil, errors.Errorf("%q is not a bool", s)

	case TypeDate, TypeTime, TypeDatetime:
		for _, layout := range layouts[t] {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}

		return nil, errors.Errorf("%q is not a %s", s, t)

	case TypeUUID:
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, errors.Wrapf(err, "%q is not a uuid", s)
		}

		return id, nil

	case TypeDict:
		if s == "" {
			return map[string]any{}, nil
		}

		var m map[string]any
		if err := yaml.Unmarshal([]byte(s), &m); err != nil {
			return nil, errors.Wrapf(err, "%q is not a dict", s)
		}

		if m == nil {
			m = map[string]any{}
		}

		return m, nil
	}

	// str and any keep the text
	return s, nil
}

func coerceAny(t BaseType, v any) (any, error) {
	if s, ok := v.(string); ok {
		return coerceScalar(t, s)
	}

	switch t {
	case TypeAny:
		return v, nil

	case TypeStr:
		return formatScalar(t, v), nil

	case TypeInt:
		switch x := v.(type) {
		case bool:
			if x {
				return int64(1), nil
			}

			return int64(0), nil
		case float32, float64:
			f := reflect.ValueOf(x).Float()
			if f != math.Trunc(f) {
				return nil, errors.Errorf("%v is not an int", v)
			}

			return int64(f), nil
		}

		rv := reflect.ValueOf(v)
		switch {
		case rv.CanInt():
			return rv.Int(), nil
		case rv.CanUint():
			return int64(rv.Uint()), nil
		}

	case TypeFloat:
		rv := reflect.ValueOf(v)
		switch {
		case rv.CanFloat():
			return rv.Float(), nil
		case rv.CanInt():
			return float64(rv.Int()), nil
		case rv.CanUint():
			return float64(rv.Uint()), nil
		}

	case TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}

		return !common.IsFalsy(v), nil

	case TypeDate, TypeTime, TypeDatetime:
		if ts, ok := v.(time.Time); ok {
			return ts, nil
		}

	case TypeUUID:
		switch x := v.(type) {
		case uuid.UUID:
			return x, nil
		case [16]byte:
			return uuid.UUID(x), nil
		}

	case TypeDict:
		switch x := v.(type) {
		case map[string]any:
			return x, nil
		case map[any]any:
			m := make(map[string]any, len(x))
			for k, val := range x {
				m[fmt.Sprint(k)] = val
			}

			return m, nil
		}
	}

	return nil, errors.Errorf("%v (%T) is not a %s", v, v, t)
}
