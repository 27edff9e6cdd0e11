package fieldspec

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"xds/internal/common"
	"xds/internal/diagnostic"
)

var comparisonOps = map[string]struct {
	symbol string
	ok     func(c int) bool
}{
	"gt":  {">", func(c int) bool { return c > 0 }},
	"ge":  {">=", func(c int) bool { return c >= 0 }},
	"min": {">=", func(c int) bool { return c >= 0 }},
	"lt":  {"<", func(c int) bool { return c < 0 }},
	"le":  {"<=", func(c int) bool { return c <= 0 }},
	"max": {"<=", func(c int) bool { return c <= 0 }},
	"eq":  {"==", func(c int) bool { return c == 0 }},
	"ne":  {"!=", func(c int) bool { return c != 0 }},
}

// Check validates an already coerced value against the spec's constraints.
// A nil value passes; presence is enforced by the caller. Comparison and
// membership constraints apply to every element of a list value.
func (fs *FieldSpec) Check(field string, v any) error {
	if v == nil {
		return nil
	}

	items, isList := v.([]any)
	if !isList {
		items = []any{v}
	}

	for _, op := range common.SortedKeys(fs.Comparisons) {
		want := fs.Comparisons[op]
		rule := comparisonOps[op]

		for _, item := range items {
			c, ok := compare(item, want)
			if !ok {
				return violation(field, "cannot compare %v with %v", item, want)
			}

			if !rule.ok(c) {
				return violation(field, "%v violates %s %v", item, rule.symbol, formatScalar(fs.Type, want))
			}
		}
	}

	for _, op := range common.SortedKeys(fs.StringOps) {
		if err := fs.checkStringOp(field, op, v, items, isList); err != nil {
			return err
		}
	}

	for _, op := range common.SortedKeys(fs.Membership) {
		set := fs.Membership[op]

		for _, item := range items {
			if op == "range" {
				lo, hi := common.Unpack2(set)
				cl, okl := compare(item, lo)
				ch, okh := compare(item, hi)

				if !okl || !okh || cl < 0 || ch > 0 {
					return violation(field, "%v outside range [%v, %v]", item,
						formatScalar(fs.Type, lo), formatScalar(fs.Type, hi))
				}

				continue
			}

			if !slices.ContainsFunc(set, func(m any) bool { return equal(item, m) }) {
				return violation(field, "%v not in %s", item, formatList(fs.Type, set))
			}
		}
	}

	return nil
}

func (fs *FieldSpec) checkStringOp(field, op string, v any, items []any, isList bool) error {
	pattern := fs.StringOps[op]

	if !isList {
		s := formatScalar(fs.Type, v)
		if !fs.patterns[op].MatchString(s) {
			return violation(field, "%q does not match %s=%s", s, op, pattern)
		}

		return nil
	}

	var ok bool

	switch op {
	case "has":
		ok = slices.ContainsFunc(items, func(item any) bool {
			return formatScalar(fs.Type, item) == pattern
		})
	case "start":
		first, found := common.First(items)
		ok = found && formatScalar(fs.Type, first) == pattern
	case "end":
		last, found := common.Last(items)
		ok = found && formatScalar(fs.Type, last) == pattern
	}

	if !ok {
		return violation(field, "list fails %s=%s", op, pattern)
	}

	return nil
}

func violation(field, format string, args ...any) *diagnostic.Error {
	return diagnostic.Errorf(diagnostic.CodeValidation, "", field, format, args...)
}

func compare(a, b any) (int, bool) {
	if c, ok := compareScalar(a, b); ok {
		return c, true
	}

	if equal(a, b) {
		return 0, true
	}

	return 0, false
}

func equal(a, b any) bool {
	if c, ok := compareScalar(a, b); ok {
		return c == 0
	}

	return reflect.DeepEqual(a, b) || fmt.Sprint(a) == fmt.Sprint(b)
}

func compareScalar(a, b any) (int, bool) {
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, y), true
		case float64:
			return cmp.Compare(float64(x), y), true
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmp.Compare(x, y), true
		case int64:
			return cmp.Compare(x, float64(y)), true
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, true
			case y:
				return -1, true
			default:
				return 1, true
			}
		}
	case uuid.UUID:
		if y, ok := b.(uuid.UUID); ok {
			return strings.Compare(x.String(), y.String()), true
		}
	}

	return 0, false
}
