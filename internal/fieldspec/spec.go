package fieldspec

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"xds/internal/common"
	"xds/internal/diagnostic"
)

// Canonical flag names.
const (
	FlagRequired = "required"
	FlagUnique   = "unique"
	FlagKey      = "key"
	FlagReadonly = "readonly"
	FlagHidden   = "hidden"
	FlagSecret   = "secret"
	FlagFuzzy    = "fuzzy"
	FlagMulti    = "multi"
	FlagList     = "list"
	FlagSystem   = "sys"
)

var flagAliases = map[string]string{
	"req":      FlagRequired,
	"required": FlagRequired,
	"uniq":     FlagUnique,
	"unique":   FlagUnique,
	"key":      FlagKey,
	"ro":       FlagReadonly,
	"readonly": FlagReadonly,
	"hide":     FlagHidden,
	"hidden":   FlagHidden,
	"secret":   FlagSecret,
	"fuzzy":    FlagFuzzy,
	"multi":    FlagMulti,
	"list":     FlagList,
	"sys":      FlagSystem,
}

type family int

const (
	familyNone family = iota
	familyComparison
	familyStringOp
	familyMembership
	familyUX
	familyDisplay
)

var operators = map[string]family{
	"le":      familyComparison,
	"ge":      familyComparison,
	"gt":      familyComparison,
	"lt":      familyComparison,
	"max":     familyComparison,
	"min":     familyComparison,
	"ne":      familyComparison,
	"eq":      familyComparison,
	"has":     familyStringOp,
	"start":   familyStringOp,
	"end":     familyStringOp,
	"in":      familyMembership,
	"enum":    familyMembership,
	"range":   familyMembership,
	"color":   familyUX,
	"heatmap": familyUX,
	"xref":    familyUX,
	"href":    familyUX,
	"rank":    familyDisplay,
	"lines":   familyDisplay,
}

// FieldSpec is the parsed form of one specification string.
type FieldSpec struct {
	// Raw is the specification text as written.
	Raw string
	// Type is the base type; the effective type is a sequence of it when List() is set.
	Type BaseType
	// Default is the coerced default ([]any for list fields). Only meaningful with HasDefault.
	Default    any
	HasDefault bool

	Flags       map[string]bool
	Comparisons map[string]any
	StringOps   map[string]string
	Membership  map[string][]any
	UX          map[string]string
	Display     map[string]int

	// Ignored lists key=value tokens outside the vocabulary.
	Ignored []string

	patterns map[string]*regexp.Regexp
}

type token struct {
	key, val, raw string
}

// Parse parses a specification string.
func Parse(raw string) (*FieldSpec, error) {
	return ParseField("", raw)
}

// ParseField parses a specification string for the named field; the name is
// carried in errors.
func ParseField(field, raw string) (*FieldSpec, error) {
	fs := &FieldSpec{
		Raw:   raw,
		Type:  TypeStr,
		Flags: map[string]bool{},
	}

	var (
		first      = true
		rawDefault string
		pending    []token
	)

	for seg := range strings.SplitSeq(raw, "#") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}

		key, val, hasVal := strings.Cut(seg, "=")
		key = strings.TrimSpace(key)
		lkey := strings.ToLower(key)

		// only the leading token names the base type; later type names are plain flags
		if first {
			first = false

			if bt, ok := LookupType(lkey); ok {
				fs.Type = bt

				if hasVal {
					rawDefault = val
					fs.HasDefault = true
				}

				continue
			}
		}

		if !hasVal {
			if canon, ok := flagAliases[lkey]; ok {
				fs.Flags[canon] = true
			} else {
				fs.Flags[key] = true
			}

			continue
		}

		pending = append(pending, token{key: lkey, val: strings.TrimSpace(val), raw: seg})
	}

	// operators are coerced once the base type is known
	for _, t := range pending {
		if err := fs.apply(field, t); err != nil {
			return nil, err
		}
	}

	if fs.HasDefault {
		def, err := fs.Coerce(rawDefault)
		if err != nil {
			return nil, invalidErr(field, fs.Type.String()+"="+rawDefault, err)
		}

		fs.Default = def
	}

	return fs, nil
}

func (fs *FieldSpec) apply(field string, t token) error {
	switch operators[t.key] {
	case familyComparison:
		v, err := coerceScalar(fs.Type, t.val)
		if err != nil {
			return invalidErr(field, t.raw, err)
		}

		if fs.Comparisons == nil {
			fs.Comparisons = map[string]any{}
		}

		fs.Comparisons[t.key] = v

	case familyStringOp:
		re, err := compilePattern(t.key, t.val)
		if err != nil {
			return invalidErr(field, t.raw, err)
		}

		if fs.StringOps == nil {
			fs.StringOps = map[string]string{}
			fs.patterns = map[string]*regexp.Regexp{}
		}

		fs.StringOps[t.key] = t.val
		fs.patterns[t.key] = re

	case familyMembership:
		parts := common.SplitList(t.val)
		if t.key == "range" && len(parts) != 2 {
			return invalid(field, t.raw, "range takes exactly two values, got %d", len(parts))
		}

		vals := make([]any, 0, len(parts))

		for _, p := range parts {
			v, err := coerceScalar(fs.Type, p)
			if err != nil {
				return invalidErr(field, t.raw, err)
			}

			vals = append(vals, v)
		}

		if fs.Membership == nil {
			fs.Membership = map[string][]any{}
		}

		fs.Membership[t.key] = vals

	case familyUX:
		if fs.UX == nil {
			fs.UX = map[string]string{}
		}

		fs.UX[t.key] = t.val

	case familyDisplay:
		n, err := strconv.Atoi(t.val)
		if err != nil {
			return invalidErr(field, t.raw, err)
		}

		if fs.Display == nil {
			fs.Display = map[string]int{}
		}

		fs.Display[t.key] = n

	default:
		fs.Ignored = append(fs.Ignored, t.raw)
	}

	return nil
}

func compilePattern(op, pattern string) (*regexp.Regexp, error) {
	switch op {
	case "start":
		pattern = "^(?:" + pattern + ")"
	case "end":
		pattern = "(?:" + pattern + ")$"
	}

	return regexp.Compile(pattern)
}

func invalid(field, tok, format string, args ...any) *diagnostic.Error {
	e := diagnostic.Errorf(diagnostic.CodeInvalidSpec, "", field, format, args...)
	e.Msg = "token " + strconv.Quote(tok) + ": " + e.Msg

	return e
}

func invalidErr(field, tok string, err error) *diagnostic.Error {
	return &diagnostic.Error{
		Code:  diagnostic.CodeInvalidSpec,
		Field: field,
		Msg:   "token " + strconv.Quote(tok),
		Err:   err,
	}
}

// Has reports whether the named flag is set. Aliases are accepted.
func (fs *FieldSpec) Has(flag string) bool {
	if canon, ok := flagAliases[flag]; ok {
		flag = canon
	}

	return fs.Flags[flag]
}

// Required reports the required flag.
func (fs *FieldSpec) Required() bool { return fs.Flags[FlagRequired] }

// List reports whether the effective type is a sequence of the base type.
func (fs *FieldSpec) List() bool { return fs.Flags[FlagList] }

// XRef returns the referenced type name of an xref spec, or "".
func (fs *FieldSpec) XRef() string { return fs.UX["xref"] }

// DType renders the effective type, e.g. "int" or "list[int]".
func (fs *FieldSpec) DType() string {
	if fs.List() {
		return "list[" + fs.Type.String() + "]"
	}

	return fs.Type.String()
}

// String re-serializes the spec into canonical token order: the type token,
// sorted flags, then sorted operator tokens.
func (fs *FieldSpec) String() string {
	head := fs.Type.String()
	if fs.HasDefault {
		head += "=" + fs.formatDefault()
	}

	tokens := []string{head}
	tokens = append(tokens, common.SortedKeys(fs.Flags)...)

	var ops []string
	for k, v := range fs.Comparisons {
		ops = append(ops, k+"="+formatScalar(fs.Type, v))
	}

	for k, v := range fs.StringOps {
		ops = append(ops, k+"="+v)
	}

	for k, vs := range fs.Membership {
		ops = append(ops, k+"="+formatList(fs.Type, vs))
	}

	for k, v := range fs.UX {
		ops = append(ops, k+"="+v)
	}

	for k, v := range fs.Display {
		ops = append(ops, k+"="+strconv.Itoa(v))
	}

	slices.Sort(ops)

	return strings.Join(append(tokens, ops...), "#")
}

func (fs *FieldSpec) formatDefault() string {
	if vs, ok := fs.Default.([]any); ok && fs.List() {
		return formatList(fs.Type, vs)
	}

	return formatScalar(fs.Type, fs.Default)
}

func formatList(t BaseType, vs []any) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatScalar(t, v)
	}

	return strings.Join(parts, ",")
}

func formatScalar(t BaseType, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		if l, ok := layouts[t]; ok {
			return x.Format(l[0])
		}

		return x.Format(time.RFC3339)
	case map[string]any:
		b, err := json.Marshal(x)
		if err == nil {
			return string(b)
		}
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}

	return fmt.Sprint(v)
}
