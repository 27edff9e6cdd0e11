package export

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"xds/internal/common"
	"xds/internal/diagnostic"
	"xds/internal/fieldspec"
	"xds/internal/schema"
)

// Draft is the JSON Schema dialect of exported documents.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// ID returns the $id of kind's schema.
func ID(kind string) string {
	return "mem://xds/models/" + strings.ToLower(kind) + ".json"
}

type typeInfo struct {
	jsonType string
	format   string
}

var baseTypes = map[fieldspec.BaseType]typeInfo{
	fieldspec.TypeInt:      {jsonType: "integer"},
	fieldspec.TypeFloat:    {jsonType: "number"},
	fieldspec.TypeBool:     {jsonType: "boolean"},
	fieldspec.TypeStr:      {jsonType: "string"},
	fieldspec.TypeDate:     {jsonType: "string", format: "date"},
	fieldspec.TypeTime:     {jsonType: "string", format: "time"},
	fieldspec.TypeDatetime: {jsonType: "string", format: "date-time"},
	fieldspec.TypeUUID:     {jsonType: "string", format: "uuid"},
	fieldspec.TypeDict:     {jsonType: "object"},
}

// Schema returns the JSON Schema document of rt. Optional fields accept
// null; strict records reject additional properties.
func Schema(rt *schema.RecordType) map[string]any {
	doc := record(rt)
	doc["$schema"] = Draft
	doc["$id"] = ID(rt.Kind)

	return doc
}

// JSON renders Schema(rt) indented.
func JSON(rt *schema.RecordType) ([]byte, error) {
	return json.MarshalIndent(Schema(rt), "", "  ")
}

func record(rt *schema.RecordType) map[string]any {
	props := make(map[string]any, rt.Len())
	required := []string{}

	for _, f := range rt.Fields() {
		props[f.Name] = field(f)

		if f.Required {
			required = append(required, f.Name)
		}
	}

	return map[string]any{
		"title":                rt.Kind,
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": !rt.Strict,
	}
}

func field(f *schema.FieldDefinition) map[string]any {
	var s map[string]any

	switch f.Value {
	case schema.ValueRecord:
		s = record(f.Record)
	case schema.ValueSequence:
		s = map[string]any{"type": "array", "items": record(f.Record)}
	default:
		s = scalar(f.Spec)
	}

	if f.Meta.Title != "" {
		s["description"] = f.Meta.Title
	}

	if f.HasDefault {
		s["default"] = jsonValue(f.Default)
	}

	if !f.Required {
		if t, ok := s["type"].(string); ok {
			s["type"] = []any{t, "null"}
		}

		if c, ok := s["const"]; ok {
			delete(s, "const")
			s["enum"] = []any{c}
		}

		if enum, ok := s["enum"].([]any); ok {
			s["enum"] = append(enum, nil)
		}
	}

	return s
}

func scalar(fs *fieldspec.FieldSpec) map[string]any {
	item := map[string]any{}

	info, typed := baseTypes[fs.Type]
	if typed {
		item["type"] = info.jsonType
	}

	if info.format != "" {
		item["format"] = info.format
	}

	constrain(fs, item, info)

	if !fs.List() {
		return item
	}

	list := map[string]any{"type": "array", "items": item}

	if p, ok := fs.StringOps["has"]; ok {
		list["contains"] = map[string]any{"const": p}
	}

	return list
}

// constrain maps the operators JSON Schema can express. Temporal bounds and
// list string ops stay with the runtime check.
func constrain(fs *fieldspec.FieldSpec, s map[string]any, info typeInfo) {
	numeric := fs.Type.IsNumber()
	exact := numeric || (info.jsonType == "string" && info.format == "") || info.jsonType == "boolean"

	if numeric {
		for op, key := range map[string]string{
			"gt": "exclusiveMinimum", "ge": "minimum", "min": "minimum",
			"lt": "exclusiveMaximum", "le": "maximum", "max": "maximum",
		} {
			if v, ok := fs.Comparisons[op]; ok {
				s[key] = v
			}
		}

		if r, ok := fs.Membership["range"]; ok {
			lo, hi := common.Unpack2(r)
			s["minimum"], s["maximum"] = lo, hi
		}
	}

	if exact {
		if v, ok := fs.Comparisons["eq"]; ok {
			s["const"] = v
		}

		if v, ok := fs.Comparisons["ne"]; ok {
			s["not"] = map[string]any{"const": v}
		}

		var enum []any
		for _, op := range []string{"in", "enum"} {
			enum = append(enum, fs.Membership[op]...)
		}

		if len(enum) > 0 {
			s["enum"] = slices.Clone(enum)
		}
	}

	if info.jsonType == "string" && info.format == "" && !fs.List() {
		var patterns []any

		for _, op := range common.SortedKeys(fs.StringOps) {
			p := fs.StringOps[op]

			switch op {
			case "start":
				p = "^(?:" + p + ")"
			case "end":
				p = "(?:" + p + ")$"
			}

			patterns = append(patterns, map[string]any{"pattern": p})
		}

		switch {
		case len(patterns) == 1:
			s["pattern"] = patterns[0].(map[string]any)["pattern"]
		case len(patterns) > 1:
			s["allOf"] = patterns
		}
	}
}

// jsonValue converts coerced values to their JSON form.
func jsonValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format(time.RFC3339)
	case uuid.UUID:
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = jsonValue(item)
		}

		return out
	}

	return v
}

// Validator checks values against a compiled record schema.
type Validator struct {
	rt     *schema.RecordType
	schema *jsonschema.Schema
}

// Compile compiles the schema of rt.
func Compile(rt *schema.RecordType) (*Validator, error) {
	data, err := json.Marshal(Schema(rt))
	if err != nil {
		return nil, errors.Wrapf(err, "marshal schema of %s", rt.Kind)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	id := ID(rt.Kind)
	if err := c.AddResource(id, bytes.NewReader(data)); err != nil {
		return nil, errors.Wrapf(err, "add schema of %s", rt.Kind)
	}

	sch, err := c.Compile(id)
	if err != nil {
		return nil, errors.Wrapf(err, "compile schema of %s", rt.Kind)
	}

	return &Validator{rt: rt, schema: sch}, nil
}

// Validate checks values, typically Instance.Values or decoded JSON. A
// failure is a ValidationError naming the deepest failing location.
func (v *Validator) Validate(values map[string]any) error {
	data, err := json.Marshal(values)
	if err != nil {
		return errors.Wrap(err, "marshal values")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return errors.Wrap(err, "decode values")
	}

	err = v.schema.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}

	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	return &diagnostic.Error{
		Code:  diagnostic.CodeValidation,
		Kind:  v.rt.Kind,
		Field: pointerPath(leaf.InstanceLocation),
		Msg:   leaf.Message,
	}
}

// pointerPath turns a JSON pointer into a dotted path.
func pointerPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	parts := strings.Split(ptr, "/")
	for i, p := range parts {
		parts[i] = strings.NewReplacer("~1", "/", "~0", "~").Replace(p)
	}

	return strings.Join(parts, ".")
}
