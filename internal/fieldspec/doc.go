// Package fieldspec parses the field-specification mini-language.
//
// A specification is a '#'-delimited token string:
//
//	[type][=default](#flag|#op=value)*
//
// for example
//
//	int=42#req#uniq#key#gt=45#lt=50
//	str#list#in=red,green,blue
//	dt#sys
//	xref=DS#req#list
//
// # Tokens
//
// Tokens are matched independently and order-insensitively.
//
//   - Base types: int, float, bool, str (string), date, time, dt (datetime),
//     uuid, dict, any. The default is str. A "type=value" token also sets the default.
//   - Flags: req (required), uniq (unique), key, ro (readonly), hide (hidden),
//     secret, fuzzy, multi, list, sys. Unrecognized bare tokens are kept as flags verbatim.
//   - Comparisons: le, ge, gt, lt, max, min, ne, eq. Bounds are coerced to the base type.
//   - String operators: has, start, end. Values are regular expressions.
//   - Membership: in, enum, range. Comma-separated, coerced; range takes exactly two values.
//   - UX hints: color, heatmap, xref, href. Kept as strings.
//   - Display hints: rank, lines. Integers.
//
// Unknown key=value tokens are ignored and listed in FieldSpec.Ignored; the DSL
// is lenient so that specification files can carry hints for other consumers.
//
// The list flag turns the effective type into a sequence of the base type; a
// scalar default is then split on commas and each element coerced.
package fieldspec
