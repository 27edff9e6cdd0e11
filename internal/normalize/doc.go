// Package normalize reconciles loosely shaped input with a record type
// before construction.
//
// Input may address a field three ways, all equivalent:
//
//	{"ds.ns": "xbow"}
//	{"ds": {"ns": "xbow"}}
//	{"kws": {"ds.ns": "xbow"}}
//
// The kws (or kwargs) bag is folded under the reserved "kw" prefix, the whole
// input is flattened with the "__" delimiter, doubled bag prefixes are
// collapsed and the result is nested again. Declared fields are picked out and
// defaulted; whatever is left lands in the kws bag under its dotted path.
package normalize
