// Package schema builds record types out of specification trees.
//
// A specification tree is a YAML mapping with a mandatory kind and any number
// of fields, each a spec string, a nested mapping or a sequence:
//
//	kind: DS#open
//	uri: str#req
//	cols: str#list
//	meta:
//	  kind: Meta#req
//	  owner: str
//	joins:
//	  - kind: Join
//	    on: str#req
//	source: xref=Src#req
//
// # Key capabilities
//
//   - Ordered decoding from yaml.Node, or from a plain map (kind first, rest sorted)
//   - System fields (ns, nsid, uid, uuid, audit stamps, args, kws) on top-level types
//   - Nested mappings become record fields, sequences of mappings record sequences
//   - Cross references copy the spec strings of an already built type
//   - A cache keyed by kind: rebuilding the same tree returns the same *RecordType
//   - Human titles and var names for every field
//
// The kind value takes '#' modifiers: req marks the nested object as
// required in its parent, open makes the type keep unknown keys.
//
// Only allow-listed callers may build types; see Caller.
package schema
