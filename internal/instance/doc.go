// Package instance constructs validated values of built record types.
//
// Construction runs the normalizer, coerces and checks every field against
// its spec, recursing into nested records and sequences, then stamps the
// system fields:
//
//	ns          <model>[/<caller ns>]
//	nsid        lower-cased ns
//	uid         caller identity
//	uuid        kept when supplied, generated otherwise
//	created_*   kept when supplied, now and identity otherwise
//	updated_*   now and identity
//
// A type declaring a proxy field is bound to the named delegate once the
// values are final.
package instance
