// Package export renders record types as JSON Schema (draft 2020-12) and
// validates values against the compiled result.
//
// The mapping covers types, formats, nullability, defaults, numeric bounds,
// enumerations and string patterns. Constraints JSON Schema cannot express
// (temporal bounds, first/last element of lists) are left to the runtime
// check of the instance factory.
package export
