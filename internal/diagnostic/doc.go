// Package diagnostic provides structured warnings and the typed errors of
// the schema engine.
//
// Key capabilities:
//   - Coded errors (InvalidSpec, KindRequired, Validation, ...) matched with errors.Is
//   - Non-fatal warnings collected while building schemas (unresolved xref, ignored DSL tokens)
//   - "Did you mean" suggestions attached to lookup misses
package diagnostic
