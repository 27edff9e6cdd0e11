// Package match provides identifier tokenizing, human-readable titles for
// field names, and edit-distance suggestions for registry lookups.
//
// Key functions:
//   - Title: "created_ts" -> "Created Ts", "nsid" -> "NSID"
//   - VarName: "Created TS" -> "created_ts"
//   - NormalizeIdent: case/separator-insensitive comparison key
//   - Suggest: closest candidates for a missed lookup key
package match
