// Package proxy binds instances to capability-providing delegates.
//
// The embedding application fills a Map with constructors. Binding a name
// constructs the delegate from the instance's fields and resolves every
// name the delegate exports against its methods and exported fields, ignoring
// case and separators (export "row_count" finds RowCount):
//
//   - methods and func-typed fields become live forwarding Funcs
//   - other fields are copied once, at bind time
//
// The resulting Capability is held by the instance; the delegate keeps its
// own state and synchronization.
package proxy
