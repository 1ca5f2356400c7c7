// Package engine executes join requests.
//
// Two backends implement Backend:
//
//   - Engine runs a request in memory over any Catalog (a dataset file or a
//     SQLite store). Every request node becomes a composition of the
//     combinators in package join, so the in-memory backend is the reference
//     semantics.
//   - SQLite compiles a request with package querysql and streams the rows
//     from a store.
//
// Both return a Result whose Rows are deferred: Execute resolves tables and
// columns, so unknown names fail early, but no row is read until the caller
// iterates.
//
// ROWS:
//
// Result rows map qualified column names ("u.id") to values. A side absent
// from an outer join row holds ir.IRNull for each of its columns.
//
// KEYS:
//
// Join keys compare by canonical value (ir.Key): types matter (1 is not
// "1") and two nulls are equal. The SQLite backend compiles the same
// equality; booleans and integers share a storage class there, so
// comparing a boolean key with an integer key is the one case where the
// backends disagree.
package engine
