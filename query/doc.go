// Package query provides a deferred, composable query abstraction.
//
// A Query[T] describes how to produce a sequence of T. Building a query never
// reads data: sources, transformations and joins only assemble a description,
// and the work happens when the query is realized with All, Collect or Count.
// Realizing the same query twice reads its sources twice.
//
// PRIMITIVES:
//
// The package exposes the four primitives that join shapes are composed from:
//
//	GroupJoin(outer, inner, outerKey, innerKey, selector)
//	    pairs every outer element with the (possibly empty) sequence of
//	    inner elements whose key is equal
//	SelectMany(source, collection, result)
//	    expands each element into zero or more results (flat map)
//	Union(first, second) / UnionBy(first, second, key)
//	    distinct elements of both queries, first occurrence wins
//	DefaultIfEmpty(seq)
//	    a sequence holding a single zero value when seq is empty
//
// Package join builds LEFT, RIGHT, FULL and CROSS joins plus apply operators
// out of these primitives and nothing else.
//
// EXECUTION:
//
// Sources are plugged in with FromSlice, FromSeq or FromFunc. FromFunc is the
// provider hook: a database table, a file, or any other backing store yields
// its rows there and reports failures as errors. Errors and context
// cancellation surface unchanged from All and Collect; no operator in this
// package wraps, retries or suppresses them.
//
// Ordering follows the sources. GroupJoin keeps outer order and, inside a
// group, inner order. Nothing in this package sorts.
//
// PLANS:
//
// Every query carries a Plan, a sealed tree of operator nodes mirroring how
// it was composed. Explain renders the tree:
//
//	SelectMany
//	  GroupJoin
//	    Source(users)
//	    Source(orders)
//
// Plans are descriptive only. They do not drive execution.
package query
