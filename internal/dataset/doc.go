// Package dataset loads named tables from YAML, JSON or CUE files.
//
// All three formats share one shape:
//
//	tables:
//	  users:
//	    columns: [id, name]
//	    rows:
//	      - {id: 1, name: Ada}
//	      - {id: 2}            # name is null
//
// columns fixes the column order; when omitted it is the sorted union of the
// row keys. Values follow the ir value model: integers, strings, booleans,
// null, lists and objects. Floats are rejected, except that integral values
// (3.0) are read as integers.
//
// A Dataset serves as an engine catalog and can be copied into a SQLite
// store with ImportInto.
package dataset
