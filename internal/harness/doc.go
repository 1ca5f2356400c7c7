// Package harness runs join scenarios against the query backends.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: left_join_keeps_unmatched
//	description: "Users without orders appear once with null order columns"
//	data: ../data/shop.yaml       # or inline tables:
//	request:
//	  from: users as u
//	  joins:
//	    - kind: left
//	      table: orders
//	      as: o
//	      on: ["u.id = o.user_id"]
//	engines: [memory, sqlite]     # default: both
//	expect:
//	  row_count: 4
//	  rows:                       # exact multiset, omitted columns are null
//	    - {u.name: Bob}
//	  contains:                   # each entry matches some row on its columns
//	    - {u.name: Ada, o.item: book}
//	  engines_agree: true
//	  error: UNSUPPORTED          # expected error code, per engine
//
// Data paths are resolved relative to the scenario file. Every engine runs
// against a fresh copy of the data: the memory engine reads the dataset
// directly and the sqlite engine reads it from an in-memory store.
//
// # Golden Files
//
// RunWithGolden compares the first engine's rows, in result order, against
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
