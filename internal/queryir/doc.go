// Package queryir describes join requests over named tables.
//
// A request is a left-deep tree: the first table is a Scan and every
// further step wraps the tree built so far in a Join or an Apply whose right
// side is a new Scan. Backends (the in-memory engine and the SQLite compiler)
// switch over the node types to execute or translate a request.
//
// SEALED INTERFACES:
//
// Query is a sealed interface using the marker method pattern. Only types in
// this package implement it, so backends can switch exhaustively:
//
//	switch node := q.(type) {
//	case Scan:
//	    // read a table
//	case Join:
//	    // left, right, full or cross
//	case Apply:
//	    // correlated cross or outer apply
//	}
//
// COLUMN REFERENCES:
//
// Every column in a request is qualified by the alias of the table it comes
// from ("u.id"). Join conditions are conjunctions of equalities between a
// column of the left subtree and a column of the right side. Two nulls are
// equal keys in every backend.
//
// Requests reach this package either as YAML (Request with Steps) or as CLI
// strings parsed by ParseStep:
//
//	left orders as o on u.id = o.user_id
//	outer_apply orders as o on u.id = o.user_id limit 2
package queryir
