// Package join adds SQL-style join shapes on top of package query.
//
// Every operator here is a rewrite into query primitives and holds no state:
//
//	LeftJoin   = SelectMany(GroupJoin(left, right), DefaultIfEmpty(group))
//	RightJoin  = SelectMany(GroupJoin(right, left), DefaultIfEmpty(group))
//	FullJoin   = Union(LeftJoin, RightJoin)
//	CrossJoin  = SelectMany(GroupJoin(left, right, unit key), group)
//	CrossApply = SelectMany(left, expand)
//	OuterApply = SelectMany(left, expand), expand defaults on empty
//
// Nothing executes when a join is built. The returned query runs when it is
// realized, and how the join is carried out (hash lookup, nested loop) is the
// business of package query, not of this package.
//
// Each join comes in two forms. The general form (suffix Func) takes the
// grouping selector, the expand-and-default function and the result
// selector, mirroring how the primitives are wired. The simple form returns
// Pair values with the left element in Left and the right element in Right,
// whichever side drove the grouping.
//
// Missing sides hold the zero value of their type. Use pointer element types
// when a real element may itself be a zero value:
//
//	rows := join.LeftJoin(users, orders,
//	    func(u *User) int { return u.ID },
//	    func(o *Order) int { return o.UserID })
//	for row, err := range rows.All(ctx) {
//	    if row.Right == nil {
//	        // user without orders
//	    }
//	}
package join
