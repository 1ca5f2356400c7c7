package join

import (
	"iter"

	"github.com/roach88/joinq/query"
)

// Pair is one output row of a simple join: a left element and a right
// element, either of which may be the zero value when that side had no match.
//
// Pair is comparable whenever L and R are, which is what FullJoin relies on
// to collapse rows matched from both sides.
type Pair[L, R any] struct {
	Left  L
	Right R
}

// LeftJoinFunc joins left to right on equal keys, keeping every left element.
//
// joinSelector builds one intermediate value per left element from the
// element and its matching right elements. expand extracts the sequence to
// flatten from that value; it is expected to apply query.DefaultIfEmpty so
// unmatched left elements still produce one row. result projects each
// (intermediate, right element) pair.
func LeftJoinFunc[L, R any, K comparable, J, T any](
	left query.Query[L],
	right query.Query[R],
	leftKey func(L) K,
	rightKey func(R) K,
	joinSelector func(L, iter.Seq[R]) J,
	expand func(J) iter.Seq[R],
	result func(J, R) T,
) query.Query[T] {
	return query.SelectMany(query.GroupJoin(left, right, leftKey, rightKey, joinSelector), expand, result)
}

// LeftJoin returns one Pair per (left, matching right) combination, and one
// Pair with a zero Right for every left element without matches.
func LeftJoin[L, R any, K comparable](
	left query.Query[L],
	right query.Query[R],
	leftKey func(L) K,
	rightKey func(R) K,
) query.Query[Pair[L, R]] {
	return LeftJoinFunc(left, right, leftKey, rightKey,
		func(l L, rs iter.Seq[R]) Pair[L, iter.Seq[R]] {
			return Pair[L, iter.Seq[R]]{Left: l, Right: rs}
		},
		func(g Pair[L, iter.Seq[R]]) iter.Seq[R] {
			return query.DefaultIfEmpty(g.Right)
		},
		func(g Pair[L, iter.Seq[R]], r R) Pair[L, R] {
			return Pair[L, R]{Left: g.Left, Right: r}
		})
}

// RightJoinFunc is LeftJoinFunc with the sides swapped: right drives the
// grouping and every right element is kept. The selectors receive the right
// element first and the sequence of matching left elements.
func RightJoinFunc[L, R any, K comparable, J, T any](
	left query.Query[L],
	right query.Query[R],
	leftKey func(L) K,
	rightKey func(R) K,
	joinSelector func(R, iter.Seq[L]) J,
	expand func(J) iter.Seq[L],
	result func(J, L) T,
) query.Query[T] {
	return query.SelectMany(query.GroupJoin(right, left, rightKey, leftKey, joinSelector), expand, result)
}

// RightJoin returns one Pair per (matching left, right) combination, and one
// Pair with a zero Left for every right element without matches. Pairs keep
// the caller's orientation: Left holds the left element.
func RightJoin[L, R any, K comparable](
	left query.Query[L],
	right query.Query[R],
	leftKey func(L) K,
	rightKey func(R) K,
) query.Query[Pair[L, R]] {
	return RightJoinFunc(left, right, leftKey, rightKey,
		func(r R, ls iter.Seq[L]) Pair[iter.Seq[L], R] {
			return Pair[iter.Seq[L], R]{Left: ls, Right: r}
		},
		func(g Pair[iter.Seq[L], R]) iter.Seq[L] {
			return query.DefaultIfEmpty(g.Left)
		},
		func(g Pair[iter.Seq[L], R], l L) Pair[L, R] {
			return Pair[L, R]{Left: l, Right: g.Right}
		})
}

// FullJoinFunc is the distinct union of LeftJoinFunc and RightJoinFunc built
// from the given selectors. Both halves must project to the same result type;
// a row matched from both sides is produced once because its two projections
// are equal. Identical rows are collapsed in general, as with SQL UNION.
func FullJoinFunc[L, R any, K comparable, LJ, RJ any, T comparable](
	left query.Query[L],
	right query.Query[R],
	leftKey func(L) K,
	rightKey func(R) K,
	leftJoinSelector func(L, iter.Seq[R]) LJ,
	rightExpand func(LJ) iter.Seq[R],
	leftResult func(LJ, R) T,
	rightJoinSelector func(R, iter.Seq[L]) RJ,
	leftExpand func(RJ) iter.Seq[L],
	rightResult func(RJ, L) T,
) query.Query[T] {
	return query.Union(
		LeftJoinFunc(left, right, leftKey, rightKey, leftJoinSelector, rightExpand, leftResult),
		RightJoinFunc(left, right, leftKey, rightKey, rightJoinSelector, leftExpand, rightResult),
	)
}

// FullJoinBy is FullJoinFunc for result types that are not comparable, such
// as rows holding maps or slices. identity maps a result to the value the
// union deduplicates on; rows with equal identities are the same row.
func FullJoinBy[L, R any, K comparable, LJ, RJ, T any, I comparable](
	left query.Query[L],
	right query.Query[R],
	leftKey func(L) K,
	rightKey func(R) K,
	leftJoinSelector func(L, iter.Seq[R]) LJ,
	rightExpand func(LJ) iter.Seq[R],
	leftResult func(LJ, R) T,
	rightJoinSelector func(R, iter.Seq[L]) RJ,
	leftExpand func(RJ) iter.Seq[L],
	rightResult func(RJ, L) T,
	identity func(T) I,
) query.Query[T] {
	return query.UnionBy(
		LeftJoinFunc(left, right, leftKey, rightKey, leftJoinSelector, rightExpand, leftResult),
		RightJoinFunc(left, right, leftKey, rightKey, rightJoinSelector, leftExpand, rightResult),
		identity,
	)
}

// FullJoin keeps every element of both sides: matched pairs once, unmatched
// left elements with a zero Right, unmatched right elements with a zero Left.
func FullJoin[L, R comparable, K comparable](
	left query.Query[L],
	right query.Query[R],
	leftKey func(L) K,
	rightKey func(R) K,
) query.Query[Pair[L, R]] {
	return FullJoinFunc(left, right, leftKey, rightKey,
		func(l L, rs iter.Seq[R]) Pair[L, iter.Seq[R]] {
			return Pair[L, iter.Seq[R]]{Left: l, Right: rs}
		},
		func(g Pair[L, iter.Seq[R]]) iter.Seq[R] {
			return query.DefaultIfEmpty(g.Right)
		},
		func(g Pair[L, iter.Seq[R]], r R) Pair[L, R] {
			return Pair[L, R]{Left: g.Left, Right: r}
		},
		func(r R, ls iter.Seq[L]) Pair[iter.Seq[L], R] {
			return Pair[iter.Seq[L], R]{Left: ls, Right: r}
		},
		func(g Pair[iter.Seq[L], R]) iter.Seq[L] {
			return query.DefaultIfEmpty(g.Left)
		},
		func(g Pair[iter.Seq[L], R], l L) Pair[L, R] {
			return Pair[L, R]{Left: l, Right: g.Right}
		})
}

// CrossJoinFunc produces result(l, r) for every left element and every right
// element. Keys play no part.
//
// Every left element is grouped with the whole right side under a constant
// key, so the right side is read once per execution and expanded, without
// defaulting, under each left element. An empty side yields no rows.
func CrossJoinFunc[L, R, T any](
	left query.Query[L],
	right query.Query[R],
	result func(L, R) T,
) query.Query[T] {
	grouped := query.GroupJoin(left, right,
		func(L) struct{} { return struct{}{} },
		func(R) struct{} { return struct{}{} },
		func(l L, rs iter.Seq[R]) Pair[L, iter.Seq[R]] {
			return Pair[L, iter.Seq[R]]{Left: l, Right: rs}
		})
	return query.SelectMany(grouped,
		func(g Pair[L, iter.Seq[R]]) iter.Seq[R] { return g.Right },
		func(g Pair[L, iter.Seq[R]], r R) T { return result(g.Left, r) })
}

// CrossJoin is the Cartesian product of left and right as Pairs.
func CrossJoin[L, R any](left query.Query[L], right query.Query[R]) query.Query[Pair[L, R]] {
	return CrossJoinFunc(left, right, func(l L, r R) Pair[L, R] {
		return Pair[L, R]{Left: l, Right: r}
	})
}

// CrossApply expands every left element into the sequence expand returns,
// which may depend on the element, and projects each (left, right) pair.
// Left elements whose sequence is empty produce no rows.
func CrossApply[L, R, T any](
	left query.Query[L],
	expand func(L) iter.Seq[R],
	result func(L, R) T,
) query.Query[T] {
	return query.SelectMany(left, expand, result)
}

// OuterApply has the mechanics of CrossApply. The caller's expand is
// expected to apply query.DefaultIfEmpty itself, so that left elements
// without a match still produce one row with a zero right element; this is
// not checked.
func OuterApply[L, R, T any](
	left query.Query[L],
	expandAndDefault func(L) iter.Seq[R],
	result func(L, R) T,
) query.Query[T] {
	return CrossApply(left, expandAndDefault, result)
}
