package query

import (
	"context"
	"iter"
	"slices"
)

// GroupJoin correlates two queries by key.
//
// For every element of outer, selector receives the element and the sequence
// of inner elements whose innerKey equals its outerKey. The sequence is empty
// when nothing matches; outer elements are never dropped. Keys need not be
// unique on either side.
//
// The inner query is read in full once per execution and indexed by key
// before the first outer element is read. Results follow outer order, and
// each group follows inner order.
func GroupJoin[O, I any, K comparable, R any](
	outer Query[O],
	inner Query[I],
	outerKey func(O) K,
	innerKey func(I) K,
	selector func(O, iter.Seq[I]) R,
) Query[R] {
	return Query[R]{
		plan: GroupJoinNode{Outer: outer.Plan(), Inner: inner.Plan()},
		run: func(ctx context.Context, yield func(R) bool) error {
			lookup := make(map[K][]I)
			err := inner.iterate(ctx, func(v I) bool {
				k := innerKey(v)
				lookup[k] = append(lookup[k], v)
				return true
			})
			if err != nil {
				return err
			}

			return outer.iterate(ctx, func(o O) bool {
				return yield(selector(o, slices.Values(lookup[outerKey(o)])))
			})
		},
	}
}

// SelectMany expands each element of source into the sequence returned by
// collection and projects every (element, item) pair with result.
// Elements whose sequence is empty contribute nothing.
func SelectMany[S, C, R any](
	source Query[S],
	collection func(S) iter.Seq[C],
	result func(S, C) R,
) Query[R] {
	return Query[R]{
		plan: SelectManyNode{Input: source.Plan()},
		run: func(ctx context.Context, yield func(R) bool) error {
			return source.iterate(ctx, func(s S) bool {
				for c := range collection(s) {
					if !yield(result(s, c)) {
						return false
					}
				}
				return true
			})
		},
	}
}

// DefaultIfEmpty returns seq unchanged when it yields at least one element,
// and a sequence holding exactly one zero value of T otherwise.
func DefaultIfEmpty[T any](seq iter.Seq[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		empty := true
		for v := range seq {
			empty = false
			if !yield(v) {
				return
			}
		}
		if empty {
			var zero T
			yield(zero)
		}
	}
}

// Take returns the first n elements of seq. n <= 0 means no limit.
func Take[T any](seq iter.Seq[T], n int) iter.Seq[T] {
	if n <= 0 {
		return seq
	}
	return func(yield func(T) bool) {
		taken := 0
		for v := range seq {
			if !yield(v) {
				return
			}
			taken++
			if taken >= n {
				return
			}
		}
	}
}

// Union returns the distinct elements of first followed by the distinct
// elements of second not already produced. Equality is Go's == on T.
func Union[T comparable](first, second Query[T]) Query[T] {
	return UnionBy(first, second, func(v T) T { return v })
}

// UnionBy is Union for element types without a usable ==. Two elements are
// the same when key returns equal values; the first one seen is kept.
func UnionBy[T any, K comparable](first, second Query[T], key func(T) K) Query[T] {
	return Query[T]{
		plan: UnionNode{First: first.Plan(), Second: second.Plan()},
		run: func(ctx context.Context, yield func(T) bool) error {
			seen := make(map[K]struct{})
			stopped := false
			emit := func(v T) bool {
				k := key(v)
				if _, dup := seen[k]; dup {
					return true
				}
				seen[k] = struct{}{}
				if !yield(v) {
					stopped = true
					return false
				}
				return true
			}
			if err := first.iterate(ctx, emit); err != nil || stopped {
				return err
			}
			return second.iterate(ctx, emit)
		},
	}
}

// Where keeps the elements for which keep returns true.
func Where[T any](source Query[T], keep func(T) bool) Query[T] {
	return Query[T]{
		plan: WhereNode{Input: source.Plan()},
		run: func(ctx context.Context, yield func(T) bool) error {
			return source.iterate(ctx, func(v T) bool {
				if !keep(v) {
					return true
				}
				return yield(v)
			})
		},
	}
}

// Select projects every element with fn.
func Select[S, R any](source Query[S], fn func(S) R) Query[R] {
	return Query[R]{
		plan: SelectNode{Input: source.Plan()},
		run: func(ctx context.Context, yield func(R) bool) error {
			return source.iterate(ctx, func(s S) bool {
				return yield(fn(s))
			})
		},
	}
}
