package query

import (
	"context"
	"iter"
)

// Query is a deferred description of a sequence of T.
//
// The zero Query is valid and empty. Queries are immutable values: every
// operator returns a new Query and leaves its inputs untouched, so one query
// can feed several others.
type Query[T any] struct {
	plan Plan
	run  func(ctx context.Context, yield func(T) bool) error
}

// Plan returns the operator tree this query was composed from.
func (q Query[T]) Plan() Plan {
	if q.plan == nil {
		return SourceNode{Name: "empty"}
	}
	return q.plan
}

// WithName relabels a source query in plans and Explain output.
// Composite queries are returned unchanged.
func (q Query[T]) WithName(name string) Query[T] {
	if _, ok := q.Plan().(SourceNode); !ok {
		return q
	}
	q.plan = SourceNode{Name: name}
	return q
}

// iterate runs the query, calling yield for every element until yield
// returns false or the sequence ends.
func (q Query[T]) iterate(ctx context.Context, yield func(T) bool) error {
	if q.run == nil {
		return nil
	}
	return q.run(ctx, yield)
}

// All realizes the query as an iterator of (element, error) pairs.
//
// A failing execution yields one final pair carrying the zero element and
// the error. Breaking out of the loop stops the underlying sources.
//
// Example:
//
//	for row, err := range q.All(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    use(row)
//	}
func (q Query[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		stopped := false
		err := q.iterate(ctx, func(v T) bool {
			if !yield(v, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			var zero T
			yield(zero, err)
		}
	}
}

// Collect realizes the query into a slice.
// Returns an empty slice (not nil) when the query produces nothing.
func (q Query[T]) Collect(ctx context.Context) ([]T, error) {
	items := []T{}
	err := q.iterate(ctx, func(v T) bool {
		items = append(items, v)
		return true
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Count realizes the query and returns the number of elements.
func (q Query[T]) Count(ctx context.Context) (int, error) {
	n := 0
	err := q.iterate(ctx, func(T) bool {
		n++
		return true
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Empty returns a query producing no elements.
func Empty[T any]() Query[T] {
	return Query[T]{plan: SourceNode{Name: "empty"}}
}

// FromSlice returns a query over the elements of items.
// The slice is read at execution time, not copied.
func FromSlice[T any](items []T) Query[T] {
	return Query[T]{
		plan: SourceNode{Name: "slice"},
		run: func(ctx context.Context, yield func(T) bool) error {
			for _, item := range items {
				if err := ctx.Err(); err != nil {
					return err
				}
				if !yield(item) {
					return nil
				}
			}
			return nil
		},
	}
}

// FromSeq returns a query over an iterator.
// The iterator is started anew on every execution.
func FromSeq[T any](seq iter.Seq[T]) Query[T] {
	return Query[T]{
		plan: SourceNode{Name: "seq"},
		run: func(ctx context.Context, yield func(T) bool) error {
			var err error
			for item := range seq {
				if err = ctx.Err(); err != nil {
					break
				}
				if !yield(item) {
					break
				}
			}
			return err
		},
	}
}

// FromFunc returns a query backed by a producer function.
//
// This is the hook for backing stores. fn must call yield for each element,
// stop as soon as yield returns false, and return nil in that case. Any
// error it returns is handed to the caller of All or Collect as is.
func FromFunc[T any](name string, fn func(ctx context.Context, yield func(T) bool) error) Query[T] {
	return Query[T]{
		plan: SourceNode{Name: name},
		run:  fn,
	}
}
