package engine

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/roach88/joinq/internal/ir"
	"github.com/roach88/joinq/internal/queryir"
	"github.com/roach88/joinq/join"
	"github.com/roach88/joinq/query"
)

// Catalog provides named tables. dataset.Dataset and store.Store
// implement it.
type Catalog interface {
	// Columns returns a table's columns in order, or an error wrapping
	// queryir.ErrUnknownTable.
	Columns(ctx context.Context, table string) ([]string, error)

	// Scan returns a deferred query over a table's rows.
	Scan(table string) query.Query[ir.IRObject]
}

// Backend executes join requests.
type Backend interface {
	Name() string
	Execute(ctx context.Context, q queryir.Query) (*Result, error)
}

// Result is a prepared request. Rows is deferred and may be realized any
// number of times.
type Result struct {
	TraceID string
	Backend string

	// Columns lists the qualified output columns, left to right.
	Columns []string

	Rows query.Query[ir.IRObject]

	// SQL and Params hold the compiled statement (SQLite backend only).
	SQL    string
	Params []any
}

// Option configures a backend.
type Option func(*options)

type options struct {
	traces TraceIDGenerator
}

// WithTraceIDs sets the trace ID source. Defaults to UUIDv7Generator.
func WithTraceIDs(g TraceIDGenerator) Option {
	return func(o *options) {
		o.traces = g
	}
}

func buildOptions(opts []Option) options {
	o := options{traces: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Engine is the in-memory backend.
type Engine struct {
	catalog Catalog
	opts    options
}

// New creates an in-memory backend reading tables from catalog.
func New(catalog Catalog, opts ...Option) *Engine {
	return &Engine{catalog: catalog, opts: buildOptions(opts)}
}

// Name implements Backend.
func (e *Engine) Name() string {
	return "memory"
}

// Execute validates a request, resolves its tables and columns, and
// composes the deferred row query.
func (e *Engine) Execute(ctx context.Context, q queryir.Query) (*Result, error) {
	traceID := e.opts.traces.Generate()

	if err := queryir.Validate(q).Err(); err != nil {
		return nil, newExecError(e.Name(), err)
	}
	rel, err := e.build(ctx, q)
	if err != nil {
		return nil, newExecError(e.Name(), err)
	}

	slog.Debug("request prepared",
		"trace_id", traceID,
		"backend", e.Name(),
		"columns", len(rel.columns))

	return &Result{
		TraceID: traceID,
		Backend: e.Name(),
		Columns: rel.columns,
		Rows:    rel.rows,
	}, nil
}

// relation is a subtree after resolution: its output columns and rows.
type relation struct {
	columns []string
	rows    query.Query[ir.IRObject]
}

// leftGroup is a left row with its matching right rows.
type leftGroup = join.Pair[ir.IRObject, iter.Seq[ir.IRObject]]

// rightGroup is a right row with its matching left rows.
type rightGroup = join.Pair[iter.Seq[ir.IRObject], ir.IRObject]

func (e *Engine) build(ctx context.Context, q queryir.Query) (relation, error) {
	switch node := q.(type) {
	case queryir.Scan:
		return e.buildScan(ctx, node)
	case queryir.Join:
		return e.buildJoin(ctx, node)
	case queryir.Apply:
		return e.buildApply(ctx, node)
	}
	return relation{}, fmt.Errorf("unsupported query type: %T", q)
}

// buildScan qualifies a table's columns with the scan's alias.
func (e *Engine) buildScan(ctx context.Context, s queryir.Scan) (relation, error) {
	cols, err := e.catalog.Columns(ctx, s.Table)
	if err != nil {
		return relation{}, err
	}

	qualified := make([]string, len(cols))
	for i, c := range cols {
		qualified[i] = queryir.ColumnRef{Alias: s.Name(), Column: c}.String()
	}

	rows := query.Select(e.catalog.Scan(s.Table), func(row ir.IRObject) ir.IRObject {
		out := make(ir.IRObject, len(cols))
		for i, c := range cols {
			out[qualified[i]] = row.Get(c)
		}
		return out
	})
	return relation{columns: qualified, rows: rows}, nil
}

func (e *Engine) buildJoin(ctx context.Context, j queryir.Join) (relation, error) {
	left, right, leftKey, rightKey, err := e.buildSides(ctx, j.Left, j.Right, j.On)
	if err != nil {
		return relation{}, err
	}
	merge := merger(left.columns, right.columns)
	mergePair := func(p join.Pair[ir.IRObject, ir.IRObject]) ir.IRObject {
		return merge(p.Left, p.Right)
	}

	var rows query.Query[ir.IRObject]
	switch j.Kind {
	case queryir.KindLeft:
		rows = query.Select(join.LeftJoin(left.rows, right.rows, leftKey, rightKey), mergePair)
	case queryir.KindRight:
		rows = query.Select(join.RightJoin(left.rows, right.rows, leftKey, rightKey), mergePair)
	case queryir.KindFull:
		// Rows are maps, so the union deduplicates on canonical row keys.
		rows = join.FullJoinBy(left.rows, right.rows, leftKey, rightKey,
			func(l ir.IRObject, rs iter.Seq[ir.IRObject]) leftGroup {
				return leftGroup{Left: l, Right: rs}
			},
			func(g leftGroup) iter.Seq[ir.IRObject] {
				return query.DefaultIfEmpty(g.Right)
			},
			func(g leftGroup, r ir.IRObject) ir.IRObject {
				return merge(g.Left, r)
			},
			func(r ir.IRObject, ls iter.Seq[ir.IRObject]) rightGroup {
				return rightGroup{Left: ls, Right: r}
			},
			func(g rightGroup) iter.Seq[ir.IRObject] {
				return query.DefaultIfEmpty(g.Left)
			},
			func(g rightGroup, l ir.IRObject) ir.IRObject {
				return merge(l, g.Right)
			},
			ir.RowKey)
	case queryir.KindCross:
		rows = join.CrossJoinFunc(left.rows, right.rows, merge)
	default:
		return relation{}, fmt.Errorf("unknown join kind %q", j.Kind)
	}

	return relation{columns: slices.Concat(left.columns, right.columns), rows: rows}, nil
}

// buildApply groups the matching right rows under each left row, then
// expands at most Limit of them. An outer apply defaults empty groups.
func (e *Engine) buildApply(ctx context.Context, a queryir.Apply) (relation, error) {
	left, right, leftKey, rightKey, err := e.buildSides(ctx, a.Left, a.Right, a.On)
	if err != nil {
		return relation{}, err
	}
	merge := merger(left.columns, right.columns)

	grouped := query.GroupJoin(left.rows, right.rows, leftKey, rightKey,
		func(l ir.IRObject, rs iter.Seq[ir.IRObject]) leftGroup {
			return leftGroup{Left: l, Right: rs}
		})
	matches := func(g leftGroup) iter.Seq[ir.IRObject] {
		return query.Take(g.Right, a.Limit)
	}
	result := func(g leftGroup, r ir.IRObject) ir.IRObject {
		return merge(g.Left, r)
	}

	var rows query.Query[ir.IRObject]
	if a.Outer {
		rows = join.OuterApply(grouped, func(g leftGroup) iter.Seq[ir.IRObject] {
			return query.DefaultIfEmpty(matches(g))
		}, result)
	} else {
		rows = join.CrossApply(grouped, matches, result)
	}
	return relation{columns: slices.Concat(left.columns, right.columns), rows: rows}, nil
}

// buildSides resolves both sides of a binary node and the key functions of
// its condition.
func (e *Engine) buildSides(ctx context.Context, lq, rq queryir.Query, on []queryir.Equal) (
	left, right relation,
	leftKey, rightKey func(ir.IRObject) string,
	err error,
) {
	if left, err = e.build(ctx, lq); err != nil {
		return
	}
	if right, err = e.build(ctx, rq); err != nil {
		return
	}

	leftRefs := make([]queryir.ColumnRef, len(on))
	rightRefs := make([]queryir.ColumnRef, len(on))
	for i, eq := range on {
		leftRefs[i], rightRefs[i] = eq.Left, eq.Right
	}
	if leftKey, err = keyFunc(left.columns, leftRefs); err != nil {
		return
	}
	rightKey, err = keyFunc(right.columns, rightRefs)
	return
}

// keyFunc returns the canonical key of the referenced columns of a row.
// With no references every row has the same key.
func keyFunc(columns []string, refs []queryir.ColumnRef) (func(ir.IRObject) string, error) {
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.String()
		if !slices.Contains(columns, names[i]) {
			return nil, fmt.Errorf("%w: %s", queryir.ErrUnknownColumn, ref)
		}
	}
	return func(row ir.IRObject) string {
		vals := make([]ir.IRValue, len(names))
		for i, n := range names {
			vals[i] = row.Get(n)
		}
		return ir.Key(vals...)
	}, nil
}

// merger combines a left and a right row. A nil side, the zero value an
// outer join pads with, contributes nulls for all of its columns.
func merger(leftCols, rightCols []string) func(l, r ir.IRObject) ir.IRObject {
	return func(l, r ir.IRObject) ir.IRObject {
		out := make(ir.IRObject, len(leftCols)+len(rightCols))
		for _, c := range leftCols {
			out[c] = l.Get(c)
		}
		for _, c := range rightCols {
			out[c] = r.Get(c)
		}
		return out
	}
}
