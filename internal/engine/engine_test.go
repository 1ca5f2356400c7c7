package engine

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/joinq/internal/dataset"
	"github.com/roach88/joinq/internal/ir"
	"github.com/roach88/joinq/internal/queryir"
	"github.com/roach88/joinq/internal/testutil"
	"github.com/roach88/joinq/query"
)

func request(t *testing.T, from string, steps ...string) queryir.Query {
	t.Helper()
	req := queryir.Request{From: from}
	for _, s := range steps {
		step, err := queryir.ParseStep(s)
		require.NoError(t, err)
		req.Joins = append(req.Joins, step)
	}
	q, err := req.Build()
	require.NoError(t, err)
	return q
}

// project renders the given columns of each row as "a/b".
func project(t *testing.T, res *Result, cols ...string) []string {
	t.Helper()
	rows, err := res.Rows.Collect(context.Background())
	require.NoError(t, err)

	out := make([]string, len(rows))
	for i, row := range rows {
		parts := make([]string, len(cols))
		for j, c := range cols {
			parts[j] = ir.Format(row.Get(c))
		}
		out[i] = strings.Join(parts, "/")
	}
	return out
}

func execute(t *testing.T, b Backend, q queryir.Query) *Result {
	t.Helper()
	res, err := b.Execute(context.Background(), q)
	require.NoError(t, err)
	return res
}

func TestEngine_LeftJoin(t *testing.T) {
	e := New(testutil.Shop(t))
	res := execute(t, e, request(t, "users as u", "left orders as o on u.id = o.user_id"))

	assert.Equal(t, []string{"u.id", "u.name", "o.id", "o.user_id", "o.item"}, res.Columns)
	assert.Equal(t, []string{"Ada/book", "Ada/pen", "Bob/NULL", "Cy/mug"}, project(t, res, "u.name", "o.item"))

	rows, err := res.Rows.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{
		"u.id":      ir.IRInt(2),
		"u.name":    ir.IRString("Bob"),
		"o.id":      ir.IRNull{},
		"o.user_id": ir.IRNull{},
		"o.item":    ir.IRNull{},
	}, rows[2])
}

func TestEngine_RightJoin(t *testing.T) {
	e := New(testutil.Shop(t))
	res := execute(t, e, request(t, "users as u", "right orders as o on u.id = o.user_id"))

	assert.Equal(t, []string{"u.id", "u.name", "o.id", "o.user_id", "o.item"}, res.Columns)
	assert.Equal(t, []string{"Ada/book", "Ada/pen", "NULL/lamp", "NULL/gift", "Cy/mug"}, project(t, res, "u.name", "o.item"))
}

func TestEngine_FullJoin(t *testing.T) {
	e := New(testutil.Shop(t))
	res := execute(t, e, request(t, "users as u", "full orders as o on u.id = o.user_id"))

	assert.Equal(t, []string{"Ada/book", "Ada/pen", "Bob/NULL", "Cy/mug", "NULL/lamp", "NULL/gift"},
		project(t, res, "u.name", "o.item"))
}

func TestEngine_CrossJoin(t *testing.T) {
	e := New(testutil.Shop(t))
	res := execute(t, e, request(t, "users as u", "cross orders as o"))

	n, err := res.Rows.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 15, n)
}

func TestEngine_Apply(t *testing.T) {
	e := New(testutil.Shop(t))

	outer := execute(t, e, request(t, "users as u", "outer_apply orders as o on u.id = o.user_id limit 1"))
	assert.Equal(t, []string{"Ada/book", "Bob/NULL", "Cy/mug"}, project(t, outer, "u.name", "o.item"))

	cross := execute(t, e, request(t, "users as u", "cross_apply orders as o on u.id = o.user_id limit 1"))
	assert.Equal(t, []string{"Ada/book", "Cy/mug"}, project(t, cross, "u.name", "o.item"))

	unlimited := execute(t, e, request(t, "users as u", "cross_apply orders as o on u.id = o.user_id"))
	assert.Equal(t, []string{"Ada/book", "Ada/pen", "Cy/mug"}, project(t, unlimited, "u.name", "o.item"))

	uncorrelated := execute(t, e, request(t, "users as u", "cross_apply orders as o limit 2"))
	assert.Equal(t, []string{"Ada/book", "Ada/pen", "Bob/book", "Bob/pen", "Cy/book", "Cy/pen"},
		project(t, uncorrelated, "u.name", "o.item"))
}

func TestEngine_ChainedJoins(t *testing.T) {
	e := New(testutil.Shop(t))
	res := execute(t, e, request(t, "users as u",
		"left orders as o on u.id = o.user_id",
		"left items as i on o.id = i.order_id"))

	assert.Equal(t, []string{"Ada/book/B-1", "Ada/book/B-2", "Ada/pen/NULL", "Bob/NULL/NULL", "Cy/mug/NULL"},
		project(t, res, "u.name", "o.item", "i.sku"))
}

func TestEngine_NullKeysMatch(t *testing.T) {
	d, err := dataset.New(
		dataset.Table{Name: "a", Columns: []string{"k", "v"}, Rows: []ir.IRObject{{"k": ir.IRNull{}, "v": ir.IRString("a1")}}},
		dataset.Table{Name: "b", Columns: []string{"k", "w"}, Rows: []ir.IRObject{{"w": ir.IRString("b1")}}},
	)
	require.NoError(t, err)

	res := execute(t, New(d), request(t, "a", "left b on a.k = b.k"))
	assert.Equal(t, []string{"a1/b1"}, project(t, res, "a.v", "b.w"))
}

func TestEngine_KeysAreTyped(t *testing.T) {
	d, err := dataset.New(
		dataset.Table{Name: "a", Columns: []string{"k"}, Rows: []ir.IRObject{{"k": ir.IRInt(1)}}},
		dataset.Table{Name: "b", Columns: []string{"k"}, Rows: []ir.IRObject{{"k": ir.IRString("1")}}},
	)
	require.NoError(t, err)

	res := execute(t, New(d), request(t, "a", "left b on a.k = b.k"))
	assert.Equal(t, []string{"1/NULL"}, project(t, res, "a.k", "b.k"))
}

func TestEngine_TraceIDs(t *testing.T) {
	e := New(testutil.Shop(t), WithTraceIDs(NewFixedGenerator("t-1", "t-2")))
	q := request(t, "users")

	assert.Equal(t, "t-1", execute(t, e, q).TraceID)
	res := execute(t, e, q)
	assert.Equal(t, "t-2", res.TraceID)
	assert.Equal(t, "memory", res.Backend)
	assert.Empty(t, res.SQL)
}

func TestEngine_DefaultTraceIDIsUUIDv7(t *testing.T) {
	res := execute(t, New(testutil.Shop(t)), request(t, "users"))
	require.Len(t, res.TraceID, 36)
	assert.Equal(t, byte('7'), res.TraceID[14])
}

// countingCatalog records scans that were realized.
type countingCatalog struct {
	Catalog
	reads *int
}

func (c countingCatalog) Scan(table string) query.Query[ir.IRObject] {
	return query.FromFunc(table, func(ctx context.Context, yield func(ir.IRObject) bool) error {
		*c.reads++
		for row, err := range c.Catalog.Scan(table).All(ctx) {
			if err != nil {
				return err
			}
			if !yield(row) {
				return nil
			}
		}
		return nil
	})
}

func TestEngine_ErrorsBeforeReading(t *testing.T) {
	reads := 0
	e := New(countingCatalog{Catalog: testutil.Shop(t), reads: &reads})

	tests := []struct {
		name string
		q    queryir.Query
		code ErrorCode
		is   error
	}{
		{"unknown table", request(t, "users as u", "left nope as n on u.id = n.user_id"), ErrCodeUnknownTable, queryir.ErrUnknownTable},
		{"unknown column", request(t, "users as u", "left orders as o on u.id = o.nope"), ErrCodeUnknownColumn, queryir.ErrUnknownColumn},
		{
			"invalid request",
			queryir.Join{Kind: queryir.KindLeft, Left: queryir.Scan{Table: "users"}, Right: queryir.Scan{Table: "orders"}},
			ErrCodeInvalidRequest,
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Execute(context.Background(), tt.q)
			var ee *ExecError
			require.True(t, errors.As(err, &ee), "got %v", err)
			assert.Equal(t, tt.code, ee.Code)
			assert.Equal(t, "memory", ee.Backend)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
	assert.Zero(t, reads)
}

func TestEngine_ExecuteIsDeferred(t *testing.T) {
	reads := 0
	e := New(countingCatalog{Catalog: testutil.Shop(t), reads: &reads})

	res := execute(t, e, request(t, "users as u", "full orders as o on u.id = o.user_id"))
	assert.Zero(t, reads)

	_, err := res.Rows.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, reads, "full join reads each side once per half")

	_, err = res.Rows.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, reads)
}

func TestEngine_PlanUsesJoinCombinators(t *testing.T) {
	res := execute(t, New(testutil.Shop(t)), request(t, "users as u", "left orders as o on u.id = o.user_id"))

	want := "Select\n" +
		"  SelectMany\n" +
		"    GroupJoin\n" +
		"      Select\n" +
		"        Source(users)\n" +
		"      Select\n" +
		"        Source(orders)\n"
	assert.Equal(t, want, query.Explain(res.Rows.Plan()))
}

func TestEngine_ContextCancelled(t *testing.T) {
	res := execute(t, New(testutil.Shop(t)), request(t, "users as u", "cross orders as o"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := res.Rows.Collect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsUnsupported(t *testing.T) {
	assert.True(t, IsUnsupported(&ExecError{Code: ErrCodeUnsupported}))
	assert.False(t, IsUnsupported(&ExecError{Code: ErrCodeBackend}))
	assert.False(t, IsUnsupported(errors.New("plain")))
}

func sortedKeys(t *testing.T, res *Result) []string {
	t.Helper()
	rows, err := res.Rows.Collect(context.Background())
	require.NoError(t, err)
	keys := make([]string, len(rows))
	for i, row := range rows {
		keys[i] = ir.RowKey(row)
	}
	slices.Sort(keys)
	return keys
}
