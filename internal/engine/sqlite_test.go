package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/joinq/internal/ir"
	"github.com/roach88/joinq/internal/queryir"
	"github.com/roach88/joinq/internal/testutil"
)

func TestSQLite_LeftJoin(t *testing.T) {
	b := NewSQLite(testutil.ShopStore(t), WithTraceIDs(NewFixedGenerator("sql-1")))
	res := execute(t, b, request(t, "users as u", "left orders as o on u.id = o.user_id"))

	assert.Equal(t, "sql-1", res.TraceID)
	assert.Equal(t, "sqlite", res.Backend)
	assert.Contains(t, res.SQL, "LEFT JOIN")
	assert.Equal(t, []string{"u.id", "u.name", "o.id", "o.user_id", "o.item"}, res.Columns)
	assert.Equal(t, []string{"Ada/book", "Ada/pen", "Bob/NULL", "Cy/mug"}, project(t, res, "u.name", "o.item"))
}

func TestSQLite_DecodesDeclaredTypes(t *testing.T) {
	b := NewSQLite(testutil.ShopStore(t))
	res := execute(t, b, request(t, "orders as o", "outer_apply items as i on o.id = i.order_id limit 1"))

	rows, err := res.Rows.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, ir.IRBool(false), rows[0]["i.gift_wrap"])
	assert.Equal(t, ir.IRString("B-1"), rows[0]["i.sku"])
	assert.Equal(t, ir.IRNull{}, rows[1]["i.sku"])
}

func TestSQLite_Unsupported(t *testing.T) {
	b := NewSQLite(testutil.ShopStore(t))
	q := request(t, "users as u", "full orders as o on u.id = o.user_id", "left items as i on o.id = i.order_id")

	_, err := b.Execute(context.Background(), q)
	assert.True(t, IsUnsupported(err), "got %v", err)

	// The in-memory backend runs the same request.
	_, err = New(testutil.Shop(t)).Execute(context.Background(), q)
	assert.NoError(t, err)
}

func TestSQLite_UnknownTable(t *testing.T) {
	b := NewSQLite(testutil.ShopStore(t))
	_, err := b.Execute(context.Background(), request(t, "nope"))

	var ee *ExecError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeUnknownTable, ee.Code)
	assert.Equal(t, "sqlite", ee.Backend)
}

func TestBackendsAgree(t *testing.T) {
	memory := New(testutil.Shop(t))
	sqlite := NewSQLite(testutil.ShopStore(t))

	requests := map[string]queryir.Query{
		"scan":         request(t, "users"),
		"left":         request(t, "users as u", "left orders as o on u.id = o.user_id"),
		"right":        request(t, "users as u", "right orders as o on u.id = o.user_id"),
		"full":         request(t, "users as u", "full orders as o on u.id = o.user_id"),
		"cross":        request(t, "users as u", "cross orders as o"),
		"outer apply":  request(t, "users as u", "outer_apply orders as o on u.id = o.user_id limit 1"),
		"cross apply":  request(t, "users as u", "cross_apply orders as o on u.id = o.user_id"),
		"apply no key": request(t, "users as u", "cross_apply orders as o limit 2"),
		"chain": request(t, "users as u",
			"right orders as o on u.id = o.user_id",
			"left items as i on o.id = i.order_id"),
		"chain into full": request(t, "orders as o",
			"left users as u on o.user_id = u.id",
			"full items as i on o.id = i.order_id"),
		"null keys": request(t, "orders as a", "left orders as b on a.user_id = b.user_id"),
	}

	for name, q := range requests {
		t.Run(name, func(t *testing.T) {
			m := execute(t, memory, q)
			s := execute(t, sqlite, q)
			assert.Equal(t, m.Columns, s.Columns)
			assert.Equal(t, sortedKeys(t, m), sortedKeys(t, s))
		})
	}
}
