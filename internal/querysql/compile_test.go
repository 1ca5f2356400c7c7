package querysql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/joinq/internal/queryir"
)

var shop = Schema{
	"users":  {"id", "name"},
	"orders": {"id", "user_id"},
	"items":  {"order_id", "sku"},
}

func scan(table, alias string) queryir.Scan {
	return queryir.Scan{Table: table, Alias: alias}
}

func eq(la, lc, ra, rc string) queryir.Equal {
	return queryir.Equal{
		Left:  queryir.ColumnRef{Alias: la, Column: lc},
		Right: queryir.ColumnRef{Alias: ra, Column: rc},
	}
}

func TestCompile_Scan(t *testing.T) {
	sql, params, err := NewSQLCompiler(shop).Compile(scan("users", "u"))
	require.NoError(t, err)
	assert.Equal(t, `SELECT "u"."id" AS "u.id", "u"."name" AS "u.name" FROM "users" AS "u" ORDER BY "u".rowid ASC`, sql)
	assert.Empty(t, params)
}

func TestCompile_LeftJoin(t *testing.T) {
	q := queryir.Join{
		Kind:  queryir.KindLeft,
		Left:  scan("users", "u"),
		Right: scan("orders", "o"),
		On:    []queryir.Equal{eq("u", "id", "o", "user_id")},
	}
	sql, params, err := NewSQLCompiler(shop).Compile(q)
	require.NoError(t, err)

	want := `SELECT "u"."id" AS "u.id", "u"."name" AS "u.name", "o"."id" AS "o.id", "o"."user_id" AS "o.user_id"` +
		` FROM "users" AS "u" LEFT JOIN "orders" AS "o"` +
		` ON ("u"."id" IS "o"."user_id" AND typeof("u"."id") = typeof("o"."user_id"))` +
		` ORDER BY "u".rowid ASC, "o".rowid ASC`
	assert.Equal(t, want, sql)
	assert.Empty(t, params)
}

func TestCompile_JoinKinds(t *testing.T) {
	tests := []struct {
		kind    queryir.JoinKind
		keyword string
	}{
		{queryir.KindLeft, " LEFT JOIN "},
		{queryir.KindRight, " RIGHT JOIN "},
		{queryir.KindFull, " FULL OUTER JOIN "},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			q := queryir.Join{Kind: tt.kind, Left: scan("users", "u"), Right: scan("orders", "o"),
				On: []queryir.Equal{eq("u", "id", "o", "user_id")}}
			sql, _, err := NewSQLCompiler(shop).Compile(q)
			require.NoError(t, err)
			assert.Contains(t, sql, tt.keyword)
			assert.Contains(t, sql, "ORDER BY")
		})
	}
}

func TestCompile_FullJoinIsDistinct(t *testing.T) {
	q := queryir.Join{Kind: queryir.KindFull, Left: scan("users", "u"), Right: scan("orders", "o"),
		On: []queryir.Equal{eq("u", "id", "o", "user_id")}}
	sql, _, err := NewSQLCompiler(shop).Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, "SELECT DISTINCT ")
	assert.Contains(t, sql, "ORDER BY 1, 2, 3, 4")
}

func TestCompile_CrossJoin(t *testing.T) {
	q := queryir.Join{Kind: queryir.KindCross, Left: scan("users", "u"), Right: scan("orders", "o")}
	sql, _, err := NewSQLCompiler(shop).Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, `FROM "users" AS "u" CROSS JOIN "orders" AS "o" ORDER BY`)
	assert.NotContains(t, sql, " ON ")
}

func TestCompile_OuterApplyWithLimit(t *testing.T) {
	q := queryir.Apply{
		Outer: true,
		Left:  scan("users", "u"),
		Right: scan("orders", "o"),
		On:    []queryir.Equal{eq("u", "id", "o", "user_id")},
		Limit: 2,
	}
	sql, params, err := NewSQLCompiler(shop).Compile(q)
	require.NoError(t, err)

	want := `SELECT "u"."id" AS "u.id", "u"."name" AS "u.name", "o"."id" AS "o.id", "o"."user_id" AS "o.user_id"` +
		` FROM "users" AS "u" LEFT JOIN (SELECT *, rowid AS "__rowid",` +
		` ROW_NUMBER() OVER (PARTITION BY "user_id" ORDER BY rowid) AS "__rn" FROM "orders") AS "o"` +
		` ON ("u"."id" IS "o"."user_id" AND typeof("u"."id") = typeof("o"."user_id")) AND "o"."__rn" <= ?` +
		` ORDER BY "u".rowid ASC, "o"."__rowid" ASC`
	assert.Equal(t, want, sql)

	// Limits are parameters, never interpolated.
	assert.Equal(t, []any{int64(2)}, params)
}

func TestCompile_CrossApply(t *testing.T) {
	q := queryir.Apply{Left: scan("users", "u"), Right: scan("orders", "o"),
		On: []queryir.Equal{eq("u", "id", "o", "user_id")}}
	sql, params, err := NewSQLCompiler(shop).Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, ` INNER JOIN "orders" AS "o" ON (`)
	assert.Empty(t, params)

	q = queryir.Apply{Left: scan("users", "u"), Right: scan("orders", "o"), Limit: 1}
	sql, params, err = NewSQLCompiler(shop).Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, `ROW_NUMBER() OVER (ORDER BY rowid)`)
	assert.Contains(t, sql, ` ON "o"."__rn" <= ?`)
	assert.Equal(t, []any{int64(1)}, params)
}

func TestCompile_ChainSeesEarlierAliases(t *testing.T) {
	q := queryir.Join{
		Kind: queryir.KindLeft,
		Left: queryir.Join{Kind: queryir.KindLeft, Left: scan("users", "u"), Right: scan("orders", "o"),
			On: []queryir.Equal{eq("u", "id", "o", "user_id")}},
		Right: scan("items", "i"),
		On:    []queryir.Equal{eq("o", "id", "i", "order_id")},
	}
	c := NewSQLCompiler(shop)
	sql, _, err := c.Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, `LEFT JOIN "orders" AS "o" ON`)
	assert.Contains(t, sql, `LEFT JOIN "items" AS "i" ON ("o"."id" IS "i"."order_id"`)
	assert.Contains(t, sql, `ORDER BY "u".rowid ASC, "o".rowid ASC, "i".rowid ASC`)

	cols, err := c.OutputColumns(q)
	require.NoError(t, err)
	require.Len(t, cols, 6)
	assert.Equal(t, "i.sku", cols[5].String())
}

func TestCompile_Unsupported(t *testing.T) {
	nestedRight := queryir.Join{
		Kind:  queryir.KindLeft,
		Left:  scan("users", "u"),
		Right: queryir.Join{Kind: queryir.KindCross, Left: scan("orders", "o"), Right: scan("items", "i")},
		On:    []queryir.Equal{eq("u", "id", "o", "user_id")},
	}
	_, _, err := NewSQLCompiler(shop).Compile(nestedRight)
	assert.True(t, errors.Is(err, ErrUnsupported))

	innerFull := queryir.Join{
		Kind: queryir.KindCross,
		Left: queryir.Join{Kind: queryir.KindFull, Left: scan("users", "u"), Right: scan("orders", "o"),
			On: []queryir.Equal{eq("u", "id", "o", "user_id")}},
		Right: scan("items", "i"),
	}
	_, _, err = NewSQLCompiler(shop).Compile(innerFull)
	assert.True(t, errors.Is(err, ErrUnsupported))
	assert.Contains(t, err.Error(), "full join must be the last step")
}

func TestCompile_UnknownNames(t *testing.T) {
	_, _, err := NewSQLCompiler(shop).Compile(scan("missing", ""))
	assert.ErrorIs(t, err, queryir.ErrUnknownTable)

	q := queryir.Join{Kind: queryir.KindLeft, Left: scan("users", "u"), Right: scan("orders", "o"),
		On: []queryir.Equal{eq("u", "nope", "o", "user_id")}}
	_, _, err = NewSQLCompiler(shop).Compile(q)
	assert.ErrorIs(t, err, queryir.ErrUnknownColumn)
	assert.Contains(t, err.Error(), "u.nope")

	_, _, err = NewSQLCompiler(shop).Compile(nil)
	assert.Error(t, err)
}

func TestCompile_QuotesIdentifiers(t *testing.T) {
	schema := Schema{`we"ird`: {`c"ol`}}
	sql, _, err := NewSQLCompiler(schema).Compile(scan(`we"ird`, ""))
	require.NoError(t, err)
	assert.Equal(t, `SELECT "we""ird"."c""ol" AS "we""ird.c""ol" FROM "we""ird" AS "we""ird" ORDER BY "we""ird".rowid ASC`, sql)
}
