package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/joinq/internal/ir"
	"github.com/roach88/joinq/internal/queryir"
)

func TestTables(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tables, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{}, tables)

	loadUsers(t, s)
	_, err = s.LoadTable(ctx, "orders", []string{"id"}, nil)
	require.NoError(t, err)

	tables, err = s.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "users"}, tables)
}

func TestDescribeAndColumns(t *testing.T) {
	s := createTestStore(t)
	loadUsers(t, s)
	ctx := context.Background()

	cols, err := s.Describe(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []Column{
		{Name: "id", Type: TypeInteger},
		{Name: "name", Type: TypeText},
		{Name: "admin", Type: TypeBoolean},
		{Name: "tags", Type: TypeJSON},
		{Name: "note", Type: TypeAny},
	}, cols)

	names, err := s.Columns(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "admin", "tags", "note"}, names)

	_, err = s.Columns(ctx, "missing")
	assert.True(t, errors.Is(err, queryir.ErrUnknownTable))

	_, err = s.Columns(ctx, "joinq_imports")
	assert.True(t, errors.Is(err, queryir.ErrUnknownTable), "bookkeeping tables are hidden")
}

func TestScan_RoundTripsValues(t *testing.T) {
	s := createTestStore(t)
	rows := loadUsers(t, s)

	got, err := s.Scan("users").Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, got, len(rows))

	for i, row := range rows {
		want := ir.IRObject{}
		for _, c := range []string{"id", "name", "admin", "tags", "note"} {
			want[c] = row.Get(c)
		}
		assert.Equal(t, want, got[i], "row %d", i)
	}
}

func TestScan_IsDeferred(t *testing.T) {
	s := createTestStore(t)
	q := s.Scan("later")

	_, err := s.LoadTable(context.Background(), "later", []string{"v"}, []ir.IRObject{{"v": ir.IRInt(1)}})
	require.NoError(t, err)

	got, err := q.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ir.IRObject{{"v": ir.IRInt(1)}}, got)
}

func TestScan_UnknownTable(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Scan("missing").Collect(context.Background())
	assert.ErrorIs(t, err, queryir.ErrUnknownTable)
}

func TestScan_StopsEarly(t *testing.T) {
	s := createTestStore(t)
	loadUsers(t, s)

	n := 0
	for _, err := range s.Scan("users").All(context.Background()) {
		require.NoError(t, err)
		n++
		break
	}
	assert.Equal(t, 1, n)

	// The connection is released after an early stop.
	count, err := s.Scan("users").Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRows(t *testing.T) {
	s := createTestStore(t)
	loadUsers(t, s)

	q := s.Rows(`SELECT "id", "admin" FROM "users" WHERE "id" >= ? ORDER BY rowid`,
		[]any{int64(2)},
		[]Column{{Name: "u.id", Type: TypeInteger}, {Name: "u.admin", Type: TypeBoolean}})

	got, err := q.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ir.IRObject{
		{"u.id": ir.IRInt(2), "u.admin": ir.IRBool(false)},
		{"u.id": ir.IRInt(3), "u.admin": ir.IRBool(false)},
	}, got)
}

func TestRows_ColumnCountMismatch(t *testing.T) {
	s := createTestStore(t)
	loadUsers(t, s)

	_, err := s.Rows(`SELECT "id" FROM "users"`, nil, nil).Collect(context.Background())
	assert.ErrorContains(t, err, "expected 0")
}

func TestRows_ContextCancelled(t *testing.T) {
	s := createTestStore(t)
	loadUsers(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Rows(`SELECT "id" FROM "users"`, nil, []Column{{Name: "id", Type: TypeInteger}}).Collect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
