package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/joinq/internal/ir"
)

func TestLoadTable_RecordsImport(t *testing.T) {
	s := createTestStore(t)
	rows := loadUsers(t, s)

	imports, err := s.Imports(context.Background())
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.Equal(t, "users", imports[0].Table)
	assert.Equal(t, 3, imports[0].Rows)
	assert.Equal(t, ir.TableHash([]string{"id", "name", "admin", "tags", "note"}, rows), imports[0].ContentHash)
}

func TestLoadTable_UnchangedReload(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rows := []ir.IRObject{{"v": ir.IRInt(1)}}

	first, err := s.LoadTable(ctx, "t", []string{"v"}, rows)
	require.NoError(t, err)
	assert.False(t, first.Unchanged)

	second, err := s.LoadTable(ctx, "t", []string{"v"}, rows)
	require.NoError(t, err)
	assert.True(t, second.Unchanged)
	assert.Equal(t, first.ContentHash, second.ContentHash)

	// Dropping the table behind the store's back forces a reload.
	_, err = s.DB().Exec(`DROP TABLE "t"`)
	require.NoError(t, err)
	third, err := s.LoadTable(ctx, "t", []string{"v"}, rows)
	require.NoError(t, err)
	assert.False(t, third.Unchanged)
}

func TestLoadTable_Replaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.LoadTable(ctx, "t", []string{"v"}, []ir.IRObject{{"v": ir.IRInt(1)}, {"v": ir.IRInt(2)}})
	require.NoError(t, err)
	_, err = s.LoadTable(ctx, "t", []string{"w"}, []ir.IRObject{{"w": ir.IRString("x")}})
	require.NoError(t, err)

	got, err := s.Scan("t").Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ir.IRObject{{"w": ir.IRString("x")}}, got)
}

func TestLoadTable_Errors(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.LoadTable(ctx, "", []string{"v"}, nil)
	assert.ErrorContains(t, err, "invalid table name")

	_, err = s.LoadTable(ctx, "joinq_imports", []string{"v"}, nil)
	assert.ErrorContains(t, err, "invalid table name")

	_, err = s.LoadTable(ctx, "t", nil, nil)
	assert.ErrorContains(t, err, "no columns")

	_, err = s.LoadTable(ctx, "t", []string{"v"}, []ir.IRObject{{"v": ir.IRInt(1)}, {"v": ir.IRBool(true)}})
	assert.ErrorContains(t, err, "mixes")

	tables, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Empty(t, tables, "failed loads leave nothing behind")
}

func TestLoadTable_QuotedNames(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.LoadTable(ctx, `order items`, []string{`unit "price"`}, []ir.IRObject{{`unit "price"`: ir.IRInt(3)}})
	require.NoError(t, err)

	got, err := s.Scan("order items").Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ir.IRObject{{`unit "price"`: ir.IRInt(3)}}, got)
}
