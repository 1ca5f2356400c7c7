package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/joinq/internal/ir"
	"github.com/roach88/joinq/internal/queryir"
	"github.com/roach88/joinq/query"
)

// Tables returns the user tables in the database, sorted by name.
//
// Returns an empty slice (not nil) for an empty database.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table'
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		if !internalTable(name) {
			tables = append(tables, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

// Describe returns the columns of a table in declaration order.
// An unknown table wraps queryir.ErrUnknownTable.
func (s *Store) Describe(ctx context.Context, table string) ([]Column, error) {
	if internalTable(table) {
		return nil, fmt.Errorf("%w: %q", queryir.ErrUnknownTable, table)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, fmt.Errorf("describe %q: %w", table, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("describe %q: %w", table, err)
		}
		c.Type = strings.ToUpper(c.Type)
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describe %q: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %q", queryir.ErrUnknownTable, table)
	}
	return columns, nil
}

// Columns returns the column names of a table in declaration order.
func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	columns, err := s.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names, nil
}

// Scan returns a deferred query over every row of a table in insertion
// order. Nothing is read until the query is realized.
func (s *Store) Scan(table string) query.Query[ir.IRObject] {
	return query.FromFunc(table, func(ctx context.Context, yield func(ir.IRObject) bool) error {
		columns, err := s.Describe(ctx, table)
		if err != nil {
			return err
		}
		names := make([]string, len(columns))
		for i, c := range columns {
			names[i] = QuoteIdent(c.Name)
		}
		sqlText := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid ASC", strings.Join(names, ", "), QuoteIdent(table))
		return s.stream(ctx, sqlText, nil, columns, yield)
	})
}

// Rows returns a deferred query over the result of a SELECT. Result columns
// are matched to columns by position; each row maps column names to values
// decoded by the declared types.
func (s *Store) Rows(sqlText string, params []any, columns []Column) query.Query[ir.IRObject] {
	return query.FromFunc("sqlite", func(ctx context.Context, yield func(ir.IRObject) bool) error {
		return s.stream(ctx, sqlText, params, columns, yield)
	})
}

func (s *Store) stream(ctx context.Context, sqlText string, params []any, columns []Column, yield func(ir.IRObject) bool) error {
	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	got, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("query rows: %w", err)
	}
	if len(got) != len(columns) {
		return fmt.Errorf("query returned %d columns, expected %d", len(got), len(columns))
	}

	raw := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := scanRow(rows, columns, raw, dest)
		if err != nil {
			return err
		}
		if !yield(row) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}
	return nil
}

func scanRow(rows *sql.Rows, columns []Column, raw, dest []any) (ir.IRObject, error) {
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}
	row := make(ir.IRObject, len(columns))
	for i, c := range columns {
		v, err := decodeValue(c.Type, raw[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		row[c.Name] = v
	}
	return row, nil
}

// Import records a table written by LoadTable.
type Import struct {
	Table       string
	Rows        int
	ContentHash string
}

// Imports lists the tables written by LoadTable, sorted by name.
//
// Returns an empty slice (not nil) if nothing was imported.
func (s *Store) Imports(ctx context.Context) ([]Import, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT table_name, row_count, content_hash FROM joinq_imports
		ORDER BY table_name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	defer rows.Close()

	imports := []Import{}
	for rows.Next() {
		var imp Import
		if err := rows.Scan(&imp.Table, &imp.Rows, &imp.ContentHash); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imports = append(imports, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate imports: %w", err)
	}
	return imports, nil
}
