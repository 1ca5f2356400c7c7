package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/joinq/internal/ir"
)

// LoadResult describes one LoadTable call.
type LoadResult struct {
	Table       string
	Columns     []Column
	Rows        int
	ContentHash string
	Unchanged   bool // the table already held exactly these rows
}

// LoadTable replaces a table with the given rows, inserted in order.
//
// Column types are inferred from the rows. Rows may omit columns (stored as
// NULL) but must not carry undeclared ones. Loading the same columns and rows
// a second time leaves the table untouched and reports Unchanged.
func (s *Store) LoadTable(ctx context.Context, name string, columns []string, rows []ir.IRObject) (LoadResult, error) {
	if name == "" || internalTable(name) {
		return LoadResult{}, fmt.Errorf("load table: invalid table name %q", name)
	}
	if len(columns) == 0 {
		return LoadResult{}, fmt.Errorf("load table %q: no columns", name)
	}

	cols, err := inferColumns(columns, rows)
	if err != nil {
		return LoadResult{}, fmt.Errorf("load table %q: %w", name, err)
	}
	result := LoadResult{
		Table:       name,
		Columns:     cols,
		Rows:        len(rows),
		ContentHash: ir.TableHash(columns, rows),
	}

	unchanged, err := s.alreadyLoaded(ctx, name, result.ContentHash)
	if err != nil {
		return LoadResult{}, fmt.Errorf("load table %q: %w", name, err)
	}
	if unchanged {
		result.Unchanged = true
		return result, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return LoadResult{}, fmt.Errorf("load table %q: begin: %w", name, err)
	}
	defer tx.Rollback()

	if err := createTable(ctx, tx, name, cols); err != nil {
		return LoadResult{}, fmt.Errorf("load table %q: %w", name, err)
	}
	if err := insertRows(ctx, tx, name, cols, rows); err != nil {
		return LoadResult{}, fmt.Errorf("load table %q: %w", name, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO joinq_imports (table_name, row_count, content_hash)
		VALUES (?, ?, ?)
		ON CONFLICT(table_name) DO UPDATE SET
			row_count = excluded.row_count,
			content_hash = excluded.content_hash
	`, name, len(rows), result.ContentHash)
	if err != nil {
		return LoadResult{}, fmt.Errorf("load table %q: record import: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return LoadResult{}, fmt.Errorf("load table %q: commit: %w", name, err)
	}
	return result, nil
}

// alreadyLoaded reports whether the table exists and was last loaded with
// the given content hash.
func (s *Store) alreadyLoaded(ctx context.Context, name, hash string) (bool, error) {
	var stored string
	err := s.db.QueryRowContext(ctx, `
		SELECT i.content_hash FROM joinq_imports i
		JOIN sqlite_master m ON m.name = i.table_name AND m.type = 'table'
		WHERE i.table_name = ?
	`, name).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check import: %w", err)
	}
	return stored == hash, nil
}

func createTable(ctx context.Context, tx *sql.Tx, name string, cols []Column) error {
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdent(name)); err != nil {
		return fmt.Errorf("drop: %w", err)
	}

	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = strings.TrimSpace(QuoteIdent(c.Name) + " " + c.Type)
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(name), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, name string, cols []Column, rows []ir.IRObject) error {
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		names[i] = QuoteIdent(c.Name)
		marks[i] = "?"
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdent(name), strings.Join(names, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(cols))
	for n, row := range rows {
		for i, c := range cols {
			args[i] = encodeValue(row.Get(c.Name))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", n+1, err)
		}
	}
	return nil
}
