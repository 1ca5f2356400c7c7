package dataset

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/joinq/internal/ir"
	"github.com/roach88/joinq/internal/queryir"
	"github.com/roach88/joinq/internal/store"
	"github.com/roach88/joinq/query"
)

// TableSpec is the decoded form of one table before value conversion.
type TableSpec struct {
	Columns []string         `yaml:"columns,omitempty" json:"columns,omitempty"`
	Rows    []map[string]any `yaml:"rows" json:"rows"`
}

// Table is a named table with normalized rows: every row has a value,
// possibly ir.IRNull, for every column and nothing else.
type Table struct {
	Name    string
	Columns []string
	Rows    []ir.IRObject
}

// Dataset is a set of tables held in memory.
type Dataset struct {
	tables map[string]*Table
}

// New builds a dataset from converted tables, normalizing their rows.
func New(tables ...Table) (*Dataset, error) {
	d := &Dataset{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		if t.Name == "" {
			return nil, fmt.Errorf("table without name")
		}
		if _, dup := d.tables[t.Name]; dup {
			return nil, fmt.Errorf("table %q is defined twice", t.Name)
		}
		normalized, err := normalize(t)
		if err != nil {
			return nil, err
		}
		d.tables[t.Name] = normalized
	}
	return d, nil
}

// FromSpecs converts decoded table specs, as found inline in scenarios.
func FromSpecs(specs map[string]TableSpec) (*Dataset, error) {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	slices.Sort(names)

	tables := make([]Table, 0, len(specs))
	for _, name := range names {
		spec := specs[name]
		rows := make([]ir.IRObject, len(spec.Rows))
		for i, raw := range spec.Rows {
			v, err := ir.FromGo(map[string]any(raw))
			if err != nil {
				return nil, fmt.Errorf("table %q row %d: %w", name, i+1, err)
			}
			rows[i] = v.(ir.IRObject)
		}
		tables = append(tables, Table{Name: name, Columns: spec.Columns, Rows: rows})
	}
	return New(tables...)
}

func normalize(t Table) (*Table, error) {
	columns := t.Columns
	if len(columns) == 0 {
		seen := map[string]bool{}
		for _, row := range t.Rows {
			for key := range row {
				if !seen[key] {
					seen[key] = true
					columns = append(columns, key)
				}
			}
		}
		slices.Sort(columns)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q has no columns", t.Name)
	}

	declared := make(map[string]bool, len(columns))
	for _, c := range columns {
		if declared[c] {
			return nil, fmt.Errorf("table %q: column %q is listed twice", t.Name, c)
		}
		declared[c] = true
	}

	rows := make([]ir.IRObject, len(t.Rows))
	for i, row := range t.Rows {
		for key := range row {
			if !declared[key] {
				return nil, fmt.Errorf("table %q row %d: column %q is not declared", t.Name, i+1, key)
			}
		}
		out := make(ir.IRObject, len(columns))
		for _, c := range columns {
			out[c] = row.Get(c)
		}
		rows[i] = out
	}
	return &Table{Name: t.Name, Columns: slices.Clone(columns), Rows: rows}, nil
}

// Tables returns the table names, sorted.
func (d *Dataset) Tables() []string {
	names := make([]string, 0, len(d.tables))
	for name := range d.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Table returns a table by name.
func (d *Dataset) Table(name string) (*Table, bool) {
	t, ok := d.tables[name]
	return t, ok
}

// Columns returns the column names of a table.
func (d *Dataset) Columns(_ context.Context, table string) ([]string, error) {
	t, ok := d.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", queryir.ErrUnknownTable, table)
	}
	return slices.Clone(t.Columns), nil
}

// Scan returns a deferred query over the rows of a table in file order.
// Rows are copies; callers may modify them.
func (d *Dataset) Scan(table string) query.Query[ir.IRObject] {
	t, ok := d.tables[table]
	if !ok {
		return query.FromFunc(table, func(context.Context, func(ir.IRObject) bool) error {
			return fmt.Errorf("%w: %q", queryir.ErrUnknownTable, table)
		})
	}
	rows := t.Rows
	return query.FromFunc(table, func(ctx context.Context, yield func(ir.IRObject) bool) error {
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !yield(row.Clone()) {
				return nil
			}
		}
		return nil
	})
}

// ImportInto loads every table into a store, in name order.
func (d *Dataset) ImportInto(ctx context.Context, s *store.Store) ([]store.LoadResult, error) {
	results := make([]store.LoadResult, 0, len(d.tables))
	for _, name := range d.Tables() {
		t := d.tables[name]
		res, err := s.LoadTable(ctx, t.Name, t.Columns, t.Rows)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
