package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/joinq/internal/querysql"
	"github.com/roach88/joinq/internal/queryir"
	"github.com/roach88/joinq/internal/store"
)

// SQLite is the backend that compiles requests to SQL and runs them in a
// store.
type SQLite struct {
	store *store.Store
	opts  options
}

// NewSQLite creates a SQLite backend over s.
func NewSQLite(s *store.Store, opts ...Option) *SQLite {
	return &SQLite{store: s, opts: buildOptions(opts)}
}

// Name implements Backend.
func (b *SQLite) Name() string {
	return "sqlite"
}

// Execute validates and compiles a request. The statement runs when the
// result rows are realized.
func (b *SQLite) Execute(ctx context.Context, q queryir.Query) (*Result, error) {
	traceID := b.opts.traces.Generate()

	if err := queryir.Validate(q).Err(); err != nil {
		return nil, newExecError(b.Name(), err)
	}

	schema, types, err := b.describe(ctx, q)
	if err != nil {
		return nil, newExecError(b.Name(), err)
	}

	compiler := querysql.NewSQLCompiler(schema)
	sqlText, params, err := compiler.Compile(q)
	if err != nil {
		return nil, newExecError(b.Name(), err)
	}
	refs, err := compiler.OutputColumns(q)
	if err != nil {
		return nil, newExecError(b.Name(), err)
	}

	aliasTable := map[string]string{}
	for _, s := range queryir.Scans(q) {
		aliasTable[s.Name()] = s.Table
	}
	columns := make([]store.Column, len(refs))
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.String()
		columns[i] = store.Column{Name: names[i], Type: types[aliasTable[ref.Alias]][ref.Column]}
	}

	slog.Debug("request compiled",
		"trace_id", traceID,
		"backend", b.Name(),
		"sql", sqlText,
		"params", len(params))

	return &Result{
		TraceID: traceID,
		Backend: b.Name(),
		Columns: names,
		Rows:    b.store.Rows(sqlText, params, columns),
		SQL:     sqlText,
		Params:  params,
	}, nil
}

// describe collects the columns and declared types of every table the
// request reads.
func (b *SQLite) describe(ctx context.Context, q queryir.Query) (querysql.Schema, map[string]map[string]string, error) {
	schema := querysql.Schema{}
	types := map[string]map[string]string{}
	for _, s := range queryir.Scans(q) {
		if _, done := schema[s.Table]; done {
			continue
		}
		cols, err := b.store.Describe(ctx, s.Table)
		if err != nil {
			return nil, nil, err
		}
		names := make([]string, len(cols))
		types[s.Table] = make(map[string]string, len(cols))
		for i, c := range cols {
			names[i] = c.Name
			types[s.Table][c.Name] = c.Type
		}
		schema[s.Table] = names
	}
	return schema, types, nil
}
