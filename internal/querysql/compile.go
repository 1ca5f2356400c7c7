package querysql

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/joinq/internal/queryir"
)

// ErrUnsupported marks requests that are valid but have no SQL translation
// here. The in-memory engine can still run them.
var ErrUnsupported = errors.New("not supported by the SQL backend")

// Schema maps table names to their columns in declaration order.
type Schema map[string][]string

// SQLCompiler compiles join requests to parameterized SQL for SQLite.
//
// Requests must be left-deep: every right side is a Scan. A full join must
// be the outermost node, because its duplicate elimination is a DISTINCT
// over the whole result.
//
// CRITICAL: ALL queries include ORDER BY for deterministic results.
// CRITICAL: All values are parameterized (never interpolated).
type SQLCompiler struct {
	Schema Schema
}

// NewSQLCompiler creates a new SQLCompiler over the given tables.
func NewSQLCompiler(schema Schema) *SQLCompiler {
	return &SQLCompiler{Schema: schema}
}

// source is one FROM item of the flattened request.
type source struct {
	scan    queryir.Scan
	rowid   string // expression ordering this source by insertion
	columns []string
}

// compilation accumulates the clauses of one statement.
type compilation struct {
	from     strings.Builder
	params   []any
	sources  []source
	distinct bool
}

// Compile converts a request to SQL.
// Returns (sql, params, error) tuple.
//
// Output columns are named "alias.column" and appear in the order returned
// by OutputColumns.
//
// MANDATORY: Every query includes ORDER BY.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	comp := &compilation{}
	if j, ok := q.(queryir.Join); ok && j.Kind == queryir.KindFull {
		comp.distinct = true
	}
	if err := c.compileQuery(comp, q, true); err != nil {
		return "", nil, err
	}

	var selectList []string
	for _, src := range comp.sources {
		for _, col := range src.columns {
			ref := queryir.ColumnRef{Alias: src.scan.Name(), Column: col}
			selectList = append(selectList, fmt.Sprintf("%s AS %s", columnSQL(ref), quote(ref.String())))
		}
	}

	var sql strings.Builder
	sql.WriteString("SELECT ")
	if comp.distinct {
		sql.WriteString("DISTINCT ")
	}
	sql.WriteString(strings.Join(selectList, ", "))
	sql.WriteString(" FROM ")
	sql.WriteString(comp.from.String())
	sql.WriteString(" ORDER BY ")
	sql.WriteString(c.stableOrderKey(comp, len(selectList)))

	return sql.String(), comp.params, nil
}

// OutputColumns returns the columns Compile selects, in order.
func (c *SQLCompiler) OutputColumns(q queryir.Query) ([]queryir.ColumnRef, error) {
	var refs []queryir.ColumnRef
	for _, scan := range queryir.Scans(q) {
		cols, err := c.columns(scan.Table)
		if err != nil {
			return nil, err
		}
		for _, col := range cols {
			refs = append(refs, queryir.ColumnRef{Alias: scan.Name(), Column: col})
		}
	}
	return refs, nil
}

// stableOrderKey returns the ORDER BY clause for a statement.
// MANDATORY: Every statement MUST call this function.
//
// Plain statements order by the insertion order of each source, left to
// right; unmatched sides sort first. DISTINCT statements may only order by
// selected columns, so they order by all of them.
func (c *SQLCompiler) stableOrderKey(comp *compilation, columnCount int) string {
	var keys []string
	if comp.distinct {
		for i := 1; i <= columnCount; i++ {
			keys = append(keys, fmt.Sprintf("%d", i))
		}
	} else {
		for _, src := range comp.sources {
			keys = append(keys, src.rowid+" ASC")
		}
	}
	return strings.Join(keys, ", ")
}

func (c *SQLCompiler) compileQuery(comp *compilation, q queryir.Query, outermost bool) error {
	switch node := q.(type) {
	case queryir.Scan:
		return c.compileScan(comp, node)
	case queryir.Join:
		return c.compileJoin(comp, node, outermost)
	case queryir.Apply:
		return c.compileApply(comp, node)
	case nil:
		return fmt.Errorf("cannot compile nil query")
	default:
		return fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileScan emits the first FROM item.
func (c *SQLCompiler) compileScan(comp *compilation, s queryir.Scan) error {
	cols, err := c.columns(s.Table)
	if err != nil {
		return err
	}
	comp.from.WriteString(tableSQL(s))
	comp.sources = append(comp.sources, source{scan: s, rowid: quote(s.Name()) + ".rowid", columns: cols})
	return nil
}

// compileJoin emits "<left> <KIND> JOIN <right> ON <keys>".
func (c *SQLCompiler) compileJoin(comp *compilation, j queryir.Join, outermost bool) error {
	right, ok := j.Right.(queryir.Scan)
	if !ok {
		return fmt.Errorf("%w: join right side must be a table, got %T", ErrUnsupported, j.Right)
	}
	if j.Kind == queryir.KindFull && !outermost {
		return fmt.Errorf("%w: a full join must be the last step", ErrUnsupported)
	}

	if err := c.compileQuery(comp, j.Left, false); err != nil {
		return err
	}
	cols, err := c.columns(right.Table)
	if err != nil {
		return err
	}

	var keyword string
	switch j.Kind {
	case queryir.KindLeft:
		keyword = "LEFT JOIN"
	case queryir.KindRight:
		keyword = "RIGHT JOIN"
	case queryir.KindFull:
		keyword = "FULL OUTER JOIN"
	case queryir.KindCross:
		keyword = "CROSS JOIN"
	default:
		return fmt.Errorf("unknown join kind %q", j.Kind)
	}

	fmt.Fprintf(&comp.from, " %s %s", keyword, tableSQL(right))
	comp.sources = append(comp.sources, source{scan: right, rowid: quote(right.Name()) + ".rowid", columns: cols})

	if j.Kind == queryir.KindCross {
		return nil
	}
	on, err := c.compileOn(comp, j.On)
	if err != nil {
		return err
	}
	comp.from.WriteString(" ON " + on)
	return nil
}

// compileApply emits a join against the right table numbered per key. With
// a limit, only the first Limit rows of each key group (in insertion order)
// can match:
//
//	LEFT JOIN (SELECT *, rowid AS "__rowid",
//	             ROW_NUMBER() OVER (PARTITION BY "user_id" ORDER BY rowid) AS "__rn"
//	           FROM "orders") AS "o"
//	  ON <keys> AND "o"."__rn" <= ?
//
// An outer apply is a LEFT JOIN, a cross apply an INNER JOIN.
func (c *SQLCompiler) compileApply(comp *compilation, a queryir.Apply) error {
	right, ok := a.Right.(queryir.Scan)
	if !ok {
		return fmt.Errorf("%w: apply right side must be a table, got %T", ErrUnsupported, a.Right)
	}
	if err := c.compileQuery(comp, a.Left, false); err != nil {
		return err
	}
	cols, err := c.columns(right.Table)
	if err != nil {
		return err
	}

	keyword := "INNER JOIN"
	if a.Outer {
		keyword = "LEFT JOIN"
	}

	src := source{scan: right, rowid: quote(right.Name()) + ".rowid", columns: cols}
	if a.Limit > 0 {
		partition := make([]string, 0, len(a.On))
		for _, eq := range a.On {
			if !slices.Contains(cols, eq.Right.Column) {
				return fmt.Errorf("%w: %s", queryir.ErrUnknownColumn, eq.Right)
			}
			partition = append(partition, quote(eq.Right.Column))
		}
		window := "ORDER BY rowid"
		if len(partition) > 0 {
			window = "PARTITION BY " + strings.Join(partition, ", ") + " " + window
		}
		fmt.Fprintf(&comp.from, " %s (SELECT *, rowid AS %s, ROW_NUMBER() OVER (%s) AS %s FROM %s) AS %s",
			keyword, quote("__rowid"), window, quote("__rn"), quote(right.Table), quote(right.Name()))
		src.rowid = quote(right.Name()) + "." + quote("__rowid")
	} else {
		fmt.Fprintf(&comp.from, " %s %s", keyword, tableSQL(right))
	}
	comp.sources = append(comp.sources, src)

	conds := []string{}
	if len(a.On) > 0 {
		on, err := c.compileOn(comp, a.On)
		if err != nil {
			return err
		}
		conds = append(conds, on)
	}
	if a.Limit > 0 {
		conds = append(conds, quote(right.Name())+"."+quote("__rn")+" <= ?")
		comp.params = append(comp.params, int64(a.Limit))
	}
	if len(conds) == 0 {
		conds = append(conds, "1 = 1")
	}
	comp.from.WriteString(" ON " + strings.Join(conds, " AND "))
	return nil
}

// compileOn compiles key equalities against the sources emitted so far.
//
// Keys compare with IS, so two nulls match, and must share a storage class,
// so 1 never matches '1'. This is the equality the in-memory engine uses.
func (c *SQLCompiler) compileOn(comp *compilation, on []queryir.Equal) (string, error) {
	parts := make([]string, 0, len(on))
	for _, eq := range on {
		for _, ref := range []queryir.ColumnRef{eq.Left, eq.Right} {
			if err := comp.resolve(ref); err != nil {
				return "", err
			}
		}
		l, r := columnSQL(eq.Left), columnSQL(eq.Right)
		parts = append(parts, fmt.Sprintf("(%s IS %s AND typeof(%s) = typeof(%s))", l, r, l, r))
	}
	return strings.Join(parts, " AND "), nil
}

func (comp *compilation) resolve(ref queryir.ColumnRef) error {
	for _, src := range comp.sources {
		if src.scan.Name() == ref.Alias {
			if slices.Contains(src.columns, ref.Column) {
				return nil
			}
			return fmt.Errorf("%w: %s", queryir.ErrUnknownColumn, ref)
		}
	}
	return fmt.Errorf("%w: alias %q in %s", queryir.ErrUnknownColumn, ref.Alias, ref)
}

func (c *SQLCompiler) columns(table string) ([]string, error) {
	cols, ok := c.Schema[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", queryir.ErrUnknownTable, table)
	}
	return cols, nil
}

func tableSQL(s queryir.Scan) string {
	return quote(s.Table) + " AS " + quote(s.Name())
}

func columnSQL(ref queryir.ColumnRef) string {
	return quote(ref.Alias) + "." + quote(ref.Column)
}

// quote quotes an identifier.
func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
