package queryir

import (
	"fmt"
	"strings"
)

// Query is a node of a join request.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// JoinKind selects the join shape of a Join node.
type JoinKind string

const (
	// KindLeft keeps every left row, padding unmatched rows with nulls.
	KindLeft JoinKind = "left"
	// KindRight keeps every right row, padding unmatched rows with nulls.
	KindRight JoinKind = "right"
	// KindFull keeps every row of both sides. Identical rows collapse.
	KindFull JoinKind = "full"
	// KindCross pairs every left row with every right row. It takes no On.
	KindCross JoinKind = "cross"
)

// Valid reports whether k is one of the known join kinds.
func (k JoinKind) Valid() bool {
	switch k {
	case KindLeft, KindRight, KindFull, KindCross:
		return true
	}
	return false
}

// Scan reads every row of a table. Alias qualifies its columns; when empty
// the table name is used.
type Scan struct {
	Table string
	Alias string
}

func (Scan) queryNode() {}

// Name returns the alias the scan's columns are qualified with.
func (s Scan) Name() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Table
}

// Join combines two subtrees on a conjunction of column equalities.
//
// Semantics:
//
//	SELECT * FROM <left> <kind> JOIN <right> ON <on[0]> AND <on[1]> ...
type Join struct {
	Kind  JoinKind
	Left  Query
	Right Query
	On    []Equal // empty for KindCross
}

func (Join) queryNode() {}

// Apply expands every left row into the right rows matching On, keeping at
// most Limit of them per left row (0 means all). A cross apply drops left
// rows without matches; an outer apply (Outer true) keeps them once, padded
// with nulls.
type Apply struct {
	Outer bool
	Left  Query
	Right Query
	On    []Equal
	Limit int
}

func (Apply) queryNode() {}

// ColumnRef is a qualified column: Alias.Column.
type ColumnRef struct {
	Alias  string
	Column string
}

// ParseColumnRef parses "alias.column". The column part may itself contain
// dots; the alias may not.
func ParseColumnRef(s string) (ColumnRef, error) {
	alias, column, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok || alias == "" || column == "" {
		return ColumnRef{}, fmt.Errorf("column reference %q must be written alias.column", s)
	}
	return ColumnRef{Alias: alias, Column: column}, nil
}

func (c ColumnRef) String() string {
	return c.Alias + "." + c.Column
}

// Equal is one equality of a join condition. Left refers to the left
// subtree, Right to the right side.
type Equal struct {
	Left  ColumnRef
	Right ColumnRef
}

func (e Equal) String() string {
	return e.Left.String() + " = " + e.Right.String()
}

// Aliases returns the aliases a subtree introduces, left to right.
func Aliases(q Query) []string {
	switch node := q.(type) {
	case Scan:
		return []string{node.Name()}
	case Join:
		return append(Aliases(node.Left), Aliases(node.Right)...)
	case Apply:
		return append(Aliases(node.Left), Aliases(node.Right)...)
	}
	return nil
}

// Scans returns every Scan of a subtree, left to right.
func Scans(q Query) []Scan {
	switch node := q.(type) {
	case Scan:
		return []Scan{node}
	case Join:
		return append(Scans(node.Left), Scans(node.Right)...)
	case Apply:
		return append(Scans(node.Left), Scans(node.Right)...)
	}
	return nil
}

// Render prints a request as an indented tree, one node per line.
func Render(q Query) string {
	var b strings.Builder
	render(&b, q, 0)
	return b.String()
}

func render(b *strings.Builder, q Query, depth int) {
	indent := strings.Repeat("  ", depth)
	switch node := q.(type) {
	case Scan:
		if node.Alias != "" && node.Alias != node.Table {
			fmt.Fprintf(b, "%sScan(%s as %s)\n", indent, node.Table, node.Alias)
		} else {
			fmt.Fprintf(b, "%sScan(%s)\n", indent, node.Table)
		}
	case Join:
		fmt.Fprintf(b, "%sJoin(%s)%s\n", indent, node.Kind, onSuffix(node.On))
		render(b, node.Left, depth+1)
		render(b, node.Right, depth+1)
	case Apply:
		kind := "cross"
		if node.Outer {
			kind = "outer"
		}
		limit := ""
		if node.Limit > 0 {
			limit = fmt.Sprintf(" limit %d", node.Limit)
		}
		fmt.Fprintf(b, "%sApply(%s)%s%s\n", indent, kind, onSuffix(node.On), limit)
		render(b, node.Left, depth+1)
		render(b, node.Right, depth+1)
	default:
		fmt.Fprintf(b, "%s%T\n", indent, q)
	}
}

func onSuffix(on []Equal) string {
	if len(on) == 0 {
		return ""
	}
	parts := make([]string, len(on))
	for i, eq := range on {
		parts[i] = eq.String()
	}
	return " on " + strings.Join(parts, " and ")
}
