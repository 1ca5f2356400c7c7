package query

import (
	"fmt"
	"strings"
)

// Plan is a node in the operator tree of a query.
//
// This is a sealed interface - only types in this package implement it, so
// a type switch over the node types below is exhaustive.
type Plan interface {
	planNode()
}

// SourceNode is a leaf reading from a source (slice, iterator or provider).
type SourceNode struct {
	Name string
}

// GroupJoinNode pairs outer elements with matching inner groups.
type GroupJoinNode struct {
	Outer Plan
	Inner Plan
}

// SelectManyNode flattens per-element sequences.
type SelectManyNode struct {
	Input Plan
}

// UnionNode is a distinct union of two inputs.
type UnionNode struct {
	First  Plan
	Second Plan
}

// WhereNode filters its input.
type WhereNode struct {
	Input Plan
}

// SelectNode projects its input.
type SelectNode struct {
	Input Plan
}

func (SourceNode) planNode()     {}
func (GroupJoinNode) planNode()  {}
func (SelectManyNode) planNode() {}
func (UnionNode) planNode()      {}
func (WhereNode) planNode()      {}
func (SelectNode) planNode()     {}

// Explain renders a plan as an indented tree, one node per line, children
// indented by two spaces.
func Explain(p Plan) string {
	var b strings.Builder
	explain(&b, p, 0)
	return b.String()
}

func explain(b *strings.Builder, p Plan, depth int) {
	indent := strings.Repeat("  ", depth)
	switch node := p.(type) {
	case SourceNode:
		fmt.Fprintf(b, "%sSource(%s)\n", indent, node.Name)
	case GroupJoinNode:
		fmt.Fprintf(b, "%sGroupJoin\n", indent)
		explain(b, node.Outer, depth+1)
		explain(b, node.Inner, depth+1)
	case SelectManyNode:
		fmt.Fprintf(b, "%sSelectMany\n", indent)
		explain(b, node.Input, depth+1)
	case UnionNode:
		fmt.Fprintf(b, "%sUnion\n", indent)
		explain(b, node.First, depth+1)
		explain(b, node.Second, depth+1)
	case WhereNode:
		fmt.Fprintf(b, "%sWhere\n", indent)
		explain(b, node.Input, depth+1)
	case SelectNode:
		fmt.Fprintf(b, "%sSelect\n", indent)
		explain(b, node.Input, depth+1)
	case nil:
		fmt.Fprintf(b, "%s<nil>\n", indent)
	default:
		fmt.Fprintf(b, "%s%T\n", indent, p)
	}
}
