package queryir

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Step kinds accepted by Request and ParseStep, in addition to the join kinds.
const (
	StepCrossApply = "cross_apply"
	StepOuterApply = "outer_apply"
)

// Request is the serialized form of a left-deep join request.
type Request struct {
	From  string `yaml:"from" json:"from"` // "users" or "users as u"
	Joins []Step `yaml:"joins,omitempty" json:"joins,omitempty"`
}

// Step adds one table to the right of everything before it.
type Step struct {
	Kind  string   `yaml:"kind" json:"kind"`
	Table string   `yaml:"table" json:"table"`
	As    string   `yaml:"as,omitempty" json:"as,omitempty"`
	On    []string `yaml:"on,omitempty" json:"on,omitempty"` // "u.id = o.user_id"
	Limit int      `yaml:"limit,omitempty" json:"limit,omitempty"`
}

// Build turns the request into a query tree and validates it.
//
// Conditions may be written in either order: an equality whose first column
// belongs to the step's table is flipped so the step's table is on the right.
func (r Request) Build() (Query, error) {
	table, alias, err := parseTableAlias(strings.Fields(r.From))
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}

	var q Query = Scan{Table: table, Alias: alias}
	for i, step := range r.Joins {
		q, err = step.apply(q)
		if err != nil {
			return nil, fmt.Errorf("join %d (%s): %w", i+1, step.Table, err)
		}
	}

	if err := Validate(q).Err(); err != nil {
		return nil, err
	}
	return q, nil
}

func (s Step) apply(left Query) (Query, error) {
	if s.Table == "" {
		return nil, fmt.Errorf("step without table")
	}
	right := Scan{Table: s.Table, Alias: s.As}

	on := make([]Equal, 0, len(s.On))
	for _, cond := range s.On {
		eq, err := parseEqual(cond)
		if err != nil {
			return nil, err
		}
		if eq.Left.Alias == right.Name() && eq.Right.Alias != right.Name() {
			eq.Left, eq.Right = eq.Right, eq.Left
		}
		on = append(on, eq)
	}

	switch s.Kind {
	case StepCrossApply, StepOuterApply:
		return Apply{
			Outer: s.Kind == StepOuterApply,
			Left:  left,
			Right: right,
			On:    on,
			Limit: s.Limit,
		}, nil
	}

	kind := JoinKind(s.Kind)
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown join kind %q", s.Kind)
	}
	if s.Limit != 0 {
		return nil, fmt.Errorf("limit only applies to %s and %s", StepCrossApply, StepOuterApply)
	}
	return Join{Kind: kind, Left: left, Right: right, On: on}, nil
}

// ParseStep parses the command-line form of a step:
//
//	<kind> [join] <table> [as <alias>] [on <a.x> = <b.y> [and ...]] [limit <n>]
//
// kind is left, right, full, cross, cross_apply or outer_apply.
func ParseStep(s string) (Step, error) {
	tokens := strings.Fields(strings.ReplaceAll(s, "=", " = "))
	if len(tokens) < 2 {
		return Step{}, fmt.Errorf("step %q: want <kind> <table>", s)
	}

	step := Step{Kind: strings.ToLower(tokens[0])}
	tokens = tokens[1:]
	if strings.EqualFold(tokens[0], "join") {
		tokens = tokens[1:]
	}

	onAt := indexFold(tokens, "on")
	limitAt := indexFold(tokens, "limit")
	tableEnd := len(tokens)
	if onAt >= 0 {
		tableEnd = onAt
	} else if limitAt >= 0 {
		tableEnd = limitAt
	}

	var err error
	step.Table, step.As, err = parseTableAlias(tokens[:tableEnd])
	if err != nil {
		return Step{}, fmt.Errorf("step %q: %w", s, err)
	}

	if limitAt >= 0 {
		if limitAt != len(tokens)-2 {
			return Step{}, fmt.Errorf("step %q: limit takes one number and must come last", s)
		}
		step.Limit, err = strconv.Atoi(tokens[limitAt+1])
		if err != nil {
			return Step{}, fmt.Errorf("step %q: bad limit: %w", s, err)
		}
	}

	if onAt >= 0 {
		end := len(tokens)
		if limitAt > onAt {
			end = limitAt
		}
		for _, cond := range splitFold(tokens[onAt+1:end], "and") {
			if len(cond) != 3 || cond[1] != "=" {
				return Step{}, fmt.Errorf("step %q: condition %q must be <a.x> = <b.y>", s, strings.Join(cond, " "))
			}
			step.On = append(step.On, cond[0]+" = "+cond[2])
		}
	}
	return step, nil
}

func parseTableAlias(tokens []string) (table, alias string, err error) {
	switch {
	case len(tokens) == 1:
		return tokens[0], "", nil
	case len(tokens) == 2 && !strings.EqualFold(tokens[1], "as"):
		return tokens[0], tokens[1], nil
	case len(tokens) == 3 && strings.EqualFold(tokens[1], "as"):
		return tokens[0], tokens[2], nil
	}
	return "", "", fmt.Errorf("want <table> [as <alias>], got %q", strings.Join(tokens, " "))
}

func parseEqual(s string) (Equal, error) {
	lhs, rhs, ok := strings.Cut(s, "=")
	if !ok {
		return Equal{}, fmt.Errorf("condition %q must be <a.x> = <b.y>", s)
	}
	left, err := ParseColumnRef(lhs)
	if err != nil {
		return Equal{}, err
	}
	right, err := ParseColumnRef(rhs)
	if err != nil {
		return Equal{}, err
	}
	return Equal{Left: left, Right: right}, nil
}

func indexFold(tokens []string, word string) int {
	return slices.IndexFunc(tokens, func(t string) bool { return strings.EqualFold(t, word) })
}

func splitFold(tokens []string, sep string) [][]string {
	var parts [][]string
	start := 0
	for i, t := range tokens {
		if strings.EqualFold(t, sep) {
			parts = append(parts, tokens[start:i])
			start = i + 1
		}
	}
	return append(parts, tokens[start:])
}
