package queryir

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Catalog lookups wrap these errors so callers can tell a bad request from
// a failing backend.
var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
)

// ValidationResult contains the structural analysis of a request.
type ValidationResult struct {
	// Errors lists problems that make the request unexecutable.
	Errors []string

	// Warnings lists legal constructs whose results may surprise, such as
	// full joins collapsing identical rows.
	Warnings []string
}

// Valid reports whether the request has no errors.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns the errors as a *ValidationError, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{Problems: r.Errors}
}

// ValidationError reports why a request cannot be executed.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Problems, "; ")
}

// Validate checks the structure of a request: known kinds, unique aliases,
// join conditions present where required and referring to the right sides.
// Column existence depends on the data and is checked by the backends.
//
// Validate is a pure function with no side effects.
func Validate(q Query) ValidationResult {
	v := &validator{
		errors:   []string{},
		warnings: []string{},
		seen:     map[string]bool{},
	}
	v.validateQuery(q)

	return ValidationResult{
		Errors:   v.errors,
		Warnings: v.warnings,
	}
}

// validator accumulates findings during traversal.
type validator struct {
	errors   []string
	warnings []string
	seen     map[string]bool
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	if q == nil {
		v.addError("nil query node")
		return
	}

	switch node := q.(type) {
	case Scan:
		v.validateScan(node)
	case Join:
		v.validateJoin(node)
	case Apply:
		v.validateApply(node)
	default:
		v.addError("unknown query type: %T", q)
	}
}

func (v *validator) validateScan(s Scan) {
	if s.Table == "" {
		v.addError("scan without table name")
		return
	}
	name := s.Name()
	if v.seen[name] {
		v.addError("alias %q is used more than once", name)
	}
	v.seen[name] = true
}

func (v *validator) validateJoin(j Join) {
	v.validateQuery(j.Left)
	v.validateQuery(j.Right)

	switch {
	case !j.Kind.Valid():
		v.addError("unknown join kind %q", j.Kind)
		return
	case j.Kind == KindCross && len(j.On) > 0:
		v.addError("cross join takes no join condition")
		return
	case j.Kind != KindCross && len(j.On) == 0:
		v.addError("%s join requires a join condition", j.Kind)
		return
	}

	v.validateOn(j.On, j.Left, j.Right)
	if j.Kind == KindFull {
		v.addWarning("full join collapses identical rows")
	}
}

func (v *validator) validateApply(a Apply) {
	v.validateQuery(a.Left)
	v.validateQuery(a.Right)

	if a.Limit < 0 {
		v.addError("apply limit must not be negative, got %d", a.Limit)
	}
	v.validateOn(a.On, a.Left, a.Right)
	if a.Limit == 0 {
		v.addWarning("apply without limit expands every matching row")
	}
}

// validateOn checks that each equality compares a left column to a right
// column, in that order.
func (v *validator) validateOn(on []Equal, left, right Query) {
	leftAliases := Aliases(left)
	rightAliases := Aliases(right)
	for _, eq := range on {
		if eq.Left.Alias == "" || eq.Left.Column == "" || eq.Right.Alias == "" || eq.Right.Column == "" {
			v.addError("condition %q must compare qualified columns", eq)
			continue
		}
		leftOK := slices.Contains(leftAliases, eq.Left.Alias)
		rightOK := slices.Contains(rightAliases, eq.Right.Alias)
		if leftOK && rightOK {
			continue
		}
		if slices.Contains(rightAliases, eq.Left.Alias) && slices.Contains(leftAliases, eq.Right.Alias) {
			v.addError("condition %q is reversed: write the left side first", eq)
			continue
		}
		if !leftOK {
			v.addError("condition %q: alias %q is not on the left side", eq, eq.Left.Alias)
		}
		if !rightOK {
			v.addError("condition %q: alias %q is not on the right side", eq, eq.Right.Alias)
		}
	}
}
