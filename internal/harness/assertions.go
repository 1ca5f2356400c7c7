package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/joinq/internal/ir"
)

// AssertionError is a failed expectation.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Expectation name, e.g. "row_count"
	Engine   string
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Rows     []ir.IRObject
}

// maxReportedRows bounds the rows printed with a failure.
const maxReportedRows = 20

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Engine != "" {
		fmt.Fprintf(&buf, " (%s)", e.Engine)
	}
	buf.WriteByte('\n')
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Rows) > 0 {
		fmt.Fprintf(&buf, "\nRows:\n")
		for i, row := range e.Rows {
			if i == maxReportedRows {
				fmt.Fprintf(&buf, "  ... %d more\n", len(e.Rows)-i)
				break
			}
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, ir.RowKey(row))
		}
	}
	return buf.String()
}

// evaluateExpect checks one engine's result and returns the failure
// messages.
func evaluateExpect(x Expect, r EngineResult) []string {
	var errs []error

	if x.Error != "" || r.ErrorCode != "" {
		if r.ErrorCode != x.Error {
			errs = append(errs, &AssertionError{
				Type:     "error",
				Engine:   r.Engine,
				Expected: describeCode(x.Error),
				Actual:   describeCode(r.ErrorCode) + describeErr(r.Error),
			})
		}
		// Row expectations need rows.
		return messages(errs)
	}

	if x.RowCount != nil && len(r.Rows) != *x.RowCount {
		errs = append(errs, &AssertionError{
			Type:     "row_count",
			Engine:   r.Engine,
			Expected: fmt.Sprintf("%d rows", *x.RowCount),
			Actual:   fmt.Sprintf("%d rows", len(r.Rows)),
			Rows:     r.Rows,
		})
	}
	if x.Rows != nil {
		if err := assertRows(x.Rows, r); err != nil {
			errs = append(errs, err)
		}
	}
	for i, partial := range x.Contains {
		if err := assertContains(i, partial, r); err != nil {
			errs = append(errs, err)
		}
	}
	return messages(errs)
}

// assertRows compares the rows as multisets. Expected rows are completed
// with nulls for the result columns they leave out.
func assertRows(expected []map[string]any, r EngineResult) error {
	want := make([]string, len(expected))
	for i, raw := range expected {
		row, err := convertRow(raw)
		if err != nil {
			return fmt.Errorf("expect.rows[%d]: %w", i, err)
		}
		for key := range row {
			if !slices.Contains(r.Columns, key) {
				return &AssertionError{
					Type:     "rows",
					Engine:   r.Engine,
					Expected: fmt.Sprintf("column %s in rows[%d]", key, i),
					Actual:   fmt.Sprintf("columns %v", r.Columns),
				}
			}
		}
		full := make(ir.IRObject, len(r.Columns))
		for _, c := range r.Columns {
			full[c] = row.Get(c)
		}
		want[i] = ir.RowKey(full)
	}

	got := make([]string, len(r.Rows))
	for i, row := range r.Rows {
		got[i] = ir.RowKey(row)
	}

	missing, unexpected := multisetDiff(want, got)
	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     "rows",
		Engine:   r.Engine,
		Expected: fmt.Sprintf("%d rows; missing %s", len(want), strings.Join(missing, " ")),
		Actual:   fmt.Sprintf("%d rows; unexpected %s", len(got), strings.Join(unexpected, " ")),
		Rows:     r.Rows,
	}
}

// assertContains checks that some row agrees with partial on every column
// partial names.
func assertContains(index int, partial map[string]any, r EngineResult) error {
	want, err := convertRow(partial)
	if err != nil {
		return fmt.Errorf("expect.contains[%d]: %w", index, err)
	}
	for _, row := range r.Rows {
		if matchRow(row, want) {
			return nil
		}
	}
	return &AssertionError{
		Type:     "contains",
		Engine:   r.Engine,
		Expected: fmt.Sprintf("a row matching %s", ir.RowKey(want)),
		Actual:   "not found",
		Rows:     r.Rows,
	}
}

// assertEnginesAgree compares every engine's rows with the first engine's,
// ignoring order. Engines that failed are compared by error code.
func assertEnginesAgree(results []EngineResult) []string {
	if len(results) < 2 {
		return nil
	}
	first := results[0]
	firstKeys := sortedRowKeys(first.Rows)

	var errs []error
	for _, r := range results[1:] {
		switch {
		case r.ErrorCode != first.ErrorCode:
			errs = append(errs, &AssertionError{
				Type:     "engines_agree",
				Engine:   r.Engine,
				Expected: fmt.Sprintf("%s like %s", describeCode(first.ErrorCode), first.Engine),
				Actual:   describeCode(r.ErrorCode) + describeErr(r.Error),
			})
		case !slices.Equal(first.Columns, r.Columns):
			errs = append(errs, &AssertionError{
				Type:     "engines_agree",
				Engine:   r.Engine,
				Expected: fmt.Sprintf("columns %v like %s", first.Columns, first.Engine),
				Actual:   fmt.Sprintf("columns %v", r.Columns),
			})
		default:
			missing, unexpected := multisetDiff(firstKeys, sortedRowKeys(r.Rows))
			if len(missing) > 0 || len(unexpected) > 0 {
				errs = append(errs, &AssertionError{
					Type:     "engines_agree",
					Engine:   r.Engine,
					Expected: fmt.Sprintf("rows of %s; missing %s", first.Engine, strings.Join(missing, " ")),
					Actual:   fmt.Sprintf("unexpected %s", strings.Join(unexpected, " ")),
					Rows:     r.Rows,
				})
			}
		}
	}
	return messages(errs)
}

func convertRow(raw map[string]any) (ir.IRObject, error) {
	v, err := ir.FromGo(raw)
	if err != nil {
		return nil, err
	}
	return v.(ir.IRObject), nil
}

// matchRow reports whether row has partial's values on partial's columns.
// A column missing from row counts as null.
func matchRow(row, partial ir.IRObject) bool {
	for key, want := range partial {
		if ir.Key(row.Get(key)) != ir.Key(want) {
			return false
		}
	}
	return true
}

func sortedRowKeys(rows []ir.IRObject) []string {
	keys := make([]string, len(rows))
	for i, row := range rows {
		keys[i] = ir.RowKey(row)
	}
	slices.Sort(keys)
	return keys
}

// multisetDiff returns the elements of want missing from got and the
// elements of got not in want, counting duplicates.
func multisetDiff(want, got []string) (missing, unexpected []string) {
	counts := make(map[string]int, len(want))
	for _, k := range want {
		counts[k]++
	}
	for _, k := range got {
		if counts[k] > 0 {
			counts[k]--
			continue
		}
		unexpected = append(unexpected, k)
	}
	for _, k := range want {
		if counts[k] > 0 {
			counts[k]--
			missing = append(missing, k)
		}
	}
	return missing, unexpected
}

func describeCode(code string) string {
	if code == "" {
		return "no error"
	}
	return "error " + code
}

func describeErr(msg string) string {
	if msg == "" {
		return ""
	}
	return " (" + msg + ")"
}

func messages(errs []error) []string {
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
