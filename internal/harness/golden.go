package harness

import (
	"context"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/joinq/internal/ir"
)

// Snapshot renders an engine result for golden comparison: a canonical JSON
// header line, then one canonical JSON line per row in result order.
//
// Trace IDs and SQL are left out so snapshots do not depend on the
// backend's internals.
func Snapshot(scenarioName string, r EngineResult) []byte {
	cols := make(ir.IRArray, len(r.Columns))
	for i, c := range r.Columns {
		cols[i] = ir.IRString(c)
	}
	header := ir.IRObject{
		"scenario": ir.IRString(scenarioName),
		"columns":  cols,
	}
	if r.ErrorCode != "" {
		header["error_code"] = ir.IRString(r.ErrorCode)
	}

	buf := ir.AppendCanonical(nil, header)
	buf = append(buf, '\n')
	for _, row := range r.Rows {
		buf = ir.AppendCanonical(buf, row)
		buf = append(buf, '\n')
	}
	return buf
}

// RunWithGolden executes a scenario, fails the test on unmet expectations,
// and compares the first engine's rows against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the rows don't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already computed result against its golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	if len(result.Engines) == 0 {
		return fmt.Errorf("scenario %s: no engine results", scenarioName)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(scenarioName, result.Engines[0]))
	return nil
}
