package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/joinq/internal/dataset"
	"github.com/roach88/joinq/internal/engine"
	"github.com/roach88/joinq/internal/queryir"
	"github.com/roach88/joinq/internal/store"
	"github.com/roach88/joinq/internal/testutil"
)

// Harness runs the engines of one scenario with deterministic trace IDs.
type Harness struct {
	data   *dataset.Dataset
	traces *testutil.SequentialTraceGenerator
	logger *slog.Logger
}

// Run executes a scenario on each of its engines and checks its
// expectations.
//
// Each engine reads the data in isolation; the sqlite engine uses a fresh
// in-memory database. The returned error reports a scenario that could not
// run at all (unreadable data, no database); failed expectations are
// reported in the result.
//
// Execution flow:
// 1. Load the dataset
// 2. Build the request (a build failure is an INVALID_REQUEST on every engine)
// 3. Execute and realize the rows on each engine
// 4. Check expectations per engine, then across engines
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	data, err := loadData(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	h := &Harness{
		data:   data,
		traces: testutil.NewSequentialTraceGenerator(scenario.Name),
		logger: slog.Default().With("scenario", scenario.Name),
	}

	result := NewResult()
	q, buildErr := scenario.Request.Build()

	for _, name := range scenario.engines() {
		var er EngineResult
		if buildErr != nil {
			er = EngineResult{
				Engine:    name,
				ErrorCode: string(engine.ErrCodeInvalidRequest),
				Error:     buildErr.Error(),
			}
		} else if er, err = h.runEngine(ctx, name, q); err != nil {
			return nil, fmt.Errorf("engine %s: %w", name, err)
		}

		result.Engines = append(result.Engines, er)
		for _, msg := range evaluateExpect(scenario.Expect, er) {
			result.AddError(msg)
		}
	}

	if scenario.Expect.EnginesAgree {
		for _, msg := range assertEnginesAgree(result.Engines) {
			result.AddError(msg)
		}
	}

	h.logger.Debug("scenario finished", "pass", result.Pass, "errors", len(result.Errors))
	return result, nil
}

func loadData(s *Scenario) (*dataset.Dataset, error) {
	if s.Data != "" {
		return dataset.Load(s.Data)
	}
	return dataset.FromSpecs(s.Tables)
}

// runEngine executes q on one backend and realizes its rows. Request and
// backend failures are recorded in the EngineResult, not returned.
func (h *Harness) runEngine(ctx context.Context, name string, q queryir.Query) (EngineResult, error) {
	var backend engine.Backend
	switch name {
	case EngineMemory:
		backend = engine.New(h.data, engine.WithTraceIDs(h.traces))
	case EngineSQLite:
		st, err := store.Open(":memory:")
		if err != nil {
			return EngineResult{}, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
		if _, err := h.data.ImportInto(ctx, st); err != nil {
			return EngineResult{}, fmt.Errorf("failed to import data: %w", err)
		}
		backend = engine.NewSQLite(st, engine.WithTraceIDs(h.traces))
	default:
		return EngineResult{}, fmt.Errorf("unknown engine %q", name)
	}

	out := EngineResult{Engine: name}
	res, err := backend.Execute(ctx, q)
	if err == nil {
		out.TraceID = res.TraceID
		out.Columns = res.Columns
		out.SQL = res.SQL
		out.Rows, err = res.Rows.Collect(ctx)
	}
	if err != nil {
		var ee *engine.ExecError
		if !errors.As(err, &ee) {
			ee = &engine.ExecError{Code: engine.ErrCodeBackend, Backend: name, Err: err}
		}
		out.ErrorCode = string(ee.Code)
		out.Error = ee.Error()
		out.Rows = nil
	}

	h.logger.Debug("engine finished",
		"engine", name,
		"trace_id", out.TraceID,
		"rows", len(out.Rows),
		"error_code", out.ErrorCode,
	)
	return out, nil
}
