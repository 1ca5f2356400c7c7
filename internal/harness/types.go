package harness

import (
	"github.com/roach88/joinq/internal/ir"
)

// EngineResult is what one backend produced for a scenario.
type EngineResult struct {
	Engine  string `json:"engine"`
	TraceID string `json:"trace_id,omitempty"`

	Columns []string      `json:"columns"`
	Rows    []ir.IRObject `json:"rows"`

	// SQL is the compiled statement (sqlite only).
	SQL string `json:"sql,omitempty"`

	// ErrorCode is set when the backend rejected the request.
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation held on every engine.
	Pass bool `json:"pass"`

	// Engines holds one entry per engine, in scenario order.
	Engines []EngineResult `json:"engines"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Engines: []EngineResult{},
		Errors:  []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
