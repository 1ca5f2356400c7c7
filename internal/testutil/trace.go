package testutil

import (
	"fmt"
	"sync"
)

// FixedTraceGenerator returns the same trace ID every time.
//
// This enables golden comparison of JSON output, where trace_id would
// otherwise differ on every run.
//
// Thread-safety: FixedTraceGenerator is stateless and safe for concurrent use.
type FixedTraceGenerator struct {
	id string
}

// NewFixedTraceGenerator creates a new fixed trace ID generator.
//
// If id is empty, Generate() returns "test-trace-default".
func NewFixedTraceGenerator(id string) *FixedTraceGenerator {
	if id == "" {
		id = "test-trace-default"
	}
	return &FixedTraceGenerator{id: id}
}

// Generate returns the fixed trace ID.
//
// Implements engine.TraceIDGenerator interface.
func (g *FixedTraceGenerator) Generate() string {
	return g.id
}

// SequentialTraceGenerator numbers trace IDs: "<prefix>-1", "<prefix>-2", ...
//
// Unlike engine.FixedGenerator it never runs out, and it can be reset so the
// same scenario produces the same IDs on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialTraceGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequentialTraceGenerator creates a generator starting at 1.
func NewSequentialTraceGenerator(prefix string) *SequentialTraceGenerator {
	return &SequentialTraceGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialTraceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Reset restarts numbering. After Reset(), the next ID ends in -1.
func (g *SequentialTraceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
