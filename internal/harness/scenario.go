package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/joinq/internal/dataset"
	"github.com/roach88/joinq/internal/queryir"
)

// Engine names accepted in scenarios.
const (
	EngineMemory = "memory"
	EngineSQLite = "sqlite"
)

// DefaultEngines run when a scenario lists none.
var DefaultEngines = []string{EngineMemory, EngineSQLite}

// Scenario defines one join request over a dataset and what it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Data is a dataset file, relative to the scenario file.
	// Exactly one of Data and Tables is set.
	Data string `yaml:"data,omitempty"`

	// Tables is an inline dataset.
	Tables map[string]dataset.TableSpec `yaml:"tables,omitempty"`

	// Request is the join request under test.
	Request queryir.Request `yaml:"request"`

	// Engines lists the backends to run. Defaults to DefaultEngines.
	Engines []string `yaml:"engines,omitempty"`

	// Expect holds the expectations checked on every engine.
	Expect Expect `yaml:"expect"`
}

// Expect lists what the result rows must satisfy. Row maps are keyed by
// qualified column ("u.name").
type Expect struct {
	// RowCount is the exact number of rows.
	RowCount *int `yaml:"row_count,omitempty"`

	// Rows is the exact multiset of rows. Columns left out of an entry
	// must be null.
	Rows []map[string]any `yaml:"rows,omitempty"`

	// Contains lists partial rows; each must match at least one row on the
	// columns it names.
	Contains []map[string]any `yaml:"contains,omitempty"`

	// EnginesAgree requires every engine to return the same multiset.
	EnginesAgree bool `yaml:"engines_agree,omitempty"`

	// Error is the error code every engine must fail with
	// ("UNSUPPORTED", "UNKNOWN_TABLE", ...). Row expectations are not
	// checked for engines that fail.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative data path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Data != "" && !filepath.IsAbs(scenario.Data) {
		scenario.Data = filepath.Join(filepath.Dir(path), scenario.Data)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file
// name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var scenarios []*Scenario
	names := map[string]string{}
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if prev, dup := names[s.Name]; dup {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", path, s.Name, prev)
		}
		names[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Data == "" && len(s.Tables) == 0:
		return fmt.Errorf("data or tables is required")
	case s.Data != "" && len(s.Tables) > 0:
		return fmt.Errorf("data and tables are mutually exclusive")
	}
	if s.Data != "" {
		if _, err := os.Stat(s.Data); os.IsNotExist(err) {
			return fmt.Errorf("data file not found: %s", s.Data)
		}
	}

	if s.Request.From == "" {
		return fmt.Errorf("request.from is required")
	}

	for i, e := range s.Engines {
		if e != EngineMemory && e != EngineSQLite {
			return fmt.Errorf("engines[%d]: unknown engine %q", i, e)
		}
		if slices.Index(s.Engines, e) != i {
			return fmt.Errorf("engines[%d]: %q listed twice", i, e)
		}
	}

	x := s.Expect
	if x.RowCount != nil && *x.RowCount < 0 {
		return fmt.Errorf("expect.row_count must be non-negative")
	}
	if x.RowCount == nil && x.Rows == nil && len(x.Contains) == 0 && !x.EnginesAgree && x.Error == "" {
		return fmt.Errorf("expect must state at least one expectation")
	}
	if x.Error != "" && (x.RowCount != nil || x.Rows != nil || len(x.Contains) > 0) {
		return fmt.Errorf("expect.error excludes row expectations")
	}
	return nil
}

// engines returns the engines to run, defaulting to both.
func (s *Scenario) engines() []string {
	if len(s.Engines) == 0 {
		return DefaultEngines
	}
	return s.Engines
}
