package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/joinq/internal/dataset"
	"github.com/roach88/joinq/internal/engine"
	"github.com/roach88/joinq/internal/queryir"
	"github.com/roach88/joinq/internal/store"
)

// Engine names accepted by --engine.
const (
	engineMemory = "memory"
	engineSQLite = "sqlite"
)

// SourceOptions are the flags shared by commands that run a request: where
// the tables come from, which backend runs it, and the request itself.
type SourceOptions struct {
	Data     string   // dataset file (.yaml, .yml, .json, .cue)
	Database string   // SQLite database
	Engine   string   // "memory" | "sqlite"
	Request  string   // request file (YAML or JSON)
	From     string   // "users as u"
	Joins    []string // "left orders as o on u.id = o.user_id"
}

func (o *SourceOptions) bindRequest(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Request, "request", "", "request file (YAML or JSON)")
	cmd.Flags().StringVar(&o.From, "from", "", `first table, e.g. "users as u"`)
	cmd.Flags().StringArrayVar(&o.Joins, "join", nil,
		`join step, repeatable, e.g. "left orders as o on u.id = o.user_id"`)
}

func (o *SourceOptions) bindData(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Data, "data", "", "dataset file (.yaml, .yml, .json, .cue)")
	cmd.Flags().StringVar(&o.Database, "db", "", "SQLite database")
	cmd.Flags().StringVar(&o.Engine, "engine", engineMemory, "backend (memory|sqlite)")
}

// buildRequest reads the request from --request or from --from/--join.
func (o *SourceOptions) buildRequest() (queryir.Request, error) {
	switch {
	case o.Request != "" && (o.From != "" || len(o.Joins) > 0):
		return queryir.Request{}, errors.New("--request excludes --from and --join")
	case o.Request != "":
		return readRequest(o.Request)
	case o.From == "":
		return queryir.Request{}, errors.New("--from or --request is required")
	}

	req := queryir.Request{From: o.From}
	for i, s := range o.Joins {
		step, err := queryir.ParseStep(s)
		if err != nil {
			return queryir.Request{}, fmt.Errorf("--join %d: %w", i+1, err)
		}
		req.Joins = append(req.Joins, step)
	}
	return req, nil
}

// readRequest decodes a request file. JSON is read as YAML.
func readRequest(path string) (queryir.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return queryir.Request{}, fmt.Errorf("failed to read request file: %w", err)
	}
	var req queryir.Request
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return queryir.Request{}, fmt.Errorf("failed to parse request file: %w", err)
	}
	return req, nil
}

// sourceError is a failure to open the tables, reported with its CLI code.
type sourceError struct {
	code string
	exit int
	err  error
}

func (e *sourceError) Error() string { return e.err.Error() }
func (e *sourceError) Unwrap() error { return e.err }

// openBackend opens the tables and the chosen backend. close releases the
// database, if any.
//
//	--engine memory --data f   combinators over the dataset
//	--engine memory --db f     combinators over the database tables
//	--engine sqlite --db f     SQL in the database
//	--engine sqlite --data f   SQL in an in-memory copy of the dataset
func (o *SourceOptions) openBackend(ctx context.Context, traces engine.TraceIDGenerator) (b engine.Backend, closeFn func(), err error) {
	closeFn = func() {}
	if o.Engine != engineMemory && o.Engine != engineSQLite {
		return nil, closeFn, &sourceError{ErrCodeGeneric, ExitCommandError,
			fmt.Errorf("invalid engine %q: must be memory or sqlite", o.Engine)}
	}
	switch {
	case o.Data == "" && o.Database == "":
		return nil, closeFn, &sourceError{ErrCodeGeneric, ExitCommandError, errors.New("--data or --db is required")}
	case o.Data != "" && o.Database != "":
		return nil, closeFn, &sourceError{ErrCodeGeneric, ExitCommandError, errors.New("--data and --db are mutually exclusive")}
	}

	opt := engine.WithTraceIDs(traces)

	if o.Data != "" {
		ds, err := loadDataset(o.Data)
		if err != nil {
			return nil, closeFn, err
		}
		if o.Engine == engineMemory {
			return engine.New(ds, opt), closeFn, nil
		}
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, closeFn, &sourceError{ErrCodeDatabase, ExitCommandError, err}
		}
		if _, err := ds.ImportInto(ctx, st); err != nil {
			st.Close()
			return nil, closeFn, &sourceError{ErrCodeImportFailed, ExitCommandError, err}
		}
		return engine.NewSQLite(st, opt), func() { st.Close() }, nil
	}

	if _, err := os.Stat(o.Database); err != nil {
		return nil, closeFn, &sourceError{ErrCodeNotFound, ExitCommandError,
			fmt.Errorf("database not found: %s", o.Database)}
	}
	st, err := store.Open(o.Database)
	if err != nil {
		return nil, closeFn, &sourceError{ErrCodeDatabase, ExitCommandError, err}
	}
	closeFn = func() { st.Close() }
	if o.Engine == engineMemory {
		return engine.New(st, opt), closeFn, nil
	}
	return engine.NewSQLite(st, opt), closeFn, nil
}

func loadDataset(path string) (*dataset.Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &sourceError{ErrCodeNotFound, ExitCommandError, fmt.Errorf("data file not found: %s", path)}
	}
	ds, err := dataset.Load(path)
	if err != nil {
		return nil, &sourceError{ErrCodeDataLoad, ExitCommandError, err}
	}
	return ds, nil
}

// failSource reports an openBackend or loadDataset error.
func failSource(f *OutputFormatter, err error) error {
	var se *sourceError
	if errors.As(err, &se) {
		return f.Fail(se.exit, se.code, se.err.Error(), nil)
	}
	return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
}
