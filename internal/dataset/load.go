package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/joinq/internal/ir"
)

// Format is a dataset file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCUE  Format = "cue"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".cue":
		return FormatCUE, nil
	}
	return "", fmt.Errorf("%s: unsupported dataset extension (want .yaml, .yml, .json or .cue)", path)
}

// LoadError reports a problem in a dataset file, with a position when the
// decoder provides one.
type LoadError struct {
	File    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// document is the top level of every format.
type document struct {
	Tables map[string]TableSpec `yaml:"tables" json:"tables"`
}

// Load reads a dataset file, choosing the decoder by extension.
func Load(path string) (*Dataset, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return Parse(data, format, path)
}

// Parse decodes dataset bytes. name is used in error messages.
func Parse(data []byte, format Format, name string) (*Dataset, error) {
	var (
		d   *Dataset
		err error
	)
	switch format {
	case FormatYAML:
		d, err = parseYAML(data)
	case FormatJSON:
		d, err = parseJSON(data)
	case FormatCUE:
		d, err = parseCUE(data, name)
	default:
		return nil, fmt.Errorf("unknown dataset format %q", format)
	}
	if err != nil {
		if _, ok := err.(*LoadError); ok {
			return nil, err
		}
		return nil, &LoadError{File: name, Message: err.Error()}
	}
	return d, nil
}

func parseYAML(data []byte) (*Dataset, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if doc.Tables == nil {
		return nil, fmt.Errorf("no tables defined")
	}
	return FromSpecs(doc.Tables)
}

func parseJSON(data []byte) (*Dataset, error) {
	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	if doc.Tables == nil {
		return nil, fmt.Errorf("no tables defined")
	}
	return FromSpecs(doc.Tables)
}

// parseCUE evaluates a CUE file and walks its concrete value. CUE may use
// definitions and references to build rows; only the evaluated result
// matters.
func parseCUE(data []byte, name string) (*Dataset, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, cueError(name, err)
	}

	tablesVal := v.LookupPath(cue.ParsePath("tables"))
	if !tablesVal.Exists() {
		return nil, &LoadError{File: name, Message: "no tables defined", Pos: v.Pos()}
	}
	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, cueError(name, err)
	}

	var tables []Table
	for iter.Next() {
		t, err := cueTable(name, iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return New(tables...)
}

func cueTable(file, name string, v cue.Value) (Table, error) {
	t := Table{Name: name}

	if colsVal := v.LookupPath(cue.ParsePath("columns")); colsVal.Exists() {
		list, err := colsVal.List()
		if err != nil {
			return Table{}, cueError(file, err)
		}
		for list.Next() {
			col, err := list.Value().String()
			if err != nil {
				return Table{}, cueError(file, err)
			}
			t.Columns = append(t.Columns, col)
		}
	}

	rowsVal := v.LookupPath(cue.ParsePath("rows"))
	if !rowsVal.Exists() {
		return t, nil
	}
	list, err := rowsVal.List()
	if err != nil {
		return Table{}, cueError(file, err)
	}
	for list.Next() {
		row, err := cueValue(file, list.Value())
		if err != nil {
			return Table{}, err
		}
		obj, ok := row.(ir.IRObject)
		if !ok {
			return Table{}, &LoadError{File: file, Message: fmt.Sprintf("table %q: rows must be structs", name), Pos: list.Value().Pos()}
		}
		t.Rows = append(t.Rows, obj)
	}
	return t, nil
}

// cueValue converts a concrete CUE value to an ir.IRValue.
func cueValue(file string, v cue.Value) (ir.IRValue, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(file, err)
	}

	switch v.Kind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, cueError(file, err)
		}
		return ir.IRBool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, cueError(file, err)
		}
		return ir.IRInt(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, cueError(file, err)
		}
		return ir.IRString(s), nil
	case cue.ListKind:
		list, err := v.List()
		if err != nil {
			return nil, cueError(file, err)
		}
		arr := ir.IRArray{}
		for list.Next() {
			elem, err := cueValue(file, list.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		fields, err := v.Fields()
		if err != nil {
			return nil, cueError(file, err)
		}
		obj := ir.IRObject{}
		for fields.Next() {
			elem, err := cueValue(file, fields.Value())
			if err != nil {
				return nil, err
			}
			obj[fields.Selector().Unquoted()] = elem
		}
		return obj, nil
	case cue.FloatKind:
		return nil, &LoadError{File: file, Message: "float values are forbidden, use int or string", Pos: v.Pos()}
	}
	return nil, &LoadError{File: file, Message: fmt.Sprintf("unsupported CUE kind %s", v.Kind()), Pos: v.Pos()}
}

// cueError keeps the first CUE error and its position.
func cueError(file string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{File: file, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{File: file, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
