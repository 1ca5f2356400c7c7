package store

import (
	"fmt"

	"github.com/roach88/joinq/internal/ir"
)

// Declared column types.
const (
	TypeInteger = "INTEGER"
	TypeText    = "TEXT"
	TypeBoolean = "BOOLEAN"
	TypeJSON    = "JSON"
	TypeAny     = "" // only nulls were loaded
)

// Column is a column name and its declared type.
type Column struct {
	Name string
	Type string
}

// columnType returns the declared type for a value, TypeAny for null.
func columnType(v ir.IRValue) string {
	switch v.(type) {
	case ir.IRInt:
		return TypeInteger
	case ir.IRString:
		return TypeText
	case ir.IRBool:
		return TypeBoolean
	case ir.IRArray, ir.IRObject:
		return TypeJSON
	}
	return TypeAny
}

// encodeValue converts a value to a SQLite driver argument.
func encodeValue(v ir.IRValue) any {
	switch val := v.(type) {
	case ir.IRInt:
		return int64(val)
	case ir.IRString:
		return string(val)
	case ir.IRBool:
		if val {
			return int64(1)
		}
		return int64(0)
	case ir.IRArray, ir.IRObject:
		return string(ir.AppendCanonical(nil, val))
	}
	return nil
}

// decodeValue converts a scanned driver value back to an ir.IRValue using
// the column's declared type.
func decodeValue(typ string, raw any) (ir.IRValue, error) {
	if raw == nil {
		return ir.IRNull{}, nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}

	switch typ {
	case TypeInteger:
		if n, ok := raw.(int64); ok {
			return ir.IRInt(n), nil
		}
	case TypeText:
		if s, ok := raw.(string); ok {
			return ir.IRString(s), nil
		}
	case TypeBoolean:
		// The driver already converts BOOLEAN columns it can see the
		// declared type of; computed columns arrive as integers.
		switch b := raw.(type) {
		case bool:
			return ir.IRBool(b), nil
		case int64:
			return ir.IRBool(b != 0), nil
		}
	case TypeJSON:
		if s, ok := raw.(string); ok {
			v, err := ir.UnmarshalIRValue([]byte(s))
			if err != nil {
				return nil, fmt.Errorf("decode JSON column: %w", err)
			}
			return v, nil
		}
	default:
		return ir.FromGo(raw)
	}
	return nil, fmt.Errorf("%s column holds %T", typ, raw)
}

// inferColumns derives declared types from the loaded rows. A column mixing
// value types is an error.
func inferColumns(names []string, rows []ir.IRObject) ([]Column, error) {
	columns := make([]Column, len(names))
	index := make(map[string]int, len(names))
	for i, name := range names {
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("column %q is listed twice", name)
		}
		index[name] = i
		columns[i] = Column{Name: name, Type: TypeAny}
	}

	for n, row := range rows {
		for _, key := range row.SortedKeys() {
			i, ok := index[key]
			if !ok {
				return nil, fmt.Errorf("row %d: column %q is not declared", n+1, key)
			}
			typ := columnType(row[key])
			switch {
			case typ == TypeAny:
			case columns[i].Type == TypeAny:
				columns[i].Type = typ
			case columns[i].Type != typ:
				return nil, fmt.Errorf("row %d: column %q mixes %s and %s values", n+1, key, columns[i].Type, typ)
			}
		}
	}
	return columns, nil
}
