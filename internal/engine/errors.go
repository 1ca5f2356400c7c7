package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/joinq/internal/querysql"
	"github.com/roach88/joinq/internal/queryir"
)

// ExecError represents a request a backend could not prepare.
//
// ExecError carries a stable code for callers that branch on the failure
// (the CLI maps codes to exit statuses, the harness reports them).
type ExecError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Backend names the backend that failed ("memory", "sqlite").
	Backend string

	// Err is the underlying error.
	Err error
}

// ErrorCode categorizes execution errors.
type ErrorCode string

const (
	// ErrCodeInvalidRequest indicates the request failed validation.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// ErrCodeUnknownTable indicates a table is missing from the catalog.
	ErrCodeUnknownTable ErrorCode = "UNKNOWN_TABLE"

	// ErrCodeUnknownColumn indicates a join condition names a missing column.
	ErrCodeUnknownColumn ErrorCode = "UNKNOWN_COLUMN"

	// ErrCodeUnsupported indicates the backend cannot run this request shape.
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED"

	// ErrCodeBackend indicates any other backend failure.
	ErrCodeBackend ErrorCode = "BACKEND"
)

// Error implements the error interface.
func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %s backend: %v", e.Code, e.Backend, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecError) Unwrap() error {
	return e.Err
}

// IsUnsupported returns true if the error is an unsupported request shape.
// Uses errors.As to handle wrapped errors.
func IsUnsupported(err error) bool {
	var ee *ExecError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeUnsupported
	}
	return false
}

// newExecError classifies err by the sentinel errors it wraps.
func newExecError(backend string, err error) *ExecError {
	var ee *ExecError
	if errors.As(err, &ee) {
		return ee
	}

	code := ErrCodeBackend
	var ve *queryir.ValidationError
	switch {
	case errors.As(err, &ve):
		code = ErrCodeInvalidRequest
	case errors.Is(err, queryir.ErrUnknownTable):
		code = ErrCodeUnknownTable
	case errors.Is(err, queryir.ErrUnknownColumn):
		code = ErrCodeUnknownColumn
	case errors.Is(err, querysql.ErrUnsupported):
		code = ErrCodeUnsupported
	}
	return &ExecError{Code: code, Backend: backend, Err: err}
}
