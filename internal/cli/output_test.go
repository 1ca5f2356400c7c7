package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/joinq/internal/engine"
	"github.com/roach88/joinq/internal/queryir"
	"github.com/roach88/joinq/internal/querysql"
)

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "missing")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "missing"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestExitError(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "failed to import data", cause)
	assert.Equal(t, "failed to import data: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "just a message", NewExitError(ExitFailure, "just a message").Error())
}

func TestOutputFormatter_FailJSON(t *testing.T) {
	out := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out}

	err := f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", errors.New("locked"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decode(t, out.String())
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, map[string]any{
		"code":    ErrCodeDatabase,
		"message": "failed to open database",
		"details": "locked",
	}, resp["error"])
}

func TestOutputFormatter_FailText(t *testing.T) {
	out := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: out, Verbose: true}

	_ = f.Fail(ExitFailure, ErrCodeGeneric, "something broke", errors.New("cause"))
	assert.Equal(t, "Error [E001]: something broke\nDetails: cause\n", out.String())
}

func TestOutputFormatter_SuccessWithTrace(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut, Verbose: true}

	require.NoError(t, f.SuccessWithTrace("done", "trace-1"))
	assert.Equal(t, "done\n", out.String())
	assert.Contains(t, errOut.String(), "trace_id: trace-1")

	out.Reset()
	f.Format = "json"
	require.NoError(t, f.SuccessWithTrace(map[string]int{"n": 1}, "trace-2"))
	resp := decode(t, out.String())
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "trace-2", resp["trace_id"])
}

func TestExecErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unknown table", &engine.ExecError{Code: engine.ErrCodeUnknownTable, Err: queryir.ErrUnknownTable}, ErrCodeUnknownTable},
		{"unknown column", &engine.ExecError{Code: engine.ErrCodeUnknownColumn, Err: queryir.ErrUnknownColumn}, ErrCodeUnknownColumn},
		{"unsupported", &engine.ExecError{Code: engine.ErrCodeUnsupported, Err: querysql.ErrUnsupported}, ErrCodeUnsupported},
		{"invalid", &engine.ExecError{Code: engine.ErrCodeInvalidRequest, Err: errors.New("bad")}, ErrCodeInvalidRequest},
		{"backend", &engine.ExecError{Code: engine.ErrCodeBackend, Err: errors.New("io")}, ErrCodeGeneric},
		{"not an exec error", errors.New("plain"), ErrCodeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, execErrorCode(tt.err))
		})
	}
}

func TestOutputFormatter_Table(t *testing.T) {
	out := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: out}

	f.Table([]string{"u.name", "o.item"}, [][]string{{"Ada", "book"}, {"Bob", "NULL"}})
	s := out.String()
	assert.Contains(t, s, "u.name")
	assert.Contains(t, s, "Ada")
	assert.Contains(t, s, "NULL")
}
