package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/joinq/internal/ir"
)

// JoinOptions holds flags for the join command.
type JoinOptions struct {
	*RootOptions
	SourceOptions
}

// JoinOutput is the JSON payload of the join command.
type JoinOutput struct {
	Backend string           `json:"backend"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	SQL     string           `json:"sql,omitempty"`
}

// NewJoinCommand creates the join command.
func NewJoinCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JoinOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Run a join request",
		Long: `Run a join request against a dataset file or a SQLite database.

A request starts from one table and adds join steps left to right:

  <kind> [join] <table> [as <alias>] [on <a.col> = <b.col> [and ...]] [limit <n>]

Kinds: left, right, full, cross, cross_apply, outer_apply.

Exit codes:
  0 - Request succeeded
  1 - Request failed (invalid request, unknown table or column, unsupported)
  2 - Command error (missing data, unreadable file, etc.)

Examples:
  joinq join --data shop.yaml --from "users as u" --join "left orders as o on u.id = o.user_id"
  joinq join --db shop.db --engine sqlite --from users --join "outer_apply orders on users.id = orders.user_id limit 1"
  joinq join --data shop.cue --request request.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(cmd.Context(), opts, cmd)
		},
	}

	opts.bindRequest(cmd)
	opts.bindData(cmd)
	return cmd
}

func runJoin(ctx context.Context, opts *JoinOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	req, err := opts.buildRequest()
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeInvalidRequest, err.Error(), nil)
	}
	q, err := req.Build()
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeInvalidRequest, err.Error(), nil)
	}

	backend, closeFn, err := opts.openBackend(ctx, opts.traceIDs())
	if err != nil {
		return failSource(f, err)
	}
	defer closeFn()

	res, err := backend.Execute(ctx, q)
	if err != nil {
		return f.FailExec(err)
	}
	rows, err := res.Rows.Collect(ctx)
	if err != nil {
		return f.FailExec(err)
	}
	f.VerboseLog("backend: %s, rows: %d", res.Backend, len(rows))
	if res.SQL != "" {
		f.VerboseLog("sql: %s", res.SQL)
	}

	if f.Format == "json" {
		out := JoinOutput{
			Backend: res.Backend,
			Columns: res.Columns,
			Rows:    make([]map[string]any, len(rows)),
			SQL:     res.SQL,
		}
		for i, row := range rows {
			out.Rows[i] = ir.ToGo(row).(map[string]any)
		}
		return f.SuccessWithTrace(out, res.TraceID)
	}

	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(res.Columns))
		for j, c := range res.Columns {
			cells[i][j] = ir.Format(row.Get(c))
		}
	}
	f.Table(res.Columns, cells)
	return f.SuccessWithTrace(rowCount(len(rows)), res.TraceID)
}

func rowCount(n int) string {
	if n == 1 {
		return "(1 row)"
	}
	return fmt.Sprintf("(%d rows)", n)
}

// splitLines drops the trailing newline of a rendered tree and splits it.
func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}
