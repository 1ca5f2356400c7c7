package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/joinq/internal/queryir"
	"github.com/roach88/joinq/query"
)

// ExplainOutput is the JSON payload of the explain command.
type ExplainOutput struct {
	Backend  string   `json:"backend"`
	Request  []string `json:"request"`
	Warnings []string `json:"warnings"`
	Columns  []string `json:"columns"`
	Plan     []string `json:"plan"`
	SQL      string   `json:"sql,omitempty"`
	Params   []any    `json:"params,omitempty"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JoinOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show how a join request runs",
		Long: `Show a join request as a tree, the primitive operators it is
rewritten into, and for the sqlite engine the compiled statement.

No rows are read.

Examples:
  joinq explain --data shop.yaml --from "users as u" --join "full orders as o on u.id = o.user_id"
  joinq explain --data shop.yaml --engine sqlite --from "users as u" --join "outer_apply orders as o on u.id = o.user_id limit 2"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd.Context(), opts, cmd)
		},
	}

	opts.bindRequest(cmd)
	opts.bindData(cmd)
	return cmd
}

func runExplain(ctx context.Context, opts *JoinOptions, cmd *cobra.Command) error {
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

	out := ExplainOutput{
		Backend:  res.Backend,
		Request:  splitLines(queryir.Render(q)),
		Warnings: queryir.Validate(q).Warnings,
		Columns:  res.Columns,
		Plan:     splitLines(query.Explain(res.Rows.Plan())),
		SQL:      res.SQL,
		Params:   res.Params,
	}
	if f.Format == "json" {
		return f.SuccessWithTrace(out, res.TraceID)
	}
	return f.SuccessWithTrace(explainText(out), res.TraceID)
}

func explainText(out ExplainOutput) string {
	var b strings.Builder
	section := func(title string, lines []string) {
		fmt.Fprintf(&b, "%s:\n", title)
		for _, l := range lines {
			fmt.Fprintf(&b, "  %s\n", l)
		}
	}

	section("Request", out.Request)
	if len(out.Warnings) > 0 {
		warnings := make([]string, len(out.Warnings))
		for i, w := range out.Warnings {
			warnings[i] = "- " + w
		}
		section("Warnings", warnings)
	}
	section("Columns", []string{strings.Join(out.Columns, ", ")})
	section(fmt.Sprintf("Plan (%s)", out.Backend), out.Plan)
	if out.SQL != "" {
		section("SQL", []string{out.SQL})
		if len(out.Params) > 0 {
			section("Params", []string{fmt.Sprint(out.Params...)})
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}
