package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/joinq/internal/engine"
	"github.com/roach88/joinq/internal/queryir"
)

// ValidationOutput holds validation results.
type ValidationOutput struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	SourceOptions
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a join request without running it",
		Long: `Validate the structure of a join request: known kinds, unique aliases,
and join conditions that compare a left column with a right column.

With --data, tables and columns are also checked against the dataset.
No rows are read.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), opts, cmd)
		},
	}

	opts.bindRequest(cmd)
	cmd.Flags().StringVar(&opts.Data, "data", "", "dataset file to check tables and columns against")
	return cmd
}

func runValidate(ctx context.Context, opts *ValidateOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	req, err := opts.buildRequest()
	if err != nil {
		return outputValidation(f, ValidationOutput{Errors: []string{err.Error()}})
	}

	// Build validates too; collect the full result for its warnings.
	q, err := req.Build()
	var ve *queryir.ValidationError
	switch {
	case errors.As(err, &ve):
		return outputValidation(f, ValidationOutput{Errors: ve.Problems})
	case err != nil:
		return outputValidation(f, ValidationOutput{Errors: []string{err.Error()}})
	}
	result := queryir.Validate(q)
	out := ValidationOutput{Valid: true, Warnings: result.Warnings}

	if opts.Data != "" {
		ds, err := loadDataset(opts.Data)
		if err != nil {
			return failSource(f, err)
		}
		f.VerboseLog("checking tables against %s", opts.Data)
		if _, err := engine.New(ds, engine.WithTraceIDs(opts.traceIDs())).Execute(ctx, q); err != nil {
			out.Valid = false
			out.Errors = []string{err.Error()}
		}
	}
	return outputValidation(f, out)
}

func outputValidation(f *OutputFormatter, out ValidationOutput) error {
	out.Valid = len(out.Errors) == 0

	if f.Format == "json" {
		status := "ok"
		if !out.Valid {
			status = "error"
		}
		if err := f.encode(CLIResponse{Status: status, Data: out}); err != nil {
			return err
		}
	} else {
		var b strings.Builder
		if out.Valid {
			b.WriteString("✓ Request is valid")
		} else {
			fmt.Fprintf(&b, "✗ Request is invalid (%d error(s))", len(out.Errors))
			for _, e := range out.Errors {
				fmt.Fprintf(&b, "\n  error: %s", e)
			}
		}
		for _, w := range out.Warnings {
			fmt.Fprintf(&b, "\n  warning: %s", w)
		}
		fmt.Fprintln(f.Writer, b.String())
	}

	if !out.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(out.Errors)))
	}
	return nil
}
