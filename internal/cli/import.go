package cli

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/joinq/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
	Data     string
}

// ImportedTable is one table in the import command's output.
type ImportedTable struct {
	Table       string `json:"table"`
	Rows        int    `json:"rows"`
	ContentHash string `json:"content_hash"`
	Unchanged   bool   `json:"unchanged,omitempty"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load dataset tables into a SQLite database",
		Long: `Load every table of a dataset file into a SQLite database, creating the
database if it doesn't exist. Existing tables of the same name are replaced;
a table that already holds exactly the same rows is left untouched.

Without --data, lists the tables previously imported into the database.

Examples:
  joinq import --db ./shop.db --data ./shop.yaml
  joinq import --db ./shop.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Data, "data", "", "dataset file (.yaml, .yml, .json, .cue)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runImport(ctx context.Context, opts *ImportOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := store.Open(opts.Database)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	var tables []ImportedTable
	if opts.Data == "" {
		imports, err := st.Imports(ctx)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to list imports", err)
		}
		for _, imp := range imports {
			tables = append(tables, ImportedTable{Table: imp.Table, Rows: imp.Rows, ContentHash: imp.ContentHash})
		}
	} else {
		ds, err := loadDataset(opts.Data)
		if err != nil {
			return failSource(f, err)
		}
		results, err := ds.ImportInto(ctx, st)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeImportFailed, "failed to import data", err)
		}
		for _, res := range results {
			slog.Info("table imported",
				"table", res.Table,
				"rows", res.Rows,
				"unchanged", res.Unchanged)
			tables = append(tables, ImportedTable{
				Table:       res.Table,
				Rows:        res.Rows,
				ContentHash: res.ContentHash,
				Unchanged:   res.Unchanged,
			})
		}
	}
	if tables == nil {
		tables = []ImportedTable{}
	}

	if f.Format == "json" {
		return f.Success(tables)
	}

	rows := make([][]string, len(tables))
	for i, t := range tables {
		status := "imported"
		switch {
		case opts.Data == "":
			status = "-"
		case t.Unchanged:
			status = "unchanged"
		}
		rows[i] = []string{t.Table, strconv.Itoa(t.Rows), shortHash(t.ContentHash), status}
	}
	f.Table([]string{"table", "rows", "hash", "status"}, rows)
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
