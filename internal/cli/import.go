package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/gridview/internal/source/sqlsource"
	"github.com/roach88/gridview/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
	View     string
}

// ImportResult is the JSON payload of import.
type ImportResult struct {
	View     string `json:"view"`
	Imported int    `json:"imported"`
	Total    int    `json:"total"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <records.json>",
		Short: "Import records into a local SQLite source",
		Long: `Import JSON records into the records table of a SQLite database.

The file holds an array of objects, or an object with the array under
"results" or "tasks". Every record needs an "id". Records that already
exist are replaced and keep their original position. Use "-" to read
from stdin.

Example:
  gridview import --db ./grid.db --view tasks ./tasks.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.View, "view", "", "view id the records belong to (required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("view")

	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.logger()

	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			_ = formatter.Error(ErrCodeIO, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open records", err)
		}
		defer f.Close()
		r = f
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeIO, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := commandContext(cmd)
	n, err := sqlsource.Import(ctx, st, opts.View, r)
	if err != nil {
		_ = formatter.Error(ErrCodeImport, err.Error(), nil)
		return WrapExitError(ExitCommandError, "import failed", err)
	}
	log.Debug("records imported", "view", opts.View, "count", n, "db", opts.Database)

	total, err := st.CountRecords(ctx, opts.View)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to count records", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(ImportResult{View: opts.View, Imported: n, Total: total})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records into %s (%d total)\n", n, opts.View, total)
	return nil
}
