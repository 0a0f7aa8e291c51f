package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/gridview/internal/column"
	"github.com/roach88/gridview/internal/viewdef"
)

// ValidationIssue is one problem found in a view definition.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult is the JSON payload of a successful validate.
type ValidationResult struct {
	Valid     bool                `json:"valid"`
	View      string              `json:"view"`
	Columns   []column.Descriptor `json:"columns"`
	PageSizes []int               `json:"page_sizes,omitempty"`
	Ordering  string              `json:"ordering,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <view-file>",
		Short: "Validate a view definition",
		Long: `Load a CUE, JSON or YAML view definition, normalize its columns and check
its page sizes, ordering and sort policy.

Exit codes:
  0 - Definition is valid
  2 - Definition is invalid or unreadable`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Errors are written by the formatter
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	formatter.VerboseLog("Loading view definition %s", path)

	def, err := viewdef.Load(path)
	if err != nil {
		return reportDefinitionError(formatter, path, err)
	}

	cols, err := def.ColumnStore()
	if err != nil {
		return reportDefinitionError(formatter, path, err)
	}
	visible := cols.VisibleOrdered()

	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{
			Valid:     true,
			View:      def.ID,
			Columns:   cols.All(),
			PageSizes: def.PageSizes,
			Ordering:  def.Ordering,
		})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ %s: %d columns, %d visible\n", def.ID, cols.Len(), len(visible))
	writeColumns(w, cols.All())
	return nil
}

// reportDefinitionError writes the problems behind err and returns the
// matching exit error.
func reportDefinitionError(f *OutputFormatter, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		_ = f.Error(ErrCodeIO, err.Error(), nil)
		return WrapExitError(ExitCommandError, "view definition not found", err)
	}

	issues := collectIssues(err)
	if f.IsJSON() {
		_ = f.Error(ErrCodeDefinition, fmt.Sprintf("%s is invalid", path), issues)
	} else {
		fmt.Fprintf(f.Writer, "✗ %s\n", path)
		for _, is := range issues {
			loc := is.Field
			if is.Line > 0 {
				loc += " (line " + strconv.Itoa(is.Line) + ")"
			}
			fmt.Fprintf(f.Writer, "  %s: %s\n", loc, is.Message)
		}
	}
	return WrapExitError(ExitCommandError, "invalid view definition", err)
}

// collectIssues flattens joined errors into one issue per structured
// problem. Errors without structure become a single "view" issue.
func collectIssues(err error) []ValidationIssue {
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		var out []ValidationIssue
		for _, inner := range e.Unwrap() {
			out = append(out, collectIssues(inner)...)
		}
		return out
	case *viewdef.DefinitionError:
		is := ValidationIssue{Field: e.Field, Message: e.Message}
		if e.Pos.IsValid() {
			is.Line = e.Pos.Line()
		}
		return []ValidationIssue{is}
	case *column.ConfigError:
		field := "columns[" + strconv.Itoa(e.Index) + "]"
		return []ValidationIssue{{Field: field, Message: e.Message, Code: string(e.Code)}}
	}

	if inner := errors.Unwrap(err); inner != nil {
		if sub := collectIssues(inner); structured(sub) {
			return sub
		}
	}
	return []ValidationIssue{{Field: "view", Message: err.Error()}}
}

func structured(issues []ValidationIssue) bool {
	for _, is := range issues {
		if is.Field != "view" || is.Code != "" {
			return true
		}
	}
	return false
}

func writeColumns(w io.Writer, cols []column.Descriptor) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPATH\tTYPE\tSORTABLE\tVISIBLE")
	for _, c := range cols {
		typ := c.Type
		if typ == "" {
			typ = "-"
		}
		path := c.Path()
		if path == "" {
			path = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%t\n", c.ID, c.Title, path, typ, c.Sortable, c.Visible)
	}
	tw.Flush()
}
