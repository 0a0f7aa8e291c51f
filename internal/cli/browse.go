package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/roach88/gridview/internal/column"
	"github.com/roach88/gridview/internal/grid"
	"github.com/roach88/gridview/internal/prefs"
	"github.com/roach88/gridview/internal/projection"
	"github.com/roach88/gridview/internal/query"
	"github.com/roach88/gridview/internal/record"
	"github.com/roach88/gridview/internal/remote"
	"github.com/roach88/gridview/internal/source/httpsource"
	"github.com/roach88/gridview/internal/source/sqlsource"
	"github.com/roach88/gridview/internal/store"
	"github.com/roach88/gridview/internal/viewdef"
)

// maxCellWidth truncates cell text in the text table.
const maxCellWidth = 40

// Text layouts for browse output.
const (
	LayoutTable = "table"
	LayoutCards = "cards"
	LayoutPlain = "plain"
)

// BrowseOptions holds flags for the browse command.
type BrowseOptions struct {
	*RootOptions
	Database  string
	API       string
	Profile   string
	PrefsFile string
	CacheMB   int

	Page      int
	PageSize  int
	Order     string
	Filters   []string
	Select    []string
	SelectAll bool
	Refresh   bool
	Layout    string
}

// NewBrowseCommand creates the browse command.
func NewBrowseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BrowseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "browse <view-file>",
		Short: "Fetch and print one page of a view",
		Long: `Build the view from its definition, apply the requested page, page size,
ordering, filter and selection, and print the resulting page.

Records come from the SQLite database given by --db (see "gridview import")
or from a DataManager-compatible API given by --api. The API token is read
from $GRIDVIEW_TOKEN or the OS keyring entry of --profile.

Page size and ordering are remembered per view: in the --db database, or in
the bbolt file given by --prefs.

Examples:
  gridview browse --db ./grid.db views/tasks.yaml
  gridview browse --db ./grid.db views/tasks.yaml --order -n --page 2
  gridview browse --db ./grid.db views/tasks.yaml --filter "n>3" --filter "title~cat"
  gridview browse --api https://dm.example.com --prefs ./prefs.db views/tasks.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(opts, args[0], cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Database, "db", "", "path to SQLite database with imported records")
	f.StringVar(&opts.API, "api", "", "base URL of a record API")
	f.StringVar(&opts.Profile, "profile", "default", "keyring profile holding the API token")
	f.StringVar(&opts.PrefsFile, "prefs", "", "bbolt file for view preferences")
	f.IntVar(&opts.CacheMB, "cache-mb", 0, "cache page results in memory (MiB, 0 disables)")
	f.IntVar(&opts.Page, "page", 1, "page to show (clamped to the last page)")
	f.IntVar(&opts.PageSize, "page-size", 0, "page size (one of the view's page sizes)")
	f.StringVar(&opts.Order, "order", "", `ordering column, "-column" for descending, "none" to clear`)
	f.StringArrayVar(&opts.Filters, "filter", nil, `filter condition ("n>3", "title~cat", "done=true", "completed_at?")`)
	f.StringSliceVar(&opts.Select, "select", nil, "row ids to select")
	f.BoolVar(&opts.SelectAll, "select-all", false, "select every row of the result")
	f.BoolVar(&opts.Refresh, "refresh", false, "bypass the result cache")
	f.StringVar(&opts.Layout, "layout", LayoutTable, "text layout: table, cards or plain (cell capabilities)")
	cmd.MarkFlagsMutuallyExclusive("db", "api")

	return cmd
}

func runBrowse(opts *BrowseOptions, viewFile string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.logger()

	switch opts.Layout {
	case LayoutTable, LayoutCards, LayoutPlain:
	default:
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("unknown layout %q", opts.Layout), nil)
		return NewExitError(ExitCommandError, "invalid layout")
	}
	if opts.Database == "" && opts.API == "" {
		_ = formatter.Error(ErrCodeGeneric, "one of --db or --api is required", nil)
		return NewExitError(ExitCommandError, "no record source")
	}

	def, err := viewdef.Load(viewFile)
	if err != nil {
		return reportDefinitionError(formatter, viewFile, err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		src remote.Source
		st  *store.Store
	)
	if opts.API != "" {
		src, err = newHTTPSource(opts, def, log)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid API source", err)
		}
	} else {
		st, err = store.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeIO, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		src = sqlsource.New(st, sqlsource.WithLogger(log))
	}

	viewOpts := []grid.Option{grid.WithLogger(log)}
	if opts.CacheMB > 0 {
		viewOpts = append(viewOpts, grid.WithRemoteOptions(
			remote.WithCacheBytes(opts.CacheMB<<20),
			remote.WithLogger(log),
		))
	}
	switch {
	case opts.PrefsFile != "":
		bolt, err := prefs.OpenBolt(opts.PrefsFile)
		if err != nil {
			_ = formatter.Error(ErrCodeIO, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open preferences", err)
		}
		defer bolt.Close()
		viewOpts = append(viewOpts, grid.WithPrefs(bolt))
	case st != nil:
		viewOpts = append(viewOpts, grid.WithPrefs(prefs.NewSQLiteStore(st)))
	}

	v, err := def.NewView(ctx, src, viewOpts...)
	if err != nil {
		return reportDefinitionError(formatter, viewFile, err)
	}
	defer v.Close()

	if err := applyBrowseOps(v, opts, cmd); err != nil {
		_ = formatter.Error(ErrCodeOperation, err.Error(), nil)
		return WrapExitError(ExitCommandError, "view operation rejected", err)
	}

	snap := v.Snapshot()
	if snap.Status == grid.StatusError {
		_ = formatter.Error(ErrCodeFetch, snap.Error, map[string]any{"view": snap.View, "page": snap.Page})
		return NewExitError(ExitFailure, "fetch failed: "+snap.Error)
	}

	if formatter.IsJSON() {
		return formatter.Success(snap)
	}
	w := cmd.OutOrStdout()
	switch opts.Layout {
	case LayoutCards:
		writeCards(w, v.Columns(), snap)
	case LayoutPlain:
		writeStatus(w, snap)
		page := make([][]projection.CellInstruction, len(snap.Rows))
		for i, row := range snap.Rows {
			page[i] = row.Cells
		}
		fmt.Fprint(w, projection.Format(v.Columns(), page))
	default:
		writePage(w, snap)
	}
	return nil
}

func newHTTPSource(opts *BrowseOptions, def viewdef.Definition, log *slog.Logger) (*httpsource.Client, error) {
	token, err := httpsource.LookupToken(opts.Profile)
	if err != nil {
		log.Warn("keyring unavailable, continuing without a token", "profile", opts.Profile, "error", err)
	}

	clientOpts := []httpsource.Option{
		httpsource.WithToken(token),
		httpsource.WithLogger(log),
	}
	if def.ResultsPath != "" {
		clientOpts = append(clientOpts, httpsource.WithResultsPath(def.ResultsPath))
	}
	if def.CountPath != "" {
		clientOpts = append(clientOpts, httpsource.WithCountPath(def.CountPath))
	}
	return httpsource.New(opts.API, clientOpts...)
}

// applyBrowseOps performs the flag-driven operations in a fixed order,
// settling the view after each so every operation sees the previous
// result.
func applyBrowseOps(v *grid.View, opts *BrowseOptions, cmd *cobra.Command) error {
	flags := cmd.Flags()
	steps := []struct {
		enabled bool
		run     func() error
	}{
		{true, func() error {
			if opts.Refresh {
				return v.Refresh()
			}
			return v.Reload()
		}},
		{flags.Changed("page-size"), func() error { return v.SetPageSize(opts.PageSize) }},
		{flags.Changed("order"), func() error { return applyOrdering(v, opts.Order) }},
		{len(opts.Filters) > 0, func() error {
			var f query.Filter
			for _, s := range opts.Filters {
				c, err := query.ParseCondition(s)
				if err != nil {
					return err
				}
				f = f.And(c)
			}
			return v.SetFilter(f)
		}},
		{flags.Changed("page"), func() error {
			_, err := v.SetPage(opts.Page)
			return err
		}},
	}

	for _, s := range steps {
		if !s.enabled {
			continue
		}
		if err := s.run(); err != nil {
			return err
		}
		v.Settle()
	}

	if opts.SelectAll {
		v.SelectAll()
	}
	for _, id := range opts.Select {
		v.ToggleSelect(strings.TrimSpace(id))
	}
	return nil
}

// applyOrdering sets the ordering to spec regardless of the view's sort
// policy: "n" ascending, "-n" descending, "none" cleared.
func applyOrdering(v *grid.View, spec string) error {
	if spec == "" || spec == "none" {
		return v.SetOrdering("")
	}
	field, dir := query.ParseOrdering(spec)
	if err := v.SetOrdering(field); err != nil {
		return err
	}
	if v.Ordering().Direction != dir {
		return v.ToggleDirection()
	}
	return nil
}

func writeStatus(w io.Writer, s grid.Snapshot) {
	ordering := s.Ordering
	if ordering == "" {
		ordering = "server"
	}
	fmt.Fprintf(w, "%s  page %d/%d  %d rows of %d  ordering %s  selected %d\n",
		s.View, s.Page, s.LastPage, len(s.Rows), s.TotalItems, ordering, s.Selected)
}

// writePage prints a status line and the page as an aligned table.
func writePage(w io.Writer, s grid.Snapshot) {
	writeStatus(w, s)

	if len(s.Rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	titles := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		titles[i] = strings.ToUpper(c.Title)
		if c.ID == column.SelectColumnID {
			titles[i] = ""
		}
	}
	fmt.Fprintln(tw, strings.Join(titles, "\t"))

	for _, row := range s.Rows {
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cellText(cell.ColumnID, cell.Value, row.Selected)
		}
		line := strings.Join(cells, "\t")
		if row.Highlighted {
			line += "\t<"
		}
		fmt.Fprintln(tw, line)
	}
	tw.Flush()
}

func cellText(columnID string, v record.Value, selected bool) string {
	if columnID == column.SelectColumnID {
		if selected {
			return "[x]"
		}
		return "[ ]"
	}
	text := record.Text(v)
	if text == "" {
		return "-"
	}
	if utf8.RuneCountInString(text) > maxCellWidth {
		runes := []rune(text)
		text = string(runes[:maxCellWidth-1]) + "…"
	}
	return text
}

// writeCards prints one block per row: the select mark, the id and the
// image on the first line, then every other visible column as "Title: text".
func writeCards(w io.Writer, columns *column.Store, s grid.Snapshot) {
	writeStatus(w, s)
	layout := projection.Layout(columns)

	for _, row := range s.Rows {
		cells := make(map[string]projection.CellInstruction, len(row.Cells))
		for _, c := range row.Cells {
			cells[c.ColumnID] = c
		}
		text := func(d *column.Descriptor) string {
			c, ok := cells[d.ID]
			if !ok {
				return "-"
			}
			if c.IsLoading {
				return "..."
			}
			return cellText(d.ID, c.Value, row.Selected)
		}

		var head []string
		if layout.Select != nil {
			head = append(head, cellText(column.SelectColumnID, nil, row.Selected))
		}
		if layout.ID != nil {
			head = append(head, "#"+text(layout.ID))
		} else {
			head = append(head, "#"+row.ID)
		}
		if layout.Image != nil {
			head = append(head, "image: "+text(layout.Image))
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, strings.Join(head, "  "))
		for i := range layout.Others {
			d := &layout.Others[i]
			fmt.Fprintf(w, "    %s: %s\n", d.Title, text(d))
		}
	}
}
