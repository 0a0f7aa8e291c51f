// Package grid composes the column store, type registry, view state and
// remote coordinator into one table view.
//
// A View has a single writer. User operations take the view lock and apply
// immediately; fetch outcomes are queued by the coordinator and applied by
// Run (event loop) or Drain/Settle (synchronous callers). A response is
// therefore never applied halfway through an operation, and a stale response
// is never applied at all.
package grid

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/gridview/internal/celltype"
	"github.com/roach88/gridview/internal/column"
	"github.com/roach88/gridview/internal/prefs"
	"github.com/roach88/gridview/internal/projection"
	"github.com/roach88/gridview/internal/query"
	"github.com/roach88/gridview/internal/record"
	"github.com/roach88/gridview/internal/remote"
	"github.com/roach88/gridview/internal/viewstate"
)

// View is one table view bound to a record source.
//
// Thread-safety: all exported methods are safe for concurrent use. Run
// must be called from at most one goroutine.
type View struct {
	id        string
	columns   *column.Store
	registry  *celltype.Registry
	ctrl      *viewstate.Controller
	coord     *remote.Coordinator
	prefs     prefs.Store
	secondary []string
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	queue  *outcomeQueue

	mu          sync.RWMutex
	rows        []rowState
	index       map[string]int
	highlighted string
	pending     map[int64]refreshTarget
	closed      bool
}

type rowState struct {
	rec          record.Record
	loading      bool
	loadingGen   int64
	loadingField string
	fieldGen     int64
}

// refreshTarget remembers which flag a hydration request must clear.
type refreshTarget struct {
	rowID    string
	columnID string
}

type config struct {
	registry  *celltype.Registry
	prefs     prefs.Store
	secondary []string
	stateOpts []viewstate.Option
	coordOpts []remote.Option
	logger    *slog.Logger
}

// Option configures a View.
type Option func(*config)

// WithRegistry sets the cell type registry. Default: celltype.NewRegistry().
func WithRegistry(r *celltype.Registry) Option {
	return func(c *config) {
		c.registry = r
	}
}

// WithPrefs persists page size and ordering in s.
func WithPrefs(s prefs.Store) Option {
	return func(c *config) {
		c.prefs = s
	}
}

// WithSecondaryFields makes the view hydrate these fields for every page
// after the primary fetch succeeds.
func WithSecondaryFields(fields ...string) Option {
	return func(c *config) {
		c.secondary = slices.Clone(fields)
	}
}

// WithStateOptions passes options to the view state controller.
func WithStateOptions(opts ...viewstate.Option) Option {
	return func(c *config) {
		c.stateOpts = append(c.stateOpts, opts...)
	}
}

// WithRemoteOptions passes options to the remote coordinator.
func WithRemoteOptions(opts ...remote.Option) Option {
	return func(c *config) {
		c.coordOpts = append(c.coordOpts, opts...)
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// New creates a view over columns that lists records from source. Saved
// preferences are read once here; values that no longer fit the column set
// are ignored. No fetch is issued until the first operation or Reload.
func New(ctx context.Context, viewID string, columns *column.Store, source remote.Source, opts ...Option) (*View, error) {
	cfg := config{
		registry: celltype.NewRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger.With("view", viewID)

	stateOpts := append([]viewstate.Option{viewstate.WithLogger(logger)}, cfg.stateOpts...)
	ctrl, err := newController(ctx, viewID, columns, cfg.prefs, stateOpts, logger)
	if err != nil {
		return nil, err
	}

	v := &View{
		id:        viewID,
		columns:   columns,
		registry:  cfg.registry,
		ctrl:      ctrl,
		prefs:     cfg.prefs,
		secondary: cfg.secondary,
		logger:    logger,
		queue:     newOutcomeQueue(),
		index:     make(map[string]int),
		pending:   make(map[int64]refreshTarget),
	}
	v.ctx, v.cancel = context.WithCancel(ctx)

	coordOpts := append([]remote.Option{remote.WithLogger(logger)}, cfg.coordOpts...)
	v.coord = remote.NewCoordinator(viewID, source, func(o remote.Outcome) {
		if !v.queue.Enqueue(o) {
			logger.Debug("outcome after close dropped", "generation", o.Generation)
		}
	}, coordOpts...)

	return v, nil
}

// newController builds the controller, applying saved preferences when they
// are still valid.
func newController(
	ctx context.Context,
	viewID string,
	columns *column.Store,
	store prefs.Store,
	opts []viewstate.Option,
	logger *slog.Logger,
) (*viewstate.Controller, error) {
	if store != nil {
		saved, ok, err := store.Load(ctx, viewID)
		if err != nil {
			logger.Warn("view preferences not loaded", "error", err)
		}
		if ok {
			withSaved := slices.Clone(opts)
			if saved.PageSize != 0 {
				withSaved = append(withSaved, viewstate.WithPageSize(saved.PageSize))
			}
			if saved.Ordering != "" {
				withSaved = append(withSaved, viewstate.WithOrdering(viewstate.ParseOrderingString(saved.Ordering)))
			}
			ctrl, err := viewstate.New(columns, withSaved...)
			if err == nil {
				return ctrl, nil
			}
			logger.Warn("saved view preferences ignored", "error", err)
		}
	}

	ctrl, err := viewstate.New(columns, opts...)
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", viewID, err)
	}
	return ctrl, nil
}

// ID returns the view id.
func (v *View) ID() string { return v.id }

// Columns returns the column store.
func (v *View) Columns() *column.Store { return v.columns }

// SetOrdering sorts by field (a column id or path) following the view's
// sort policy; "" restores server order.
func (v *View) SetOrdering(field string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if err := v.ctrl.SetOrdering(field); err != nil {
		return err
	}
	v.savePrefs()
	v.fetch(false)
	return nil
}

// ToggleDirection flips the direction of the active ordering.
func (v *View) ToggleDirection() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if err := v.ctrl.ToggleDirection(); err != nil {
		return err
	}
	v.savePrefs()
	v.fetch(false)
	return nil
}

// SetPage moves to page i, clamped to the known page range, and returns
// the resulting page index.
func (v *View) SetPage(i int) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return 0, ErrClosed
	}
	idx := v.ctrl.SetPage(i)
	v.fetch(false)
	return idx, nil
}

// SetPageSize changes the page size, returns to page 1 and clears selection.
func (v *View) SetPageSize(size int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if err := v.ctrl.SetPageSize(size); err != nil {
		return err
	}
	v.savePrefs()
	v.fetch(false)
	return nil
}

// SetFilter replaces the active filter and returns to page 1.
func (v *View) SetFilter(f query.Filter) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if err := v.ctrl.SetFilter(f); err != nil {
		return err
	}
	v.fetch(false)
	return nil
}

// Reset clears the selection and returns to page 1, as when the user
// navigates away from the view and back.
func (v *View) Reset() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	v.ctrl.Reset()
	v.fetch(false)
	return nil
}

// Reload fetches the current page again. Cached results may be used.
func (v *View) Reload() error {
	return v.refetch("reload", false)
}

// Refresh fetches the current page from the source, bypassing any cache.
func (v *View) Refresh() error {
	return v.refetch("refresh", true)
}

// Retry repeats the last request after a failure.
func (v *View) Retry() error {
	return v.refetch("retry", false)
}

func (v *View) refetch(op string, force bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if op == "retry" {
		v.ctrl.Retry()
	} else {
		v.ctrl.Reload()
	}
	v.fetch(force)
	return nil
}

// ToggleSelect flips selection of one row.
func (v *View) ToggleSelect(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ctrl.ToggleSelect(id)
}

// SelectAll selects every row of the full result.
func (v *View) SelectAll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ctrl.SelectAll()
}

// ClearAll clears the selection.
func (v *View) ClearAll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ctrl.ClearAll()
}

// SetHighlighted marks one row as highlighted; "" clears the highlight.
func (v *View) SetHighlighted(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if id != "" {
		if _, ok := v.index[id]; !ok {
			return fmt.Errorf("%w: %q", ErrRowNotFound, id)
		}
	}
	v.highlighted = id
	return nil
}

// RefreshRow re-fetches one row. The row shows as loading until the
// response is applied.
func (v *View) RefreshRow(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	i, ok := v.index[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRowNotFound, id)
	}
	t := v.coord.Hydrate(v.ctx, []string{id}, nil)
	v.rows[i].loading = true
	v.rows[i].loadingGen = t.Generation
	v.pending[t.Generation] = refreshTarget{rowID: id}
	return nil
}

// RefreshCell re-fetches the field behind one visible cell. Exactly that
// cell shows as loading until the response is applied.
func (v *View) RefreshCell(id, columnID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if !v.columns.IsVisible(columnID) {
		return fmt.Errorf("%w: %q", ErrCellNotVisible, columnID)
	}
	col, _ := v.columns.Get(columnID)
	if col.Kind == column.KindControl || col.Path() == "" {
		return fmt.Errorf("%w: %q has no record field", ErrCellNotVisible, columnID)
	}
	i, ok := v.index[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRowNotFound, id)
	}
	t := v.coord.Hydrate(v.ctx, []string{id}, []string{col.Path()})
	v.rows[i].loadingField = columnID
	v.rows[i].fieldGen = t.Generation
	v.pending[t.Generation] = refreshTarget{rowID: id, columnID: columnID}
	return nil
}

// Rows returns the current row set with selection, highlight and loading
// flags resolved.
func (v *View) Rows() []projection.Row {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.rowsLocked()
}

func (v *View) rowsLocked() []projection.Row {
	sel := v.ctrl.Selection()
	out := make([]projection.Row, len(v.rows))
	for i, rs := range v.rows {
		id := rs.rec.ID()
		out[i] = projection.Row{
			Record:        rs.rec,
			IsSelected:    sel.IsSelected(id),
			IsHighlighted: id != "" && id == v.highlighted,
			IsLoading:     rs.loading,
			LoadingField:  rs.loadingField,
		}
	}
	return out
}

// Instructions projects the current rows against the visible columns.
func (v *View) Instructions() [][]projection.CellInstruction {
	return projection.ProjectPage(v.Rows(), v.columns, v.registry)
}

// Status returns the table body display state.
func (v *View) Status() Status {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.statusLocked()
}

func (v *View) statusLocked() Status {
	switch v.ctrl.State() {
	case viewstate.StateFetching:
		return StatusLoading
	case viewstate.StateError:
		return StatusError
	}
	if len(v.rows) == 0 {
		return StatusEmpty
	}
	return StatusReady
}

// State returns the view state machine state.
func (v *View) State() viewstate.State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ctrl.State()
}

// Err returns the last fetch error while in the error state.
func (v *View) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ctrl.Err()
}

// Selection returns the selection.
func (v *View) Selection() viewstate.Selection {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ctrl.Selection()
}

// SelectedCount returns the number of selected rows across all pages.
func (v *View) SelectedCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ctrl.Selection().Count(v.ctrl.Page().TotalItems)
}

// Page returns the pagination window.
func (v *View) Page() viewstate.Page {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ctrl.Page()
}

// Ordering returns the active ordering.
func (v *View) Ordering() viewstate.Ordering {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ctrl.Ordering()
}

// Filter returns the active filter.
func (v *View) Filter() query.Filter {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ctrl.Filter()
}

// Run applies fetch outcomes until ctx is cancelled or the view is closed.
//
// Must be called from at most one goroutine.
func (v *View) Run(ctx context.Context) error {
	v.logger.Info("view loop starting")

	for {
		if o, ok := v.queue.TryDequeue(); ok {
			v.apply(o)
			continue
		}

		select {
		case <-ctx.Done():
			v.logger.Info("view loop stopping: context cancelled")
			return ctx.Err()

		case _, open := <-v.queue.Wait():
			if !open && v.queue.Len() == 0 {
				v.logger.Info("view loop stopping: view closed")
				return nil
			}
		}
	}
}

// Drain applies every queued outcome without blocking and returns how many
// were applied.
func (v *View) Drain() int {
	n := 0
	for {
		o, ok := v.queue.TryDequeue()
		if !ok {
			return n
		}
		v.apply(o)
		n++
	}
}

// Settle waits for in-flight requests and applies their outcomes until the
// view is quiet, including follow-up requests such as hydration. It must
// not be used together with Run.
func (v *View) Settle() {
	for {
		v.coord.Wait()
		if v.Drain() == 0 {
			return
		}
	}
}

// Invalidate drops every cached page result.
func (v *View) Invalidate() {
	v.coord.Invalidate()
}

// Close cancels in-flight requests and stops Run. It is safe to call more
// than once.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	v.cancel()
	v.coord.Close()
	v.queue.Close()
}

// fetch issues a primary fetch for the current state. Caller holds v.mu.
func (v *View) fetch(force bool) {
	v.coord.Fetch(v.ctx, v.ctrl.Params(), remote.FetchOptions{Force: force})
}

func (v *View) savePrefs() {
	if v.prefs == nil {
		return
	}
	p := prefs.Prefs{
		PageSize: v.ctrl.Page().Size,
		Ordering: v.ctrl.Ordering().String(),
	}
	if err := v.prefs.Save(v.ctx, v.id, p); err != nil {
		v.logger.Warn("view preferences not saved", "error", err)
	}
}

func (v *View) apply(o remote.Outcome) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		v.logger.Debug("outcome after close discarded", "kind", o.Kind, "generation", o.Generation)
		return
	}

	switch o.Kind {
	case remote.KindPrimary:
		v.applyPrimary(o)
	case remote.KindHydrate:
		v.applyHydrate(o)
	default:
		v.logger.Warn("unknown outcome kind", "kind", o.Kind, "generation", o.Generation)
	}
}

func (v *View) applyPrimary(o remote.Outcome) {
	if !v.coord.IsLive(o.Generation) {
		v.logger.Debug("stale outcome discarded",
			"generation", o.Generation,
			"latest", v.coord.Latest(),
		)
		return
	}

	if o.Err != nil {
		v.ctrl.Failed(o.Err)
		v.logger.Warn("fetch failed",
			"generation", o.Generation,
			"token", o.Token,
			"code", o.Err.Code,
			"error", o.Err,
		)
		return
	}

	if v.ctrl.Succeeded(o.Result.Count) {
		v.logger.Debug("page out of range, refetching", "page", v.ctrl.Page().Index)
		v.fetch(false)
		return
	}

	v.replaceRows(o.Result.Results)
	v.logger.Debug("rows applied",
		"generation", o.Generation,
		"token", o.Token,
		"rows", len(v.rows),
		"total", o.Result.Count,
		"cached", o.Cached,
	)

	if len(v.secondary) > 0 && len(v.rows) > 0 {
		ids := make([]string, 0, len(v.rows))
		for _, rs := range v.rows {
			ids = append(ids, rs.rec.ID())
		}
		v.coord.Hydrate(v.ctx, ids, v.secondary)
	}
}

func (v *View) replaceRows(recs []record.Record) {
	v.rows = make([]rowState, 0, len(recs))
	v.index = make(map[string]int, len(recs))
	for _, rec := range recs {
		id := rec.ID()
		if _, dup := v.index[id]; dup || id == "" {
			v.logger.Warn("record skipped", "id", id, "reason", "missing or duplicate id")
			continue
		}
		v.index[id] = len(v.rows)
		v.rows = append(v.rows, rowState{rec: rec})
	}
	if _, ok := v.index[v.highlighted]; !ok {
		v.highlighted = ""
	}
}

// applyHydrate merges hydrated fields by id into the current rows. Ids no
// longer present are dropped: the row set may have been replaced since the
// request was issued.
func (v *View) applyHydrate(o remote.Outcome) {
	target, isRefresh := v.pending[o.Generation]
	delete(v.pending, o.Generation)
	if isRefresh {
		v.clearLoading(target, o.Generation)
	}

	if o.Err != nil {
		v.logger.Warn("hydration failed",
			"generation", o.Generation,
			"token", o.Token,
			"error", o.Err,
		)
		return
	}

	var dropped []string
	for _, rec := range o.Result.Results {
		i, ok := v.index[rec.ID()]
		if !ok {
			dropped = append(dropped, rec.ID())
			continue
		}
		v.rows[i].rec = v.rows[i].rec.Merge(rec)
	}
	if len(dropped) > 0 {
		v.logger.Debug("hydration for absent rows dropped",
			"generation", o.Generation,
			"ids", strings.Join(dropped, ","),
		)
	}
}

func (v *View) clearLoading(t refreshTarget, gen int64) {
	i, ok := v.index[t.rowID]
	if !ok {
		return
	}
	rs := &v.rows[i]
	if t.columnID == "" && rs.loadingGen == gen {
		rs.loading = false
		rs.loadingGen = 0
	}
	if t.columnID != "" && rs.fieldGen == gen {
		rs.loadingField = ""
		rs.fieldGen = 0
	}
}
