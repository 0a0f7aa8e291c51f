// Package viewstate holds the client-side state of one table view: ordering,
// selection, pagination, filter and the fetch lifecycle.
//
// The Controller is a plain state machine. It never performs I/O; callers
// read Params after a state-changing call and hand them to a fetcher, then
// report the outcome with Succeeded or Failed.
//
// Controller is not safe for concurrent use. It is owned by exactly one
// writer (see package grid).
package viewstate

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/gridview/internal/column"
	"github.com/roach88/gridview/internal/query"
)

var (
	// ErrUnknownField is returned when ordering by a field no column declares.
	ErrUnknownField = errors.New("unknown ordering field")
	// ErrNotSortable is returned when ordering by a column that is not sortable.
	ErrNotSortable = errors.New("column is not sortable")
	// ErrPageSize is returned for a page size outside the allowed set.
	ErrPageSize = errors.New("page size not allowed")
	// ErrNoOrdering is returned by ToggleDirection when no field is active.
	ErrNoOrdering = errors.New("no active ordering")
)

// State is the fetch lifecycle state.
type State uint8

const (
	StateIdle State = iota
	StateFetching
	StateError
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Controller is the view state machine.
type Controller struct {
	columns   *column.Store
	policy    SortPolicy
	pageSizes []int
	logger    *slog.Logger

	state     State
	lastErr   error
	ordering  Ordering
	selection Selection
	page      Page
	filter    query.Filter
	include   []string
}

// Option configures a Controller.
type Option func(*Controller)

// WithSortPolicy selects how a repeated SetOrdering on the active field behaves.
func WithSortPolicy(p SortPolicy) Option {
	return func(c *Controller) {
		c.policy = p
	}
}

// WithPageSizes sets the allowed page sizes.
func WithPageSizes(sizes ...int) Option {
	return func(c *Controller) {
		c.pageSizes = slices.Clone(sizes)
	}
}

// WithPageSize sets the initial page size. It must be one of the allowed sizes.
func WithPageSize(size int) Option {
	return func(c *Controller) {
		c.page.Size = size
	}
}

// WithOrdering sets the initial ordering. Field may be a column id or a
// column path; it is validated like SetOrdering.
func WithOrdering(o Ordering) Option {
	return func(c *Controller) {
		c.ordering = o
	}
}

// WithInclude limits the fields requested by primary fetches.
func WithInclude(fields ...string) Option {
	return func(c *Controller) {
		c.include = slices.Clone(fields)
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// New creates a Controller over columns. The controller starts Idle on
// page 1 with an empty selection.
func New(columns *column.Store, opts ...Option) (*Controller, error) {
	c := &Controller{
		columns:   columns,
		pageSizes: slices.Clone(DefaultPageSizes),
		logger:    slog.Default(),
		page:      Page{Index: 1},
	}
	for _, opt := range opts {
		opt(c)
	}

	if len(c.pageSizes) == 0 {
		return nil, fmt.Errorf("%w: no page sizes configured", ErrPageSize)
	}
	for _, s := range c.pageSizes {
		if s < 1 {
			return nil, fmt.Errorf("%w: %d", ErrPageSize, s)
		}
	}
	if c.page.Size == 0 {
		c.page.Size = c.pageSizes[0]
		if slices.Contains(c.pageSizes, DefaultPageSize) {
			c.page.Size = DefaultPageSize
		}
	}
	if !slices.Contains(c.pageSizes, c.page.Size) {
		return nil, fmt.Errorf("%w: %d (allowed %v)", ErrPageSize, c.page.Size, c.pageSizes)
	}
	if !c.ordering.IsZero() {
		d, err := c.sortableColumn(c.ordering.Field)
		if err != nil {
			return nil, fmt.Errorf("initial ordering: %w", err)
		}
		c.ordering.Field = d.ID
	}
	return c, nil
}

// SetOrdering changes the active ordering. A new field sorts ascending; the
// active field again is resolved by the sort policy; "" clears. Field may be
// a column id or a column path.
//
// Every successful call enters Fetching, including a state-level no-op.
func (c *Controller) SetOrdering(field string) error {
	if field != "" {
		d, err := c.sortableColumn(field)
		if err != nil {
			return err
		}
		field = d.ID
	}
	c.ordering = c.policy.next(c.ordering, field)
	c.begin("set_ordering")
	return nil
}

// ToggleDirection flips the direction of the active ordering.
func (c *Controller) ToggleDirection() error {
	if c.ordering.IsZero() {
		return ErrNoOrdering
	}
	c.ordering.Direction = c.ordering.Direction.Flip()
	c.begin("toggle_direction")
	return nil
}

// SetPage moves to page i, clamped to [1, LastPage()], and returns the
// resulting index.
func (c *Controller) SetPage(i int) int {
	c.page.Index = c.page.Clamp(i)
	c.begin("set_page")
	return c.page.Index
}

// SetPageSize changes the page size, returns to page 1 and clears selection.
func (c *Controller) SetPageSize(size int) error {
	if !slices.Contains(c.pageSizes, size) {
		return fmt.Errorf("%w: %d (allowed %v)", ErrPageSize, size, c.pageSizes)
	}
	c.page.Size = size
	c.page.Index = 1
	c.selection = c.selection.Clear()
	c.begin("set_page_size")
	return nil
}

// SetFilter replaces the active filter, returns to page 1 and clears the
// selection, which referred to the previous result set.
func (c *Controller) SetFilter(f query.Filter) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}
	c.filter = f
	c.page.Index = 1
	c.selection = c.selection.Clear()
	c.begin("set_filter")
	return nil
}

// Reset is used when the user navigates away from the view: it clears the
// selection and returns to page 1. Ordering, page size and filter stay.
func (c *Controller) Reset() {
	c.page.Index = 1
	c.selection = c.selection.Clear()
	c.begin("reset")
}

// Reload requests a fetch with unchanged parameters.
func (c *Controller) Reload() {
	c.begin("reload")
}

// Retry requests a fetch after a failure. It is valid from any state.
func (c *Controller) Retry() {
	c.begin("retry")
}

// ToggleSelect flips membership of id. It does not fetch.
func (c *Controller) ToggleSelect(id string) {
	c.selection = c.selection.Toggle(id)
}

// SelectAll switches to exclusion mode with nothing excluded.
func (c *Controller) SelectAll() {
	c.selection = c.selection.SelectAll()
}

// ClearAll switches to inclusion mode with nothing included.
func (c *Controller) ClearAll() {
	c.selection = c.selection.Clear()
}

// Succeeded records a successful primary fetch. It stores the server count
// and re-clamps the page index. It returns true when the index moved, in
// which case the controller is Fetching again and the caller must fetch.
func (c *Controller) Succeeded(total int) bool {
	c.page.TotalItems = total
	c.lastErr = nil
	if clamped := c.page.Clamp(c.page.Index); clamped != c.page.Index {
		c.logger.Debug("page out of range after fetch",
			"page", c.page.Index,
			"last_page", c.page.LastPage(),
		)
		c.page.Index = clamped
		c.begin("reclamp")
		return true
	}
	c.state = StateIdle
	return false
}

// Failed records a failed primary fetch. Ordering, page and selection stay
// as they were so a retry repeats the same request.
func (c *Controller) Failed(err error) {
	c.state = StateError
	c.lastErr = err
}

// Params derives the fetch parameters from the current state.
func (c *Controller) Params() query.ListParams {
	p := query.ListParams{
		Page:     c.page.Index,
		PageSize: c.page.Size,
		Filter:   c.filter,
		Include:  slices.Clone(c.include),
	}
	if !c.ordering.IsZero() {
		p.OrderField = c.ordering.Field
		if d, ok := c.columns.Get(c.ordering.Field); ok {
			p.OrderField = d.Path()
		}
		p.OrderDirection = c.ordering.Direction
	}
	return p
}

// State returns the lifecycle state.
func (c *Controller) State() State { return c.state }

// Err returns the last fetch error while in StateError, otherwise nil.
func (c *Controller) Err() error {
	if c.state != StateError {
		return nil
	}
	return c.lastErr
}

// Ordering returns the active ordering. Field is a column id.
func (c *Controller) Ordering() Ordering { return c.ordering }

// Selection returns the selection.
func (c *Controller) Selection() Selection { return c.selection }

// Page returns the pagination window.
func (c *Controller) Page() Page { return c.page }

// Filter returns the active filter.
func (c *Controller) Filter() query.Filter { return c.filter }

// PageSizes returns a copy of the allowed page sizes.
func (c *Controller) PageSizes() []int { return slices.Clone(c.pageSizes) }

// Policy returns the sort policy.
func (c *Controller) Policy() SortPolicy { return c.policy }

func (c *Controller) begin(op string) {
	if c.state == StateError {
		c.logger.Debug("leaving error state", "op", op, "error", c.lastErr)
	}
	c.state = StateFetching
	c.lastErr = nil
}

// sortableColumn resolves field by column id first, then by record path.
func (c *Controller) sortableColumn(field string) (column.Descriptor, error) {
	d, ok := c.columns.Get(field)
	if !ok {
		for _, cand := range c.columns.All() {
			if cand.Kind == column.KindData && cand.Path() == field {
				d, ok = cand, true
				break
			}
		}
	}
	if !ok {
		return column.Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if !d.Sortable {
		return column.Descriptor{}, fmt.Errorf("%w: %q", ErrNotSortable, d.ID)
	}
	return d, nil
}
