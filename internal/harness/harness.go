package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/roach88/gridview/internal/grid"
	"github.com/roach88/gridview/internal/query"
	"github.com/roach88/gridview/internal/record"
	"github.com/roach88/gridview/internal/remote"
	"github.com/roach88/gridview/internal/source/sqlsource"
	"github.com/roach88/gridview/internal/store"
	"github.com/roach88/gridview/internal/testutil"
	"github.com/roach88/gridview/internal/viewdef"
)

// releaseTimeout bounds how long a release step waits for a call to start.
const releaseTimeout = 5 * time.Second

// Harness executes the steps of one scenario against one view.
type Harness struct {
	view   *grid.View
	viewID string
	fake   *testutil.FakeSource // nil for the sqlite source
	store  *store.Store         // nil for the memory source
	calls  atomic.Int64
	gated  bool
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh source: an in-memory fake, or a
// private in-memory SQLite database. Request tokens are sequential and
// every step ends on a settled view unless requests are gated, so the
// result is reproducible.
//
// An error is returned only when the scenario cannot be set up; failed
// expectations and assertions are reported on the result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	def, err := definition(scenario)
	if err != nil {
		return nil, err
	}
	recs, err := loadRecords(scenario.Records)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	h := &Harness{
		viewID: def.ID,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in scenarios
	}

	var src remote.Source
	switch scenario.Source {
	case SourceSQLite:
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
		if err := st.PutRecords(ctx, def.ID, recs); err != nil {
			return nil, fmt.Errorf("failed to import records: %w", err)
		}
		h.store = st
		src = sqlsource.New(st, sqlsource.WithLogger(h.logger))
	default:
		h.fake = testutil.NewFakeSource(recs...)
		src = h.fake
	}

	counted := remote.SourceFunc(func(ctx context.Context, viewID string, p query.ListParams) (remote.PageResult, error) {
		h.calls.Add(1)
		return src.List(ctx, viewID, p)
	})

	h.view, err = def.NewView(ctx, counted,
		grid.WithLogger(h.logger),
		grid.WithRemoteOptions(
			remote.WithTokenGenerator(remote.NewSequenceGenerator("req")),
			remote.WithLogger(h.logger),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create view: %w", err)
	}
	defer h.view.Close()

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, step.Op, err)
		}
	}
	if h.gated {
		h.fake.Ungate()
		h.view.Settle()
	}

	result.Final = h.view.Snapshot()
	result.SourceCalls = int(h.calls.Load())
	EvaluateAssertions(result, scenario.Assertions)
	return result, nil
}

func definition(s *Scenario) (*viewdef.Definition, error) {
	if s.Definition != nil {
		if err := s.Definition.Validate(); err != nil {
			return nil, fmt.Errorf("invalid definition: %w", err)
		}
		return s.Definition, nil
	}
	d, err := viewdef.Load(s.View)
	if err != nil {
		return nil, fmt.Errorf("failed to load view: %w", err)
	}
	return &d, nil
}

// loadRecords builds the record set: generated, then inline, then file.
func loadRecords(rs RecordSet) ([]record.Record, error) {
	recs := testutil.Records(rs.Generate)
	for i, m := range rs.Inline {
		r, err := record.FromMap(m)
		if err != nil {
			return nil, fmt.Errorf("inline[%d]: %w", i, err)
		}
		recs = append(recs, r)
	}
	if rs.File != "" {
		f, err := os.Open(rs.File)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		fromFile, err := sqlsource.ParseRecords(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rs.File, err)
		}
		recs = append(recs, fromFile...)
	}
	return recs, nil
}

// executeStep performs one operation, settles the view and checks the
// step's expectation. It returns an error only when the step cannot be
// carried out at all.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	opErr, err := h.perform(ctx, step)
	if err != nil {
		return err
	}
	if !h.gated {
		h.view.Settle()
	}
	if h.fake != nil {
		drainStarted(h.fake)
	}

	snap := h.view.Snapshot()
	event := TraceEvent{
		Seq:    i + 1,
		Op:     step.Op,
		Status: snap.Status.String(),
		Page:   snap.Page,
		Total:  snap.TotalItems,
		RowIDs: snapshotRowIDs(snap),
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	result.Trace = append(result.Trace, event)

	for _, msg := range checkExpect(step.Expect, opErr, snap) {
		result.AddError(fmt.Sprintf("steps[%d] (%s): %s", i, step.Op, msg))
	}
	return nil
}

// perform runs the step's operation. opErr is the view's answer to the
// operation; err means the harness itself failed.
func (h *Harness) perform(ctx context.Context, step Step) (opErr, err error) {
	v := h.view
	if memoryOnly[step.Op] && h.fake == nil {
		return nil, fmt.Errorf("%s needs the memory source", step.Op)
	}
	switch step.Op {
	case OpReload:
		return v.Reload(), nil
	case OpRefresh:
		return v.Refresh(), nil
	case OpRetry:
		return v.Retry(), nil
	case OpSetOrdering:
		return v.SetOrdering(step.Column), nil
	case OpToggleDirection:
		return v.ToggleDirection(), nil
	case OpSetPage:
		_, opErr = v.SetPage(step.Page)
		return opErr, nil
	case OpSetPageSize:
		return v.SetPageSize(step.Size), nil
	case OpSetFilter:
		var f query.Filter
		for _, s := range step.Filter {
			c, err := query.ParseCondition(s)
			if err != nil {
				return nil, err
			}
			f = f.And(c)
		}
		return v.SetFilter(f), nil
	case OpSelect:
		v.ToggleSelect(step.ID)
	case OpSelectAll:
		v.SelectAll()
	case OpClearAll:
		v.ClearAll()
	case OpHighlight:
		return v.SetHighlighted(step.ID), nil
	case OpRefreshRow:
		return v.RefreshRow(step.ID), nil
	case OpRefreshCell:
		return v.RefreshCell(step.ID, step.Column), nil
	case OpRemoveRecords:
		if h.store != nil {
			return nil, h.store.DeleteRecords(ctx, h.viewID, step.IDs...)
		}
		h.fake.Remove(step.IDs...)
	case OpFailNext:
		status := step.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		msg := step.Message
		if msg == "" {
			msg = http.StatusText(status)
		}
		h.fake.FailNext(remote.NewServerError(status, errors.New(msg)))
	case OpGate:
		h.fake.Gate(true)
		h.gated = true
	case OpRelease:
		return nil, h.release(step.Calls)
	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
	return nil, nil
}

// release resolves held calls in the listed order, then stops gating.
// Calls not listed are resolved too, after the listed ones.
func (h *Harness) release(calls []int) error {
	for _, idx := range calls {
		deadline := time.Now().Add(releaseTimeout)
		for h.fake.CallCount() <= idx {
			if time.Now().After(deadline) {
				return fmt.Errorf("call %d never started (%d calls)", idx, h.fake.CallCount())
			}
			time.Sleep(time.Millisecond)
		}
		h.fake.Release(idx)
	}
	h.fake.Ungate()
	h.gated = false
	return nil
}

// drainStarted empties the fake's start notifications so long scenarios
// never fill its buffer.
func drainStarted(src *testutil.FakeSource) {
	for {
		select {
		case <-src.Started:
		default:
			return
		}
	}
}

// checkExpect compares a settled view against a step expectation and
// returns one message per mismatch.
func checkExpect(e *Expect, opErr error, snap grid.Snapshot) []string {
	var out []string
	if e == nil {
		if opErr != nil {
			out = append(out, fmt.Sprintf("unexpected error: %v", opErr))
		}
		return out
	}

	switch {
	case e.Error == "" && opErr != nil:
		out = append(out, fmt.Sprintf("unexpected error: %v", opErr))
	case e.Error != "" && opErr == nil:
		out = append(out, fmt.Sprintf("expected error containing %q, got success", e.Error))
	case e.Error != "" && !containsFold(opErr.Error(), e.Error):
		out = append(out, fmt.Sprintf("expected error containing %q, got %q", e.Error, opErr.Error()))
	}

	if e.Status != "" && snap.Status.String() != e.Status {
		out = append(out, fmt.Sprintf("status = %s, expected %s", snap.Status, e.Status))
	}
	if e.Page != 0 && snap.Page != e.Page {
		out = append(out, fmt.Sprintf("page = %d, expected %d", snap.Page, e.Page))
	}
	if e.Total != nil && snap.TotalItems != *e.Total {
		out = append(out, fmt.Sprintf("total = %d, expected %d", snap.TotalItems, *e.Total))
	}
	if e.Rows != nil && len(snap.Rows) != *e.Rows {
		out = append(out, fmt.Sprintf("rows = %d, expected %d", len(snap.Rows), *e.Rows))
	}
	if e.RowIDs != nil {
		if got := snapshotRowIDs(snap); !slices.Equal(got, e.RowIDs) {
			out = append(out, fmt.Sprintf("row ids = %v, expected %v", got, e.RowIDs))
		}
	}
	if e.Selected != nil && snap.Selected != *e.Selected {
		out = append(out, fmt.Sprintf("selected = %d, expected %d", snap.Selected, *e.Selected))
	}
	if e.Ordering != nil && snap.Ordering != *e.Ordering {
		out = append(out, fmt.Sprintf("ordering = %q, expected %q", snap.Ordering, *e.Ordering))
	}
	if e.FetchError != "" && !containsFold(snap.Error, e.FetchError) {
		out = append(out, fmt.Sprintf("fetch error = %q, expected it to contain %q", snap.Error, e.FetchError))
	}
	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
