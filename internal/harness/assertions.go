package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/gridview/internal/grid"
	"github.com/roach88/gridview/internal/record"
)

// Assertion is a check against the final view.
type Assertion struct {
	// Type is one of row_ids, status, selected_count, page, source_calls
	// and cell.
	Type string `yaml:"type"`

	IDs    []string `yaml:"ids,omitempty"`    // row_ids
	Status string   `yaml:"status,omitempty"` // status
	Count  *int     `yaml:"count,omitempty"`  // selected_count, source_calls
	Page   int      `yaml:"page,omitempty"`   // page

	// cell: the rendered text of column Column in row ID.
	ID     string `yaml:"id,omitempty"`
	Column string `yaml:"column,omitempty"`
	Text   string `yaml:"text,omitempty"`
}

// Assertion types.
const (
	AssertRowIDs        = "row_ids"
	AssertStatus        = "status"
	AssertSelectedCount = "selected_count"
	AssertPage          = "page"
	AssertSourceCalls   = "source_calls"
	AssertCell          = "cell"
)

func validateAssertion(i int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	case AssertRowIDs:
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: row_ids requires 'ids' field", i)
		}
	case AssertStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status requires 'status' field", i)
		}
	case AssertSelectedCount, AssertSourceCalls:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: %s requires 'count' field", i, a.Type)
		}
	case AssertPage:
		if a.Page < 1 {
			return fmt.Errorf("assertions[%d]: page requires a positive 'page' field", i)
		}
	case AssertCell:
		if a.ID == "" || a.Column == "" {
			return fmt.Errorf("assertions[%d]: cell requires 'id' and 'column' fields", i)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	return nil
}

// AssertionError is returned when an assertion fails. It carries the trace
// so a failure can be read without re-running the scenario.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s -> %s page=%d rows=%v", event.Seq, event.Op, event.Status, event.Page, event.RowIDs)
			if event.Error != "" {
				fmt.Fprintf(&buf, " error=%q", event.Error)
			}
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the result and records
// failures on it.
func EvaluateAssertions(result *Result, assertions []Assertion) {
	for _, a := range assertions {
		if err := evaluate(result, a); err != nil {
			result.AddError(err.Error())
		}
	}
}

func evaluate(result *Result, a Assertion) error {
	snap := result.Final
	fail := func(expected, actual any) error {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprint(expected),
			Actual:   fmt.Sprint(actual),
			Trace:    result.Trace,
		}
	}

	switch a.Type {
	case AssertRowIDs:
		got := snapshotRowIDs(snap)
		if !slices.Equal(got, a.IDs) {
			return fail(a.IDs, got)
		}
	case AssertStatus:
		if got := snap.Status.String(); got != a.Status {
			return fail(a.Status, got)
		}
	case AssertSelectedCount:
		if snap.Selected != *a.Count {
			return fail(*a.Count, snap.Selected)
		}
	case AssertPage:
		if snap.Page != a.Page {
			return fail(a.Page, snap.Page)
		}
	case AssertSourceCalls:
		if result.SourceCalls != *a.Count {
			return fail(*a.Count, result.SourceCalls)
		}
	case AssertCell:
		got, ok := cellText(snap, a.ID, a.Column)
		if !ok {
			return fail(fmt.Sprintf("cell %s/%s = %q", a.ID, a.Column, a.Text), "no such cell")
		}
		if got != a.Text {
			return fail(a.Text, got)
		}
	}
	return nil
}

func snapshotRowIDs(s grid.Snapshot) []string {
	ids := make([]string, len(s.Rows))
	for i, r := range s.Rows {
		ids[i] = r.ID
	}
	return ids
}

// cellText renders the value of one visible cell.
func cellText(s grid.Snapshot, rowID, columnID string) (string, bool) {
	for _, r := range s.Rows {
		if r.ID != rowID {
			continue
		}
		for _, c := range r.Cells {
			if c.ColumnID == columnID {
				return record.Text(c.Value), true
			}
		}
	}
	return "", false
}
