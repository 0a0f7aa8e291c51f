package harness

import "github.com/roach88/gridview/internal/grid"

// TraceEvent records the view after one step.
type TraceEvent struct {
	Seq    int      `json:"seq"`
	Op     string   `json:"op"`
	Error  string   `json:"error,omitempty"`
	Status string   `json:"status"`
	Page   int      `json:"page"`
	Total  int      `json:"total"`
	RowIDs []string `json:"row_ids"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the view snapshot after the last step.
	Final grid.Snapshot `json:"final"`

	// SourceCalls is the number of list calls the source served.
	SourceCalls int `json:"source_calls"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
