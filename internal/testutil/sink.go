package testutil

import (
	"slices"
	"sync"

	"github.com/roach88/gridview/internal/remote"
)

// OutcomeRecorder collects outcomes delivered to a remote.Sink.
type OutcomeRecorder struct {
	mu       sync.Mutex
	outcomes []remote.Outcome
}

// Sink returns a remote.Sink that records into r.
func (r *OutcomeRecorder) Sink() remote.Sink {
	return func(o remote.Outcome) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.outcomes = append(r.outcomes, o)
	}
}

// Outcomes returns a copy of everything recorded so far.
func (r *OutcomeRecorder) Outcomes() []remote.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.outcomes)
}
