package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/gridview/internal/query"
	"github.com/roach88/gridview/internal/record"
	"github.com/roach88/gridview/internal/remote"
)

// FakeSource is an in-memory remote.Source.
//
// By default every List call answers immediately from the record set. With
// gating enabled each call blocks until the test releases it by index, so
// tests can resolve requests in any order they like.
//
// Thread-safety: all methods are safe for concurrent use.
type FakeSource struct {
	mu       sync.Mutex
	records  []record.Record
	calls    []query.ListParams
	failNext []error
	gated    bool

	// ignoreCancel makes gated calls answer even after their context ends,
	// like a server that finishes a request the client gave up on.
	ignoreCancel bool
	gates        map[int]chan struct{}

	// Started receives the index of every call as it begins.
	Started chan int
}

// NewFakeSource creates a source holding recs.
func NewFakeSource(recs ...record.Record) *FakeSource {
	return &FakeSource{
		records: slices.Clone(recs),
		gates:   make(map[int]chan struct{}),
		Started: make(chan int, 256),
	}
}

// SetRecords replaces the record set. In-flight calls see the new set when
// they are released.
func (s *FakeSource) SetRecords(recs ...record.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = slices.Clone(recs)
}

// Remove deletes the records with the given ids.
func (s *FakeSource) Remove(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = slices.DeleteFunc(s.records, func(r record.Record) bool {
		return slices.Contains(ids, r.ID())
	})
}

// FailNext makes the next call return err instead of a page.
func (s *FakeSource) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = append(s.failNext, err)
}

// Gate makes subsequent calls block until released. With ignoreCancel the
// call completes on release even if its context was cancelled.
func (s *FakeSource) Gate(ignoreCancel bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gated = true
	s.ignoreCancel = ignoreCancel
}

// Release unblocks call i. Releasing a call twice is a no-op.
func (s *FakeSource) Release(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := s.gate(i)
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// Ungate stops gating new calls and releases every call still waiting.
func (s *FakeSource) Ungate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gated = false
	for _, ch := range s.gates {
		select {
		case <-ch:
		default:
			close(ch)
		}
	}
}

// Calls returns the params of every call so far.
func (s *FakeSource) Calls() []query.ListParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// CallCount returns the number of calls so far.
func (s *FakeSource) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// List implements remote.Source.
func (s *FakeSource) List(ctx context.Context, _ string, params query.ListParams) (remote.PageResult, error) {
	s.mu.Lock()
	idx := len(s.calls)
	s.calls = append(s.calls, params)
	var fail error
	if len(s.failNext) > 0 {
		fail = s.failNext[0]
		s.failNext = s.failNext[1:]
	}
	gated, ignoreCancel := s.gated, s.ignoreCancel
	var gate chan struct{}
	if gated {
		gate = s.gate(idx)
	}
	s.mu.Unlock()

	s.Started <- idx

	if gated {
		if ignoreCancel {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return remote.PageResult{}, ctx.Err()
			}
		}
	}
	if fail != nil {
		return remote.PageResult{}, fail
	}

	s.mu.Lock()
	recs := slices.Clone(s.records)
	s.mu.Unlock()

	page, total := query.Apply(recs, params)
	return remote.PageResult{Results: page, Count: total}, nil
}

// gate returns the release channel for call i. Caller holds s.mu.
func (s *FakeSource) gate(i int) chan struct{} {
	ch, ok := s.gates[i]
	if !ok {
		ch = make(chan struct{})
		s.gates[i] = ch
	}
	return ch
}

// Records builds n records {"id": i, "title": "task i", "n": i} for i in 1..n.
func Records(n int) []record.Record {
	out := make([]record.Record, n)
	for i := range out {
		id := i + 1
		out[i] = record.New(record.Object{
			"id":    record.Int(id),
			"title": record.String(fmt.Sprintf("task %d", id)),
			"n":     record.Int(id),
		})
	}
	return out
}
