// Package remote coordinates fetches against a paginated record source.
//
// The Coordinator stamps every primary fetch with a generation from a
// monotonic logical clock. Issuing a new primary fetch cancels the previous
// one, and only the latest generation is live: outcomes of older
// generations are dropped without being reported as errors.
//
// Results flow back through a Sink rather than a return value, so the
// single writer that owns view state decides when to apply them.
package remote

import (
	"context"

	"github.com/roach88/gridview/internal/query"
	"github.com/roach88/gridview/internal/record"
)

// Source lists one page of records for a view. Implementations own
// transport, authentication and timeouts.
type Source interface {
	List(ctx context.Context, viewID string, params query.ListParams) (PageResult, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, viewID string, params query.ListParams) (PageResult, error)

// List calls f.
func (f SourceFunc) List(ctx context.Context, viewID string, params query.ListParams) (PageResult, error) {
	return f(ctx, viewID, params)
}

// PageResult is one page of records plus the total count of the full result.
type PageResult struct {
	Results []record.Record `json:"results"`
	Count   int             `json:"count"`
}

// IDs returns the ids of the results in order.
func (r PageResult) IDs() []string {
	ids := make([]string, 0, len(r.Results))
	for _, rec := range r.Results {
		if id := rec.ID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
