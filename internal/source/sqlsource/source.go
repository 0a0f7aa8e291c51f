// Package sqlsource serves view pages from records stored in the SQLite
// store.
//
// Each List call runs two statements on the store's single connection: the
// page query and a count over the same WHERE clause. Results are decoded
// from the stored canonical JSON.
package sqlsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/gridview/internal/query"
	"github.com/roach88/gridview/internal/record"
	"github.com/roach88/gridview/internal/remote"
	"github.com/roach88/gridview/internal/store"
)

// Source lists records for a view from a store.
type Source struct {
	store  *store.Store
	logger *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) {
		s.logger = l
	}
}

// New creates a source over st.
func New(st *store.Store, opts ...Option) *Source {
	s := &Source{store: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List implements remote.Source.
func (s *Source) List(ctx context.Context, viewID string, params query.ListParams) (remote.PageResult, error) {
	stmt, err := Compile(viewID, params)
	if err != nil {
		return remote.PageResult{}, remote.NewTransportError(fmt.Errorf("compile: %w", err))
	}

	var count int
	if err := s.store.QueryRow(ctx, stmt.CountQuery, stmt.CountArgs...).Scan(&count); err != nil {
		return remote.PageResult{}, queryError("count", err)
	}

	rows, err := s.store.Query(ctx, stmt.Query, stmt.Args...)
	if err != nil {
		return remote.PageResult{}, queryError("page", err)
	}
	defer rows.Close()

	results := make([]record.Record, 0, min(count, params.PageSize))
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return remote.PageResult{}, queryError("scan", err)
		}
		rec, err := record.Decode([]byte(data))
		if err != nil {
			return remote.PageResult{}, remote.NewDecodeError(fmt.Errorf("record: %w", err))
		}
		if len(params.Include) > 0 {
			rec = rec.Pick(params.Include)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return remote.PageResult{}, queryError("page", err)
	}

	s.logger.Debug("page listed",
		"view", viewID,
		"page", params.Page,
		"rows", len(results),
		"total", count,
	)
	return remote.PageResult{Results: results, Count: count}, nil
}

// queryError keeps context errors unwrapped so a cancelled fetch is
// recognised as such; everything else is a transport failure.
func queryError(stage string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return remote.NewTransportError(fmt.Errorf("%s query: %w", stage, err))
}
