package sqlsource

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/gjson"

	"github.com/roach88/gridview/internal/record"
	"github.com/roach88/gridview/internal/store"
)

// ErrNoRecords is returned when an import document holds no record list.
var ErrNoRecords = errors.New("no record list found")

// ParseRecords reads a JSON document holding records: either a top-level
// array or an object with a "results" or "tasks" array.
func ParseRecords(r io.Reader) ([]record.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("read records: invalid JSON")
	}

	doc := gjson.ParseBytes(data)
	list := doc
	if !doc.IsArray() {
		list = doc.Get("results")
		if !list.IsArray() {
			list = doc.Get("tasks")
		}
	}
	if !list.IsArray() {
		return nil, ErrNoRecords
	}

	var (
		recs []record.Record
		errs []error
	)
	for i, item := range list.Array() {
		rec, err := record.Decode([]byte(item.Raw))
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		recs = append(recs, rec)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return recs, nil
}

// Import reads records from r and stores them for a view. It returns the
// number of records written.
func Import(ctx context.Context, st *store.Store, viewID string, r io.Reader) (int, error) {
	recs, err := ParseRecords(r)
	if err != nil {
		return 0, err
	}
	if err := st.PutRecords(ctx, viewID, recs); err != nil {
		return 0, err
	}
	return len(recs), nil
}
