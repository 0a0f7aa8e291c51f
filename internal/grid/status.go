package grid

import (
	"encoding/json"
	"errors"
)

var (
	// ErrRowNotFound is returned for an operation on a row that is not in
	// the current row set.
	ErrRowNotFound = errors.New("row not found")
	// ErrCellNotVisible is returned when refreshing a cell whose column is
	// unknown or hidden.
	ErrCellNotVisible = errors.New("column not visible")
	// ErrClosed is returned by operations on a closed view.
	ErrClosed = errors.New("view closed")
)

// Status is the display state of the table body. Loading, error and empty
// never overlap.
type Status uint8

const (
	// StatusEmpty means the last fetch succeeded with no rows, or nothing
	// has been fetched yet.
	StatusEmpty Status = iota
	// StatusLoading means a primary fetch is in flight.
	StatusLoading
	// StatusError means the last primary fetch failed. Rows from the
	// previous success are still available.
	StatusError
	// StatusReady means rows are available and nothing is in flight.
	StatusReady
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusReady:
		return "ready"
	default:
		return "empty"
	}
}

// MarshalJSON encodes the status name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
