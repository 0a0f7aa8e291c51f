package column

import (
	"errors"
	"fmt"
)

// ConfigError reports a column definition the store refuses to accept.
// Configuration errors are fatal at view initialization; they are surfaced
// before the first render instead of degrading into misrendered cells.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Index is the position of the offending entry in the input list.
	Index int

	// ColumnID is the offending column id, when known.
	ColumnID string

	// Message is a human-readable description.
	Message string
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeDuplicateID indicates two entries share the same id.
	ErrCodeDuplicateID ConfigErrorCode = "DUPLICATE_ID"

	// ErrCodeDuplicateSlot indicates two entries claim the same semantic slot.
	ErrCodeDuplicateSlot ConfigErrorCode = "DUPLICATE_SLOT"

	// ErrCodeInvalidColumn indicates an entry without an id or of an unsupported shape.
	ErrCodeInvalidColumn ConfigErrorCode = "INVALID_COLUMN"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.ColumnID != "" {
		return fmt.Sprintf("%s: %s (column=%s, index=%d)", e.Code, e.Message, e.ColumnID, e.Index)
	}
	return fmt.Sprintf("%s: %s (index=%d)", e.Code, e.Message, e.Index)
}

// IsConfigError reports whether err wraps any ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsDuplicateID reports whether err wraps a duplicate id error.
func IsDuplicateID(err error) bool {
	return hasCode(err, ErrCodeDuplicateID)
}

// IsDuplicateSlot reports whether err wraps a duplicate slot error.
func IsDuplicateSlot(err error) bool {
	return hasCode(err, ErrCodeDuplicateSlot)
}

// ConfigErrors flattens a joined error into its ConfigError parts.
func ConfigErrors(err error) []*ConfigError {
	if err == nil {
		return nil
	}
	var out []*ConfigError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, ConfigErrors(e)...)
		}
		return out
	}
	var ce *ConfigError
	if errors.As(err, &ce) {
		out = append(out, ce)
	}
	return out
}

func hasCode(err error, code ConfigErrorCode) bool {
	for _, ce := range ConfigErrors(err) {
		if ce.Code == code {
			return true
		}
	}
	return false
}
