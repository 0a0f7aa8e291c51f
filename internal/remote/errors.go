package remote

import (
	"errors"
	"fmt"
)

// FetchError is the failure of one fetch.
type FetchError struct {
	// Code identifies the failure category.
	Code FetchErrorCode

	// Generation is the generation of the failed fetch. Sources leave it
	// zero; the Coordinator fills it in.
	Generation int64

	// Status is the server status code for CodeServer, when known.
	Status int

	// Err is the underlying cause.
	Err error
}

// FetchErrorCode categorizes fetch failures.
type FetchErrorCode string

const (
	// CodeTransport means the source could not be reached.
	CodeTransport FetchErrorCode = "TRANSPORT"

	// CodeServer means the source answered with a failure.
	CodeServer FetchErrorCode = "SERVER"

	// CodeDecode means the response could not be decoded.
	CodeDecode FetchErrorCode = "DECODE"
)

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d: %v (generation=%d)", e.Code, e.Status, e.Err, e.Generation)
	case e.Generation != 0:
		return fmt.Sprintf("%s: %v (generation=%d)", e.Code, e.Err, e.Generation)
	default:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
}

// Unwrap returns the cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err as a CodeTransport failure.
func NewTransportError(err error) *FetchError {
	return &FetchError{Code: CodeTransport, Err: err}
}

// NewServerError wraps err as a CodeServer failure with an optional status.
func NewServerError(status int, err error) *FetchError {
	return &FetchError{Code: CodeServer, Status: status, Err: err}
}

// NewDecodeError wraps err as a CodeDecode failure.
func NewDecodeError(err error) *FetchError {
	return &FetchError{Code: CodeDecode, Err: err}
}

// CodeOf returns the FetchErrorCode in err's chain, or "" if there is none.
func CodeOf(err error) FetchErrorCode {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// IsFetchError reports whether err wraps a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// asFetchError returns err as a *FetchError stamped with gen. Errors that
// are not already classified are treated as transport failures.
func asFetchError(err error, gen int64) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		out := *fe
		out.Generation = gen
		return &out
	}
	return &FetchError{Code: CodeTransport, Generation: gen, Err: err}
}
