package cacheerr

import (
	"errors"
)

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

// ErrCode is the closed set of failure categories reported by every layer of the persistence pipeline.
type ErrCode uint8

const (
	ErrCUnknown         ErrCode = iota // 0: Uncategorized failure (I/O fault, codec fault).
	ErrCConfig                         // 1: Invalid target, invalid known types or invalid option.
	ErrCResourceBusy                   // 2: Exclusive access to a target could not be acquired.
	ErrCUnitTestRelated                // 3: Reserved for the test suite.
)

// String renders the code the way it appears in error messages.
func (c ErrCode) String() string {
	switch c {
	case ErrCConfig:
		return "ConfigError"
	case ErrCResourceBusy:
		return "ResourceBusy"
	case ErrCUnitTestRelated:
		return "UnitTestRelated"
	default:
		return "UnknownError"
	}
}

// Codes returns every defined error code.
func Codes() []ErrCode {
	return []ErrCode{ErrCUnknown, ErrCConfig, ErrCResourceBusy, ErrCUnitTestRelated}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps an error code, an optional detail and an optional cause.
// The message is always "CODE" or "CODE:detail". The cause is never part of the message,
// it is only reachable through Unwrap (and therefore errors.Is / errors.As).
type Error struct {
	Code      ErrCode // The error code
	Detail    string  // The optional detail text
	hasDetail bool
	cause     error
}

// New creates an error carrying only a code.
func New(code ErrCode) *Error {
	return &Error{Code: code}
}

// NewWithDetail creates an error carrying a code and a detail text.
func NewWithDetail(code ErrCode, detail string) *Error {
	return &Error{Code: code, Detail: detail, hasDetail: true}
}

// NewWithCause creates an error carrying a code, a detail text and the underlying cause.
func NewWithCause(code ErrCode, detail string, cause error) *Error {
	return &Error{Code: code, Detail: detail, hasDetail: true, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if !e.hasDetail {
		return e.Code.String()
	}
	return e.Code.String() + ":" + e.Detail
}

// Unwrap returns the cause (nil if none was supplied).
func (e *Error) Unwrap() error {
	return e.cause
}

// Cause returns the exact error value the Error was constructed with.
func (e *Error) Cause() error {
	return e.cause
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// Wrap converts err into an *Error. A nil err yields nil. If err already carries an *Error in its chain,
// that error is returned as is so the most specific code survives crossing layer boundaries.
func Wrap(code ErrCode, detail string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewWithCause(code, detail, err)
}

// CodeOf returns the code of the first *Error in the chain of err.
func CodeOf(err error) (ErrCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return ErrCUnknown, false
}

// IsCode reports whether err carries an *Error with the given code.
func IsCode(err error, code ErrCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
