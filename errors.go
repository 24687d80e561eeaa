package memlayout

import (
	"errors"

	"github.com/alexhholmes/memlayout/internal/errs"
)

// ErrorKind identifies which row of the spec's error taxonomy (§7) an
// Error belongs to.
type ErrorKind = errs.Kind

// The error taxonomy of spec §7. Compare against a returned error's kind
// with ErrorKindOf, or match with errors.Is(err, &Error{Kind: ...}).
const (
	InvalidArgument        = errs.InvalidArgument
	InvalidLayoutError     = errs.InvalidLayout
	UnsupportedLayoutError = errs.UnsupportedLayout
	CapacityExceeded       = errs.CapacityExceeded
	ConcurrentModification = errs.ConcurrentModification
	ParseError             = errs.ParseError
	NotFound               = errs.NotFound
)

// Error is the sole exported error type of the module; every failure
// raised by the layout engine, path parser, access engine, or either
// container is an *Error.
type Error = errs.Error

// ErrorKindOf extracts the ErrorKind from err, if err is (or wraps) an
// *Error produced by this module.
func ErrorKindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
