// Package errs defines the typed error taxonomy shared by every layer of
// memlayout: the layout engine, path parser, access engine, and the two
// containers all raise these same kinds so callers can errors.Is/As
// regardless of which component failed.
package errs

import "fmt"

// Kind identifies one row of the error taxonomy.
type Kind int

const (
	InvalidArgument Kind = iota
	InvalidLayout
	UnsupportedLayout
	CapacityExceeded
	ConcurrentModification
	ParseError
	NotFound
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case InvalidLayout:
		return "InvalidLayoutError"
	case UnsupportedLayout:
		return "UnsupportedLayoutError"
	case CapacityExceeded:
		return "CapacityExceeded"
	case ConcurrentModification:
		return "ConcurrentModification"
	case ParseError:
		return "ParseError"
	case NotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// Error is the single exported error type for the module. Op names the
// operation that failed (e.g. "layout.Compute", "Accessor.Get"); Kind is
// one of the taxonomy rows in spec §7; Err, when non-nil, is the
// underlying reason and is reachable via errors.Unwrap.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is(err, &Error{Kind: SomeKind}) by comparing Kind, in
// addition to the usual identity/Unwrap comparisons errors.Is already
// performs.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error with a formatted reason.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap builds an *Error around an existing error.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns err's Kind when err is itself an *Error; it does not
// unwrap err to look for an *Error further down the chain.
func KindOf(err error) (Kind, bool) {
	e, ok := err.(*Error)
	if !ok {
		return 0, false
	}
	return e.Kind, true
}
