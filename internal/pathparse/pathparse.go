// Package pathparse is the Path Parser (spec §4.B): it parses the compact
// path grammar `path := (".<ident>" | "[]")+` into an ordered list of
// steps and resolves those steps against a computed layout to produce a
// byte offset or a navigation plan.
//
// Ported from the teacher repository's internal/parser/tag.go, which
// parses a structurally similar compact grammar (leading "@"/"start-end"
// tokens) with the same prefix-dispatch style; ident validation reuses the
// same compiled-regexp approach internal/parser/annotation.go uses for
// @layout parameters.
package pathparse

import (
	"regexp"
	"strings"

	"github.com/alexhholmes/memlayout/internal/desc"
	"github.com/alexhholmes/memlayout/internal/errs"
	"github.com/alexhholmes/memlayout/internal/layout"
)

// StepKind distinguishes a field step from an array-index step.
type StepKind int

const (
	FieldStep StepKind = iota
	ArrayStep
)

// Step is one parsed atom of a path string.
type Step struct {
	Kind StepKind
	Name string // FieldStep only
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)

// Parse parses path into an ordered list of Steps. A path lacking a
// leading "." or "[]" is a ParseError (spec P9).
func Parse(path string) ([]Step, error) {
	const op = "pathparse.Parse"

	if path == "" {
		return nil, errs.New(errs.ParseError, op, "empty path")
	}

	var steps []Step
	rest := path

	for rest != "" {
		switch {
		case strings.HasPrefix(rest, "[]"):
			steps = append(steps, Step{Kind: ArrayStep})
			rest = rest[2:]

		case strings.HasPrefix(rest, "."):
			rest = rest[1:]
			m := identRe.FindString(rest)
			if m == "" {
				return nil, errs.New(errs.ParseError, op, "expected identifier after '.' in %q", path)
			}
			steps = append(steps, Step{Kind: FieldStep, Name: m})
			rest = rest[len(m):]

		default:
			return nil, errs.New(errs.ParseError, op, "path %q must start with '.' or '[]'", path)
		}
	}

	return steps, nil
}

// Resolved is the outcome of walking Steps against a root Computed layout:
// a byte offset valid when no ArrayStep was traversed, plus enough
// information for the access engine to build an indexed accessor when one
// or more ArrayStep were traversed.
type Resolved struct {
	// Offset accumulates the constant byte offset contributed by
	// FieldSteps and the (fixed) start of any Array region; indices
	// discovered at ArrayStep positions must be added at access time by
	// the caller (multiplying by each array's element stride).
	Offset uint64
	// Strides holds, in traversal order, the element stride of each
	// ArrayStep encountered, so a caller holding concrete indices can
	// compute `offset + sum(index[i] * Strides[i])`.
	Strides []uint64
	// Final is the computed layout of the value the path addresses.
	Final *layout.Computed
	// ByteOrder is Final's byte order when Final is a primitive field
	// reached directly off a struct/union (desc.NativeEndian otherwise).
	ByteOrder desc.ByteOrder
}

// Resolve walks steps against root, starting at byte offset 0.
func Resolve(root *layout.Computed, steps []Step) (*Resolved, error) {
	const op = "pathparse.Resolve"

	cur := root
	var offset uint64
	var strides []uint64
	var lastByteOrder desc.ByteOrder

	for _, s := range steps {
		switch s.Kind {
		case FieldStep:
			if cur.Shape != layout.StructShape && cur.Shape != layout.UnionShape {
				return nil, errs.New(errs.NotFound, op, "field step %q on non-aggregate layout", s.Name)
			}
			m, err := cur.FindMember(s.Name)
			if err != nil {
				return nil, err
			}
			offset += m.Offset
			cur = m.Computed
			lastByteOrder = m.ByteOrder

		case ArrayStep:
			if cur.Shape != layout.ArrayShape {
				return nil, errs.New(errs.NotFound, op, "array step on non-array layout")
			}
			strides = append(strides, cur.Element.Size)
			cur = cur.Element
			lastByteOrder = desc.NativeEndian
		}
	}

	return &Resolved{Offset: offset, Strides: strides, Final: cur, ByteOrder: lastByteOrder}, nil
}

// ByteOffset is a convenience for paths with no ArrayStep: it resolves and
// returns the constant offset, failing if any index is still required.
func ByteOffset(root *layout.Computed, path string) (uint64, error) {
	steps, err := Parse(path)
	if err != nil {
		return 0, err
	}
	r, err := Resolve(root, steps)
	if err != nil {
		return 0, err
	}
	if len(r.Strides) > 0 {
		return 0, errs.New(errs.InvalidArgument, "pathparse.ByteOffset", "path %q requires %d index(es)", path, len(r.Strides))
	}
	return r.Offset, nil
}
