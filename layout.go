package memlayout

import (
	"github.com/alexhholmes/memlayout/internal/layout"
	"github.com/alexhholmes/memlayout/internal/pathparse"
)

// LayoutShape distinguishes what a ComputedLayout was computed from.
type LayoutShape = layout.Shape

const (
	PrimitiveShape = layout.PrimitiveShape
	StructShape    = layout.StructShape
	UnionShape     = layout.UnionShape
	ArrayShape     = layout.ArrayShape
)

// MemberKind distinguishes a Padding run from a Field within a computed
// struct or union layout.
type MemberKind = layout.MemberKind

const (
	PaddingMember = layout.PaddingMember
	FieldMember   = layout.FieldMember
)

// Member is one entry of a struct or union's ComputedLayout (spec §3).
type Member = layout.Member

// ComputedLayout is the deterministic byte-level outcome of applying the
// Layout Engine's rules to a TypeDescriptor (spec §3/§4.A).
type ComputedLayout = layout.Computed

// LayoutOf computes (and memoizes) the ComputedLayout for t.
func LayoutOf(t TypeDescriptor) (*ComputedLayout, error) {
	return layout.Compute(t)
}

// ByteOffsetOf resolves path against computed without requiring an
// Accessor, for callers (e.g. a diagnostic CLI) that only need an
// offset and have no concrete Go type to bind. Fails if path requires
// one or more array indices.
func ByteOffsetOf(computed *ComputedLayout, path string) (uint64, error) {
	return pathparse.ByteOffset(computed, path)
}
