package memlayout

import "github.com/alexhholmes/memlayout/internal/desc"

// TypeDescriptor is the recursive, immutable description of a composite
// value (spec §3): a Primitive leaf, a Struct or Union of named fields, or
// an Array of a fixed (or, with count 0, unsized-tail) repetition of an
// element type.
type TypeDescriptor = desc.TypeDescriptor

// PrimitiveKind enumerates the scalar kinds Primitive may hold.
type PrimitiveKind = desc.PrimitiveKind

const (
	KBool   = desc.Bool
	KI8     = desc.I8
	KU8     = desc.U8
	KI16    = desc.I16
	KU16    = desc.U16
	KI32    = desc.I32
	KU32    = desc.U32
	KI64    = desc.I64
	KU64    = desc.U64
	KF32    = desc.F32
	KF64    = desc.F64
	KChar16 = desc.Char16
)

// ByteOrder selects a primitive field's on-wire encoding.
type ByteOrder = desc.ByteOrder

const (
	NativeEndian = desc.NativeEndian
	LittleEndian = desc.LittleEndian
	BigEndian    = desc.BigEndian
)

// FieldOpts carries the per-field overrides of spec §3.
type FieldOpts = desc.FieldOpts

// FieldDescriptor is one named, typed member of a Struct or Union.
type FieldDescriptor = desc.FieldDescriptor

// AggregateKind distinguishes Struct from Union layout.
type AggregateKind = desc.AggregateKind

const (
	StructAggregate = desc.StructAggregate
	UnionAggregate  = desc.UnionAggregate
)

// LayoutOpts carries the per-aggregate overrides of spec §3.
type LayoutOpts = desc.LayoutOpts

// DefaultLayoutOpts returns {Kind: StructAggregate, AutoPadding: true,
// EndPadding: -1 ("auto")}.
func DefaultLayoutOpts() LayoutOpts { return desc.DefaultLayoutOpts() }

// Primitive constructs a scalar TypeDescriptor.
func Primitive(kind PrimitiveKind) TypeDescriptor { return desc.NewPrimitive(kind) }

// Field builds a FieldDescriptor; opts is optional (zero value if
// omitted), matching the convenience of writing Field("x", Primitive(KI32))
// for the common case with no overrides.
func Field(name string, t TypeDescriptor, opts ...FieldOpts) FieldDescriptor {
	return desc.NewField(name, t, opts...)
}

// Struct builds a Struct TypeDescriptor; opts is optional
// (DefaultLayoutOpts() if omitted).
func Struct(fields []FieldDescriptor, opts ...LayoutOpts) TypeDescriptor {
	return desc.NewStruct(fields, opts...)
}

// Union builds a Union TypeDescriptor; auto-padding is always disabled.
func Union(fields []FieldDescriptor, opts ...LayoutOpts) TypeDescriptor {
	return desc.NewUnion(fields, opts...)
}

// Array builds an Array TypeDescriptor. count == 0 denotes an unsized
// tail.
func Array(elem TypeDescriptor, count uint64) TypeDescriptor {
	return desc.NewArray(elem, count)
}

// PaddingBeforeOf is a small helper for building FieldOpts.PaddingBefore,
// which must distinguish "unset" (nil, auto-computed) from an explicit
// zero.
func PaddingBeforeOf(n uint64) *uint64 { return &n }
