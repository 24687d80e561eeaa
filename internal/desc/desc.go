// Package desc is the recursive TypeDescriptor model (spec §3). It is kept
// separate from the root package so the layout engine, path parser, and
// access engine can all depend on it without importing the root package
// (which depends on all three).
//
// A TypeDescriptor tree is built once by the caller via the constructor
// functions below and treated as immutable afterwards — the same
// TypeDescriptor is expected to be reused across many Accessor/container
// constructions, exactly as the teacher repository expects a @layout
// annotation to be parsed once per type.
package desc

import "github.com/alexhholmes/memlayout/internal/errs"

// PrimitiveKind enumerates the scalar kinds a Primitive descriptor may hold.
type PrimitiveKind int

const (
	Bool PrimitiveKind = iota
	I8
	U8
	I16
	U16
	I32
	U32
	I64
	U64
	F32
	F64
	Char16
)

func (k PrimitiveKind) String() string {
	switch k {
	case Bool:
		return "bool"
	case I8:
		return "i8"
	case U8:
		return "u8"
	case I16:
		return "i16"
	case U16:
		return "u16"
	case I32:
		return "i32"
	case U32:
		return "u32"
	case I64:
		return "i64"
	case U64:
		return "u64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Char16:
		return "char16"
	default:
		return "unknown"
	}
}

// Width returns the primitive's width in bytes. Default alignment always
// equals width (spec §6).
func (k PrimitiveKind) Width() uint64 {
	switch k {
	case Bool, I8, U8:
		return 1
	case I16, U16, Char16:
		return 2
	case I32, U32, F32:
		return 4
	case I64, U64, F64:
		return 8
	default:
		return 0
	}
}

// ByteOrder selects the on-wire encoding of a primitive field.
type ByteOrder int

const (
	NativeEndian ByteOrder = iota
	LittleEndian
	BigEndian
)

func (b ByteOrder) String() string {
	switch b {
	case LittleEndian:
		return "little_endian"
	case BigEndian:
		return "big_endian"
	default:
		return "native"
	}
}

// TypeDescriptor is the sealed interface implemented by Primitive, Struct,
// Union, and Array descriptors.
type TypeDescriptor interface {
	typeDescriptor()
}

// Primitive is a scalar leaf.
type Primitive struct {
	Kind PrimitiveKind
}

func (*Primitive) typeDescriptor() {}

// NewPrimitive constructs a Primitive descriptor for kind. Descriptors are
// returned as pointers so that process-wide layout caches (internal/layout)
// can key on pointer identity instead of requiring TypeDescriptor to be a
// comparable value (Aggregate holds a slice and is not comparable).
func NewPrimitive(kind PrimitiveKind) TypeDescriptor { return &Primitive{Kind: kind} }

// FieldOpts carries the per-field overrides of spec §3's FieldOpts.
type FieldOpts struct {
	// NameOverride, when non-empty, is the Member name produced by the
	// layout engine in place of the FieldDescriptor's Name.
	NameOverride string
	// AlignmentOverride, when non-zero, must be a power of two; the
	// layout engine rejects anything else with InvalidArgument.
	AlignmentOverride uint64
	// PaddingBefore, when non-nil, is the exact pre-padding to insert
	// before this field, overriding auto-padding for this field only.
	PaddingBefore *uint64
	// ByteOrder is only meaningful on primitive fields; the layout
	// engine rejects a non-native override on a non-primitive field
	// with InvalidLayoutError.
	ByteOrder ByteOrder
}

// FieldDescriptor is one named, typed, optioned member of a Struct or
// Union descriptor.
type FieldDescriptor struct {
	Name string
	Type TypeDescriptor
	Opts FieldOpts
}

// NewField builds a FieldDescriptor. opts is variadic purely for call-site
// ergonomics (Field("x", t) vs Field("x", t, opts)); at most the first
// element is used.
func NewField(name string, t TypeDescriptor, opts ...FieldOpts) FieldDescriptor {
	var o FieldOpts
	if len(opts) > 0 {
		o = opts[0]
	}
	return FieldDescriptor{Name: name, Type: t, Opts: o}
}

// AggregateKind distinguishes Struct from Union layout.
type AggregateKind int

const (
	StructAggregate AggregateKind = iota
	UnionAggregate
)

// LayoutOpts carries the per-aggregate overrides of spec §3's LayoutOpts.
type LayoutOpts struct {
	Kind AggregateKind
	// AutoPadding defaults to true; ignored for unions.
	AutoPadding bool
	// EndPadding: -1 means "auto" (the spec §4.A default for structs);
	// 0 means "no end padding"; any other non-negative value is added
	// verbatim. Meaningful only at the outermost struct level.
	EndPadding int64
}

// DefaultLayoutOpts returns the spec-mandated defaults for a struct.
func DefaultLayoutOpts() LayoutOpts {
	return LayoutOpts{Kind: StructAggregate, AutoPadding: true, EndPadding: -1}
}

// Aggregate is a Struct or Union descriptor; which one is determined by
// Opts.Kind.
type Aggregate struct {
	Fields []FieldDescriptor
	Opts   LayoutOpts
}

func (*Aggregate) typeDescriptor() {}

// NewStruct builds a Struct descriptor. If opts is omitted,
// DefaultLayoutOpts is used.
func NewStruct(fields []FieldDescriptor, opts ...LayoutOpts) TypeDescriptor {
	o := DefaultLayoutOpts()
	if len(opts) > 0 {
		o = opts[0]
	}
	o.Kind = StructAggregate
	return &Aggregate{Fields: fields, Opts: o}
}

// NewUnion builds a Union descriptor. Auto-padding is always disabled for
// unions regardless of what opts requests (spec §4.A: "Auto-padding is
// disabled" for Union).
func NewUnion(fields []FieldDescriptor, opts ...LayoutOpts) TypeDescriptor {
	o := DefaultLayoutOpts()
	if len(opts) > 0 {
		o = opts[0]
	}
	o.Kind = UnionAggregate
	o.AutoPadding = false
	return &Aggregate{Fields: fields, Opts: o}
}

// Array is a fixed- or unsized-tail (Count == 0) repetition of Element.
type Array struct {
	Element TypeDescriptor
	Count   uint64
}

func (*Array) typeDescriptor() {}

// NewArray builds an Array descriptor. count == 0 denotes an unsized tail.
func NewArray(elem TypeDescriptor, count uint64) TypeDescriptor {
	return &Array{Element: elem, Count: count}
}

// IsPowerOfTwo reports whether v is a power of two (v > 0).
func IsPowerOfTwo(v uint64) bool {
	return v > 0 && v&(v-1) == 0
}

// ValidateAlignmentOverride is shared by the layout engine so both the
// struct and union code paths raise the identical error.
func ValidateAlignmentOverride(op string, a uint64) error {
	if a != 0 && !IsPowerOfTwo(a) {
		return errs.New(errs.InvalidArgument, op, "alignment override %d is not a power of two", a)
	}
	return nil
}
