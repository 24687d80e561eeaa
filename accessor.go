package memlayout

import (
	"reflect"

	"github.com/alexhholmes/memlayout/internal/access"
	"github.com/alexhholmes/memlayout/internal/errs"
	"github.com/alexhholmes/memlayout/internal/layout"
	"github.com/alexhholmes/memlayout/internal/pathparse"
)

// Accessor[T] is an immutable object bound to a TypeDescriptor for T and
// its ComputedLayout; it owns the compiled encoders/decoders and offset
// tables (spec §3, §4.D). Build it once per (T, TypeDescriptor) pair and
// share it — it is safe for concurrent use by any number of readers and
// writers, since it never touches a Buffer's bytes except through the
// Buffer the caller passes in.
type Accessor[T any] struct {
	desc     TypeDescriptor
	computed *ComputedLayout
	codec    *access.Codec // bulk struct codec; nil unless computed.Shape == StructShape
	prim     *primCodec    // scalar codec; nil unless computed.Shape == PrimitiveShape
	codecErr error
}

// NewAccessor computes t's layout and eagerly compiles a codec for T
// (spec Design Notes: "Prefer eager construction in the Accessor
// constructor"): a struct codec when t describes a Struct and T is a Go
// struct, a scalar codec when t describes a Primitive and T is the
// matching Go scalar. Building still succeeds when neither applies (e.g.
// t is a Union or an Array, or T's kind doesn't match); in that case
// Get/Set fail lazily with UnsupportedLayoutError, matching spec §4.D:
// "Fails with UnsupportedLayoutError if the layout contains union or
// nested sequence leaves" — only the bulk path is refused, scalar
// path-based access via ByteOffset/FieldAccessor remains available.
func NewAccessor[T any](t TypeDescriptor) (*Accessor[T], error) {
	const op = "NewAccessor"

	computed, err := layout.Compute(t)
	if err != nil {
		return nil, err
	}

	a := &Accessor[T]{desc: t, computed: computed}

	goType := reflect.TypeOf((*T)(nil)).Elem()
	switch {
	case computed.Shape == layout.StructShape && goType.Kind() == reflect.Struct:
		codec, cerr := access.Build(goType, computed)
		a.codec = codec
		a.codecErr = cerr
	case computed.Shape == layout.PrimitiveShape:
		pc, cerr := newPrimCodec(op, computed.PrimitiveKind, NativeEndian, goType)
		a.prim = pc
		a.codecErr = cerr
	default:
		a.codecErr = errs.New(errs.UnsupportedLayout, op, "T=%s is not bindable to layout shape %v", goType, computed.Shape)
	}

	return a, nil
}

// Layout returns the ComputedLayout this accessor was built from.
func (a *Accessor[T]) Layout() *ComputedLayout { return a.computed }

// Stride is the byte distance between adjacent array elements of T.
func (a *Accessor[T]) Stride() uint64 { return a.computed.Size }

// NewValue allocates one zeroed element's worth of buffer.
func (a *Accessor[T]) NewValue(alloc Allocator) (Buffer, error) {
	return alloc.Allocate(a.computed.Size, a.computed.Alignment)
}

// NewValueFrom allocates one element's worth of buffer and immediately
// encodes v into it.
func (a *Accessor[T]) NewValueFrom(alloc Allocator, v T) (Buffer, error) {
	buf, err := a.NewValue(alloc)
	if err != nil {
		return Buffer{}, err
	}
	if err := a.Set(buf, v); err != nil {
		return Buffer{}, err
	}
	return buf, nil
}

// NewArray allocates n*stride bytes, zeroed, stride-aligned. n == 0
// yields an empty buffer.
func (a *Accessor[T]) NewArray(alloc Allocator, n uint64) (Buffer, error) {
	const op = "Accessor.NewArray"
	return allocN(alloc, op, a.computed.Size, a.computed.Alignment, n)
}

func allocN(alloc Allocator, op string, stride, align, n uint64) (Buffer, error) {
	size := stride * n
	if n != 0 && size/n != stride {
		return Buffer{}, errs.New(errs.CapacityExceeded, op, "n=%d * stride=%d overflows", n, stride)
	}
	return alloc.Allocate(size, align)
}

func (a *Accessor[T]) requireCodec(op string) error {
	if a.codec == nil && a.prim == nil {
		if a.codecErr != nil {
			return a.codecErr
		}
		return errs.New(errs.UnsupportedLayout, op, "no bulk codec available")
	}
	return nil
}

func (a *Accessor[T]) checkBuffer(op string, buf Buffer) error {
	if a.computed.Alignment != 0 && buf.Base()%uintptr(a.computed.Alignment) != 0 {
		return errs.New(errs.InvalidArgument, op, "buffer base %#x is not %d-byte aligned", buf.Base(), a.computed.Alignment)
	}
	if uint64(len(buf.Bytes)) < a.computed.Size {
		return errs.New(errs.InvalidArgument, op, "buffer of %d bytes is smaller than layout size %d", len(buf.Bytes), a.computed.Size)
	}
	return nil
}

// Get decodes one element starting at offset 0 (spec §4.D).
func (a *Accessor[T]) Get(buf Buffer) (T, error) {
	const op = "Accessor.Get"
	var zero T
	if err := a.requireCodec(op); err != nil {
		return zero, err
	}
	if err := a.checkBuffer(op, buf); err != nil {
		return zero, err
	}
	return a.decodeAt(buf.Bytes, 0), nil
}

// Set encodes v into buf at offset 0.
func (a *Accessor[T]) Set(buf Buffer, v T) error {
	const op = "Accessor.Set"
	if err := a.requireCodec(op); err != nil {
		return err
	}
	if err := a.checkBuffer(op, buf); err != nil {
		return err
	}
	return a.encodeAt(buf.Bytes, 0, v)
}

// decodeAt and encodeAt dispatch to whichever codec NewAccessor built
// (struct or scalar); callers are required to have passed requireCodec
// first.
func (a *Accessor[T]) decodeAt(buf []byte, off uint64) T {
	if a.prim != nil {
		v, _ := a.prim.get(buf, off)
		return v.(T)
	}
	return a.codec.Decode(buf, off).Interface().(T)
}

func (a *Accessor[T]) encodeAt(buf []byte, off uint64, v T) error {
	if a.prim != nil {
		return a.prim.set(buf, off, v)
	}
	a.codec.Encode(buf, off, reflect.ValueOf(v))
	return nil
}

func (a *Accessor[T]) elementBounds(op string, buf Buffer, i uint64) (uint64, error) {
	stride := a.computed.Size
	start := i * stride
	if stride != 0 && start/stride != i {
		return 0, errs.New(errs.InvalidArgument, op, "index %d overflows", i)
	}
	if start+stride > uint64(len(buf.Bytes)) {
		return 0, errs.New(errs.InvalidArgument, op, "index %d out of range for buffer of %d bytes (stride %d)", i, len(buf.Bytes), stride)
	}
	return start, nil
}

// GetAt decodes the element at index i of buf, equivalent to Get on the
// sub-slice [i*stride, (i+1)*stride).
func (a *Accessor[T]) GetAt(buf Buffer, i uint64) (T, error) {
	const op = "Accessor.GetAt"
	var zero T
	if err := a.requireCodec(op); err != nil {
		return zero, err
	}
	start, err := a.elementBounds(op, buf, i)
	if err != nil {
		return zero, err
	}
	return a.decodeAt(buf.Bytes, start), nil
}

// SetAt encodes v at index i of buf.
func (a *Accessor[T]) SetAt(buf Buffer, i uint64, v T) error {
	const op = "Accessor.SetAt"
	if err := a.requireCodec(op); err != nil {
		return err
	}
	start, err := a.elementBounds(op, buf, i)
	if err != nil {
		return err
	}
	return a.encodeAt(buf.Bytes, start, v)
}

// ByteOffset resolves path against this accessor's layout and returns the
// constant byte offset it addresses. Fails if the path requires one or
// more array indices (use FieldAccessor for that case).
func (a *Accessor[T]) ByteOffset(path string) (uint64, error) {
	return pathparse.ByteOffset(a.computed, path)
}

// List returns a random-access view of buf as an array of T.
func (a *Accessor[T]) List(buf Buffer) (*SequenceView[T], error) {
	const op = "Accessor.List"
	if err := a.requireCodec(op); err != nil {
		return nil, err
	}
	stride := a.computed.Size
	if stride != 0 && uint64(len(buf.Bytes))%stride != 0 {
		return nil, errs.New(errs.InvalidArgument, op, "buffer length %d is not a multiple of stride %d", len(buf.Bytes), stride)
	}
	return &SequenceView[T]{acc: a, buf: buf, stride: stride}, nil
}

// Stream returns a lazy, forward-only, non-restartable ordered sequence
// of T over buf.
func (a *Accessor[T]) Stream(buf Buffer) (*LazySeq[T], error) {
	view, err := a.List(buf)
	if err != nil {
		return nil, err
	}
	return &LazySeq[T]{view: view}, nil
}

// SequenceView is a random-access view of a Buffer as an array of T (spec
// §4.D).
type SequenceView[T any] struct {
	acc    *Accessor[T]
	buf    Buffer
	stride uint64
}

// Len returns the number of elements the view covers.
func (v *SequenceView[T]) Len() int {
	if v.stride == 0 {
		return 0
	}
	return len(v.buf.Bytes) / int(v.stride)
}

// Get decodes the element at index i.
func (v *SequenceView[T]) Get(i int) (T, error) {
	var zero T
	if i < 0 || i >= v.Len() {
		return zero, errs.New(errs.InvalidArgument, "SequenceView.Get", "index %d out of range [0, %d)", i, v.Len())
	}
	return v.acc.decodeAt(v.buf.Bytes, uint64(i)*v.stride), nil
}

// Set encodes val at index i and returns the element previously there.
func (v *SequenceView[T]) Set(i int, val T) (T, error) {
	var zero T
	if i < 0 || i >= v.Len() {
		return zero, errs.New(errs.InvalidArgument, "SequenceView.Set", "index %d out of range [0, %d)", i, v.Len())
	}
	old := v.acc.decodeAt(v.buf.Bytes, uint64(i)*v.stride)
	if err := v.acc.encodeAt(v.buf.Bytes, uint64(i)*v.stride, val); err != nil {
		return zero, err
	}
	return old, nil
}

// LazySeq is a lazy, forward-only, non-restartable ordered sequence of T
// (spec §4.D). It supports Split into independent sub-sequences over
// disjoint index ranges since the underlying view is random-access.
type LazySeq[T any] struct {
	view *SequenceView[T]
	next int
	end  int  // exclusive; valid only once init is set
	init bool // false means "end not yet set, use view.Len()"
}

func (s *LazySeq[T]) bound() int {
	if !s.init {
		s.end = s.view.Len()
		s.init = true
	}
	return s.end
}

// Next returns the next element, or ok == false when the sequence is
// exhausted.
func (s *LazySeq[T]) Next() (v T, ok bool) {
	if s.next >= s.bound() {
		return v, false
	}
	val, err := s.view.Get(s.next)
	if err != nil {
		return v, false
	}
	s.next++
	return val, true
}

// Split divides the remaining range into n independent LazySeq values
// over disjoint, contiguous index ranges, each safe to drain
// concurrently (the underlying Buffer is read-only from the reader's
// perspective, per spec §5's "concurrent readers of an immutable
// snapshot are allowed").
func (s *LazySeq[T]) Split(n int) []*LazySeq[T] {
	if n <= 0 {
		return nil
	}
	total := s.bound() - s.next
	if total <= 0 {
		return nil
	}
	chunk := (total + n - 1) / n
	var out []*LazySeq[T]
	for start := s.next; start < s.bound(); start += chunk {
		end := start + chunk
		if end > s.bound() {
			end = s.bound()
		}
		out = append(out, &LazySeq[T]{view: s.view, next: start, end: end, init: true})
	}
	return out
}

// TypedFieldAccessor is a path-resolved handle that reads or writes the
// field F addressed by a path string, given zero or more indices (one per
// ArrayStep in the path). F must match the primitive kind or struct shape
// the path resolves to; see FieldAccessor.
type TypedFieldAccessor[F any] struct {
	resolved *pathparse.Resolved
	strides  []uint64
	prim     *primCodec
	structC  *access.Codec
}

// FieldAccessor resolves path against a's layout and returns a handle
// typed at F, the Go type the caller expects the addressed field to hold.
// It is a package-level generic function rather than an Accessor method
// because Go methods cannot introduce additional type parameters.
func FieldAccessor[T any, F any](a *Accessor[T], path string) (*TypedFieldAccessor[F], error) {
	const op = "FieldAccessor"
	steps, err := pathparse.Parse(path)
	if err != nil {
		return nil, err
	}
	resolved, err := pathparse.Resolve(a.computed, steps)
	if err != nil {
		return nil, err
	}

	fType := reflect.TypeOf((*F)(nil)).Elem()

	switch resolved.Final.Shape {
	case layout.PrimitiveShape:
		pc, err := newPrimCodec(op, resolved.Final.PrimitiveKind, resolved.ByteOrder, fType)
		if err != nil {
			return nil, err
		}
		return &TypedFieldAccessor[F]{resolved: resolved, strides: resolved.Strides, prim: pc}, nil

	case layout.StructShape:
		if fType.Kind() != reflect.Struct {
			return nil, errs.New(errs.InvalidArgument, op, "path %q addresses a struct but F=%s is not one", path, fType)
		}
		codec, err := access.Build(fType, resolved.Final)
		if err != nil {
			return nil, err
		}
		return &TypedFieldAccessor[F]{resolved: resolved, strides: resolved.Strides, structC: codec}, nil

	default:
		return nil, errs.New(errs.UnsupportedLayout, op, "path %q addresses an unsupported shape for bulk access", path)
	}
}

func (h *TypedFieldAccessor[F]) offset(indices []uint64) (uint64, error) {
	if len(indices) != len(h.strides) {
		return 0, errs.New(errs.InvalidArgument, "TypedFieldAccessor", "expected %d index(es), got %d", len(h.strides), len(indices))
	}
	off := h.resolved.Offset
	for i, idx := range indices {
		off += idx * h.strides[i]
	}
	return off, nil
}

// Get reads the field, given one index per ArrayStep in the path.
func (h *TypedFieldAccessor[F]) Get(buf Buffer, indices ...uint64) (F, error) {
	var zero F
	off, err := h.offset(indices)
	if err != nil {
		return zero, err
	}
	if h.prim != nil {
		v, err := h.prim.get(buf.Bytes, off)
		if err != nil {
			return zero, err
		}
		return v.(F), nil
	}
	return h.structC.Decode(buf.Bytes, off).Interface().(F), nil
}

// Set writes val to the field, given one index per ArrayStep in the path.
func (h *TypedFieldAccessor[F]) Set(buf Buffer, val F, indices ...uint64) error {
	off, err := h.offset(indices)
	if err != nil {
		return err
	}
	if h.prim != nil {
		return h.prim.set(buf.Bytes, off, val)
	}
	h.structC.Encode(buf.Bytes, off, reflect.ValueOf(val))
	return nil
}

// HashCode returns a structural hash of v's encoded byte representation
// (spec §9 design-note-adjacent feature carried from the original's
// MemoryAccess.hashCode, used internally as SpecializedMap's default
// hasher).
func (a *Accessor[T]) HashCode(v T) (uint32, error) {
	const op = "Accessor.HashCode"
	if err := a.requireCodec(op); err != nil {
		return 0, err
	}
	scratch := make([]byte, a.computed.Size)
	if err := a.encodeAt(scratch, 0, v); err != nil {
		return 0, err
	}
	return xxhash32(scratch), nil
}

// Equal reports whether x and y encode to the same bytes.
func (a *Accessor[T]) Equal(x, y T) (bool, error) {
	const op = "Accessor.Equal"
	if err := a.requireCodec(op); err != nil {
		return false, err
	}
	bx := make([]byte, a.computed.Size)
	by := make([]byte, a.computed.Size)
	if err := a.encodeAt(bx, 0, x); err != nil {
		return false, err
	}
	if err := a.encodeAt(by, 0, y); err != nil {
		return false, err
	}
	for i := range bx {
		if bx[i] != by[i] {
			return false, nil
		}
	}
	return true, nil
}
