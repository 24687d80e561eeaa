package memlayout

import (
	"bytes"
	"reflect"

	"github.com/alexhholmes/memlayout/internal/errs"
)

const maxI32 = 1<<31 - 1

func nextPow2(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}

// SpecializedSequence is the growable contiguous array container of spec
// §4.E: one buffer laid out as T[capacity], capacity always a power of
// two and at least 2.
type SpecializedSequence[T any] struct {
	access   *Accessor[T]
	alloc    Allocator
	buf      Buffer
	size     uint64
	capacity uint64
	logger   *telemetry
}

// SequenceOption configures a SpecializedSequence at construction time.
type SequenceOption func(*sequenceOpts)

type sequenceOpts struct {
	presize uint64
	logger  *telemetry
}

// WithPresize hints the initial capacity; the sequence rounds it up to
// max(2, next_pow2(presize)).
func WithPresize(n uint64) SequenceOption {
	return func(o *sequenceOpts) { o.presize = n }
}

// WithSequenceLogger attaches a structured logger (spec §4.G); the
// default is a no-op.
func WithSequenceLogger(l *Logger) SequenceOption {
	return func(o *sequenceOpts) { o.logger = newTelemetry(l) }
}

// NewSpecializedSequence builds an empty sequence of elements described
// by access, backed by buffers from alloc.
func NewSpecializedSequence[T any](access *Accessor[T], alloc Allocator, opts ...SequenceOption) (*SpecializedSequence[T], error) {
	const op = "NewSpecializedSequence"

	o := sequenceOpts{presize: 2, logger: newTelemetry(nil)}
	for _, f := range opts {
		f(&o)
	}

	capacity := nextPow2(o.presize)
	if capacity < 2 {
		capacity = 2
	}

	buf, err := access.NewArray(alloc, capacity)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, op, err)
	}

	o.logger.Growth(op, 0, capacity)

	return &SpecializedSequence[T]{access: access, alloc: alloc, buf: buf, capacity: capacity, logger: o.logger}, nil
}

// Len returns the number of live elements.
func (s *SpecializedSequence[T]) Len() uint64 { return s.size }

// Cap returns the current backing capacity.
func (s *SpecializedSequence[T]) Cap() uint64 { return s.capacity }

func (s *SpecializedSequence[T]) checkIndex(op string, i uint64, inclusiveEnd bool) error {
	limit := s.size
	if inclusiveEnd {
		limit++
	}
	if i >= limit {
		return errs.New(errs.InvalidArgument, op, "index %d out of range [0, %d)", i, limit)
	}
	return nil
}

// Get returns the element at index i.
func (s *SpecializedSequence[T]) Get(i uint64) (T, error) {
	const op = "SpecializedSequence.Get"
	var zero T
	if err := s.checkIndex(op, i, false); err != nil {
		return zero, err
	}
	return s.access.GetAt(s.buf, i)
}

// Set overwrites the element at index i.
func (s *SpecializedSequence[T]) Set(i uint64, v T) error {
	const op = "SpecializedSequence.Set"
	if err := s.checkIndex(op, i, false); err != nil {
		return err
	}
	return s.access.SetAt(s.buf, i, v)
}

func (s *SpecializedSequence[T]) ensureCapacity(op string, need uint64) error {
	if need <= s.capacity {
		return nil
	}
	newCap := s.capacity
	for newCap < need {
		if newCap > maxI32 {
			return errs.New(errs.CapacityExceeded, op, "growth beyond i32::MAX elements")
		}
		newCap *= 2
	}
	if newCap > maxI32+1 {
		return errs.New(errs.CapacityExceeded, op, "growth beyond i32::MAX elements")
	}

	newBuf, err := s.access.NewArray(s.alloc, newCap)
	if err != nil {
		return err
	}
	copy(newBuf.Bytes, s.buf.Bytes[:s.size*s.access.Stride()])
	old := s.buf
	s.buf = newBuf
	oldCap := s.capacity
	s.capacity = newCap
	s.alloc.Release(old)
	s.logger.Growth(op, oldCap, newCap)
	return nil
}

// Push appends v, growing the backing buffer (doubling) if full.
func (s *SpecializedSequence[T]) Push(v T) error {
	const op = "SpecializedSequence.Push"
	if s.size+1 > maxI32 {
		return errs.New(errs.CapacityExceeded, op, "sequence size would exceed i32::MAX")
	}
	if err := s.ensureCapacity(op, s.size+1); err != nil {
		return err
	}
	if err := s.access.SetAt(s.buf, s.size, v); err != nil {
		return err
	}
	s.size++
	return nil
}

// Insert shifts [i, size) one stride right and writes v at i.
func (s *SpecializedSequence[T]) Insert(i uint64, v T) error {
	const op = "SpecializedSequence.Insert"
	if err := s.checkIndex(op, i, true); err != nil {
		return err
	}
	if s.size+1 > maxI32 {
		return errs.New(errs.CapacityExceeded, op, "sequence size would exceed i32::MAX")
	}
	if err := s.ensureCapacity(op, s.size+1); err != nil {
		return err
	}

	stride := s.access.Stride()
	src := s.buf.Bytes[i*stride : s.size*stride]
	dst := s.buf.Bytes[(i+1)*stride : (s.size+1)*stride]
	copy(dst, src)

	if err := s.access.SetAt(s.buf, i, v); err != nil {
		return err
	}
	s.size++
	return nil
}

// Remove shifts [i+1, size) one stride left and returns the removed
// element.
func (s *SpecializedSequence[T]) Remove(i uint64) (T, error) {
	const op = "SpecializedSequence.Remove"
	var zero T
	if err := s.checkIndex(op, i, false); err != nil {
		return zero, err
	}

	v, err := s.access.GetAt(s.buf, i)
	if err != nil {
		return zero, err
	}

	stride := s.access.Stride()
	src := s.buf.Bytes[(i+1)*stride : s.size*stride]
	dst := s.buf.Bytes[i*stride : (s.size-1)*stride]
	copy(dst, src)
	s.size--
	return v, nil
}

// Equals compares the first size*stride bytes of the backing buffers
// when other is also a *SpecializedSequence[T] of equal size (memcmp
// fast path); otherwise falls back to element-wise equality.
func (s *SpecializedSequence[T]) Equals(other *SpecializedSequence[T]) (bool, error) {
	if other == nil {
		return false, nil
	}
	if s.size != other.size {
		return false, nil
	}
	if reflect.TypeOf(s.access) == reflect.TypeOf(other.access) {
		stride := s.access.Stride()
		return bytes.Equal(s.buf.Bytes[:s.size*stride], other.buf.Bytes[:other.size*stride]), nil
	}
	for i := uint64(0); i < s.size; i++ {
		a, err := s.Get(i)
		if err != nil {
			return false, err
		}
		b, err := other.Get(i)
		if err != nil {
			return false, err
		}
		eq, err := s.access.Equal(a, b)
		if err != nil {
			return false, err
		}
		if !eq {
			return false, nil
		}
	}
	return true, nil
}

// List returns a view of the live prefix [0, size).
func (s *SpecializedSequence[T]) List() (*SequenceView[T], error) {
	stride := s.access.Stride()
	return s.access.List(Buffer{Bytes: s.buf.Bytes[:s.size*stride], Align: s.buf.Align})
}

// Stream returns a lazy forward-only sequence over the live prefix.
func (s *SpecializedSequence[T]) Stream() (*LazySeq[T], error) {
	stride := s.access.Stride()
	return s.access.Stream(Buffer{Bytes: s.buf.Bytes[:s.size*stride], Align: s.buf.Align})
}

// Sort reorders the live prefix in place according to cmp (negative:
// a before b, zero: equal, positive: a after b). Carried over from the
// original source's MemorySequence.sort, absent from the distilled
// operation list but cheap given List/Get/Set already exist.
func (s *SpecializedSequence[T]) Sort(cmp func(a, b T) int) error {
	n := int(s.size)
	vals := make([]T, n)
	for i := 0; i < n; i++ {
		v, err := s.Get(uint64(i))
		if err != nil {
			return err
		}
		vals[i] = v
	}
	insertionSort(vals, cmp)
	for i := 0; i < n; i++ {
		if err := s.Set(uint64(i), vals[i]); err != nil {
			return err
		}
	}
	return nil
}

func insertionSort[T any](vals []T, cmp func(a, b T) int) {
	for i := 1; i < len(vals); i++ {
		for j := i; j > 0 && cmp(vals[j-1], vals[j]) > 0; j-- {
			vals[j-1], vals[j] = vals[j], vals[j-1]
		}
	}
}

// ForEach visits every live element in order. Carried over from
// MemorySequence.forEach in the original source.
func (s *SpecializedSequence[T]) ForEach(fn func(T)) error {
	for i := uint64(0); i < s.size; i++ {
		v, err := s.Get(i)
		if err != nil {
			return err
		}
		fn(v)
	}
	return nil
}
