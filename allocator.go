package memlayout

import (
	"sync"
	"unsafe"

	"github.com/alexhholmes/memlayout/internal/errs"
)

// Buffer is a contiguous mutable byte region with the alignment it was
// allocated with (spec §3). Padding bytes within a Buffer are
// zero-initialized on allocation, as spec §6 requires "for determinism".
type Buffer struct {
	Bytes []byte
	Align uint64
}

// Len returns the buffer's length in bytes.
func (b Buffer) Len() int { return len(b.Bytes) }

// Base returns the buffer's starting address, for alignment assertions
// (spec §4.D: "Requires buf.base mod layout.alignment == 0"). It is zero
// for an empty buffer.
func (b Buffer) Base() uintptr {
	if len(b.Bytes) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b.Bytes[0]))
}

// Allocator is the Buffer Allocator contract of spec §4.C: a single
// Allocate operation, plus a Release whose meaning depends on the
// allocator's ownership model (spec §4.C lists Scoped, Automatic, and
// Slicing as the three choices). Containers call Release on their old
// buffer after a growth copy (spec §5: "Containers never free a buffer
// explicitly [themselves]; when released, its buffer is released via
// whatever rule governs its allocator" — Release *is* that rule).
type Allocator interface {
	Allocate(size, align uint64) (Buffer, error)
	Release(Buffer)
}

// alignedAlloc allocates a zeroed slice of size bytes whose address is a
// multiple of align, by over-allocating and slicing to the aligned
// sub-range. Ported from the teacher repository's
// internal/codegen/generator.go generateNewFunction, which emits exactly
// this pointer-arithmetic idiom:
//
//	addr := uintptr(unsafe.Pointer(&backing[0]))
//	offset := int(((addr + align - 1) &^ (align - 1)) - addr)
func alignedAlloc(size, align uint64) []byte {
	if size == 0 {
		return []byte{}
	}
	if align <= 1 {
		return make([]byte, size)
	}
	backing := make([]byte, size+align-1)
	addr := uintptr(unsafe.Pointer(&backing[0]))
	offset := uintptr((addr+uintptr(align)-1) &^ (uintptr(align) - 1) - addr)
	return backing[offset : offset+uintptr(size) : offset+uintptr(size)]
}

// GoAllocator is the "Automatic" allocator of spec §4.C: buffers are
// ordinary Go heap allocations, reclaimed by the garbage collector.
// Release is a no-op — there is nothing for the caller to do.
type GoAllocator struct{}

// NewGoAllocator returns the default, GC-backed allocator.
func NewGoAllocator() *GoAllocator { return &GoAllocator{} }

func (*GoAllocator) Allocate(size, align uint64) (Buffer, error) {
	if err := validateAllocArgs("GoAllocator.Allocate", align); err != nil {
		return Buffer{}, err
	}
	return Buffer{Bytes: alignedAlloc(size, align), Align: align}, nil
}

func (*GoAllocator) Release(Buffer) {}

// validateAllocArgs rejects a non-power-of-two align (align == 0 means
// "no alignment requirement", accepted as 1-byte aligned).
func validateAllocArgs(op string, align uint64) error {
	if align != 0 && !isPowerOfTwo(align) {
		return errs.New(errs.InvalidArgument, op, "align %d is not a power of two", align)
	}
	return nil
}

func isPowerOfTwo(v uint64) bool { return v > 0 && v&(v-1) == 0 }

// ArenaAllocator is the "Slicing" allocator of spec §4.C: it carves
// buffers out of one pre-existing region with bump-pointer allocation and
// never frees individual buffers. When growable (NewGrowingArenaAllocator),
// an exhausted arena doubles its backing capacity and copies forward the
// bump-pointer cursor, the same doubling idiom
// zeebo/gofaster/pin/buffer.go's grow uses for its pinned-pointer table
// (mask/bits doubling) — except here the arena's *contents* never need
// re-encoding, only its capacity grows, so previously issued Buffers
// (which alias the old backing array) remain valid: Go's garbage
// collector keeps an array alive as long as any slice still references
// it. A fixed-capacity arena (NewArenaAllocator, and the zero value)
// instead fails with
// InvalidArgument ("OutOfBounds", spec §4.C) once exhausted.
type ArenaAllocator struct {
	mu       sync.Mutex
	buf      []byte
	off      uint64
	growable bool
}

// NewArenaAllocator returns a fixed-capacity arena of size bytes; an
// Allocate call that would overflow it fails.
func NewArenaAllocator(size uint64) *ArenaAllocator {
	return &ArenaAllocator{buf: make([]byte, size)}
}

// NewGrowingArenaAllocator returns an arena that starts at initialSize
// bytes and doubles whenever an Allocate call would otherwise overflow it.
func NewGrowingArenaAllocator(initialSize uint64) *ArenaAllocator {
	return &ArenaAllocator{buf: make([]byte, initialSize), growable: true}
}

func (a *ArenaAllocator) Allocate(size, align uint64) (Buffer, error) {
	const op = "ArenaAllocator.Allocate"
	if err := validateAllocArgs(op, align); err != nil {
		return Buffer{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for {
		if len(a.buf) == 0 {
			if size == 0 {
				return Buffer{Bytes: []byte{}, Align: align}, nil
			}
			if !a.grow(size, align) {
				return Buffer{}, errs.New(errs.InvalidArgument, op, "arena exhausted: requested %d bytes", size)
			}
			continue
		}

		base := uintptr(unsafe.Pointer(&a.buf[0]))
		start := a.off
		var pad uint64
		if align > 1 {
			addr := base + uintptr(start)
			aligned := (addr + uintptr(align) - 1) &^ (uintptr(align) - 1)
			pad = uint64(aligned - addr)
		}

		if start+pad+size > uint64(len(a.buf)) {
			if !a.grow(start+pad+size, align) {
				return Buffer{}, errs.New(errs.InvalidArgument, op, "arena exhausted: requested %d bytes", size)
			}
			continue
		}

		begin := start + pad
		a.off = begin + size
		return Buffer{Bytes: a.buf[begin : begin+size : begin+size], Align: align}, nil
	}
}

// grow doubles the arena's capacity until it can satisfy need bytes
// (re-checked by the caller's loop), returning false if growth is
// disabled.
func (a *ArenaAllocator) grow(need uint64, align uint64) bool {
	if !a.growable {
		return false
	}
	newCap := uint64(len(a.buf))
	if newCap == 0 {
		newCap = 64
	}
	for newCap < need+align {
		newCap *= 2
	}
	next := make([]byte, newCap)
	copy(next, a.buf)
	a.buf = next
	return true
}

// Release is a no-op: the Slicing ownership model has no free operation
// (spec §4.C).
func (*ArenaAllocator) Release(Buffer) {}

// ScopedAllocator is the "Scoped" allocator of spec §4.C: buffers are
// pooled by (size, align) and returned to the pool on Release, to be
// reused by a later Allocate of the same shape. A buffer is
// zero-initialized again before being handed back out, preserving the
// "zero-initialized on allocation" contract across reuse.
type ScopedAllocator struct {
	mu    sync.Mutex
	pools map[sizeAlignKey]*sync.Pool
}

type sizeAlignKey struct {
	size, align uint64
}

// NewScopedAllocator returns a pooled allocator.
func NewScopedAllocator() *ScopedAllocator {
	return &ScopedAllocator{pools: make(map[sizeAlignKey]*sync.Pool)}
}

func (s *ScopedAllocator) poolFor(size, align uint64) *sync.Pool {
	key := sizeAlignKey{size, align}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[key]
	if !ok {
		p = &sync.Pool{New: func() any {
			b := alignedAlloc(size, align)
			return &b
		}}
		s.pools[key] = p
	}
	return p
}

func (s *ScopedAllocator) Allocate(size, align uint64) (Buffer, error) {
	const op = "ScopedAllocator.Allocate"
	if err := validateAllocArgs(op, align); err != nil {
		return Buffer{}, err
	}
	p := s.poolFor(size, align)
	bp := p.Get().(*[]byte)
	for i := range *bp {
		(*bp)[i] = 0
	}
	return Buffer{Bytes: *bp, Align: align}, nil
}

func (s *ScopedAllocator) Release(b Buffer) {
	p := s.poolFor(uint64(len(b.Bytes)), b.Align)
	buf := b.Bytes
	p.Put(&buf)
}
