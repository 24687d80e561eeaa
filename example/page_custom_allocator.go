package example

import (
	"unsafe"

	"github.com/alexhholmes/memlayout"
)

// hookAllocator adapts an arbitrary allocation function into the
// memlayout.Allocator contract, for callers whose pages come from
// something memlayout has no built-in allocator for — an mmap'd file, a
// slab taken from a syscall, a pool owned by another subsystem.
type hookAllocator struct {
	allocate func(size, align uint64) ([]byte, error)
	release  func([]byte)
}

// NewHookAllocator wraps allocate (and, optionally, release) as an
// Allocator. release may be nil, matching an ownership model with no
// free operation.
func NewHookAllocator(allocate func(size, align uint64) ([]byte, error), release func([]byte)) memlayout.Allocator {
	return &hookAllocator{allocate: allocate, release: release}
}

func (h *hookAllocator) Allocate(size, align uint64) (memlayout.Buffer, error) {
	b, err := h.allocate(size, align)
	if err != nil {
		return memlayout.Buffer{}, err
	}
	return memlayout.Buffer{Bytes: b, Align: align}, nil
}

func (h *hookAllocator) Release(b memlayout.Buffer) {
	if h.release != nil {
		h.release(b.Bytes)
	}
}

// AllocateAlignedPage is an example allocation hook usable with
// NewHookAllocator: it over-allocates by one alignment unit and returns a
// size-byte slice whose base address is a multiple of align, the same
// over-allocate-then-slice idiom the package's own alignedAlloc uses.
func AllocateAlignedPage(size, align uint64) ([]byte, error) {
	if align <= 1 {
		return make([]byte, size), nil
	}
	backing := make([]byte, size+align-1)
	addr := uintptr(unsafe.Pointer(&backing[0]))
	offset := uintptr((addr+uintptr(align)-1) &^ (uintptr(align) - 1) - addr)
	return backing[offset : offset+uintptr(size) : offset+uintptr(size)], nil
}
