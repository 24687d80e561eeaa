package example

import "github.com/alexhholmes/memlayout"

// pageAlignedAlign is the alignment O_DIRECT-style I/O usually demands of
// a page buffer: the buffer's base address, not just its fields, must be
// a multiple of this.
const pageAlignedAlign = 512

// NewPageAligned allocates a Page whose backing buffer's base address is
// a multiple of pageAlignedAlign, by passing the alignment straight to
// the Allocator rather than deriving it from pageType (struct-field
// alignment and buffer placement alignment are independent knobs in
// this design: the former governs field offsets, the latter governs
// where the whole buffer starts).
func NewPageAligned(alloc memlayout.Allocator) (*Page, error) {
	buf, err := alloc.Allocate(pageSize, pageAlignedAlign)
	if err != nil {
		return nil, err
	}
	return &Page{buf: buf}, nil
}
