package example

import "github.com/alexhholmes/memlayout"

// PageArena carves successive Pages out of one shared backing region with
// no per-page free: all pages issued from one PageArena alias the same
// underlying array for as long as any of them is reachable. This is the
// "Slicing" ownership model of ArenaAllocator applied to the Page shape,
// useful for e.g. a buffer pool that reads many pages off disk into one
// large mmap'd region and hands out *Page views into it without copying.
type PageArena struct {
	alloc *memlayout.ArenaAllocator
}

// NewPageArena returns a PageArena able to hand out pageCount pages
// without growing.
func NewPageArena(pageCount uint64) *PageArena {
	return &PageArena{alloc: memlayout.NewArenaAllocator(pageCount * pageSize)}
}

// NewGrowingPageArena returns a PageArena that starts sized for
// initialPageCount pages and doubles its backing region when exhausted;
// previously issued *Page values remain valid across a grow, since they
// alias the old backing array and Go's collector keeps it alive.
func NewGrowingPageArena(initialPageCount uint64) *PageArena {
	return &PageArena{alloc: memlayout.NewGrowingArenaAllocator(initialPageCount * pageSize)}
}

// Next hands out the next zero-copy page.
func (a *PageArena) Next() (*Page, error) {
	return NewPage(a.alloc)
}
