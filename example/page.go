package example

import "github.com/alexhholmes/memlayout"

// pageSize, pageHeaderSize and pageFooterOff describe the fixed raw page
// shape every Page variant in this package shares: a 2-byte header, an opaque
// body filling the rest of the page, and an 8-byte footer pinned to the
// last 8 bytes.
const (
	pageSize       = 4096
	pageHeaderSize = 2
	pageFooterOff  = pageSize - 8
)

// pageShape struct{ Header uint16; Footer uint64 } is never itself
// read or written as a whole value — Body sits between its two fields
// at runtime, so a Page can't be modeled as one contiguous Go struct.
// pageType exists so Header and Footer keep the exact same offsets a
// single struct descriptor would give them, with Footer's PaddingBefore
// spelling out the 4086-byte gap explicitly rather than relying on
// auto-padding to find it.
type pageShape struct {
	Header uint16
	Footer uint64
}

var pageType = memlayout.Struct([]memlayout.FieldDescriptor{
	memlayout.Field("Header", memlayout.Primitive(memlayout.KU16)),
	memlayout.Field("Footer", memlayout.Primitive(memlayout.KU64), memlayout.FieldOpts{
		PaddingBefore: memlayout.PaddingBeforeOf(pageFooterOff - pageHeaderSize),
	}),
}, memlayout.LayoutOpts{AutoPadding: true, EndPadding: 0})

var (
	pageAccess       *memlayout.Accessor[pageShape]
	pageHeaderAccess *memlayout.TypedFieldAccessor[uint16]
	pageFooterAccess *memlayout.TypedFieldAccessor[uint64]
)

func init() {
	var err error
	if pageAccess, err = memlayout.NewAccessor[pageShape](pageType); err != nil {
		panic(err)
	}
	if pageHeaderAccess, err = memlayout.FieldAccessor[pageShape, uint16](pageAccess, ".Header"); err != nil {
		panic(err)
	}
	if pageFooterAccess, err = memlayout.FieldAccessor[pageShape, uint64](pageAccess, ".Footer"); err != nil {
		panic(err)
	}
}

// Page is a raw pageSize-byte buffer with a Header, an opaque Body
// filling the space between the header and footer, and a Footer.
// Header and Footer are accessed through pageHeaderAccess/pageFooterAccess;
// Body is a plain byte slice, since it has no element type of its own.
type Page struct {
	buf memlayout.Buffer
}

// NewPage allocates a zeroed page from alloc.
func NewPage(alloc memlayout.Allocator) (*Page, error) {
	buf, err := alloc.Allocate(pageSize, 1)
	if err != nil {
		return nil, err
	}
	return &Page{buf: buf}, nil
}

func (p *Page) Header() (uint16, error) {
	return pageHeaderAccess.Get(p.buf)
}

func (p *Page) SetHeader(v uint16) error {
	return pageHeaderAccess.Set(p.buf, v)
}

func (p *Page) Body() []byte {
	return p.buf.Bytes[pageHeaderSize:pageFooterOff]
}

func (p *Page) Footer() (uint64, error) {
	return pageFooterAccess.Get(p.buf)
}

func (p *Page) SetFooter(v uint64) error {
	return pageFooterAccess.Set(p.buf, v)
}
