// Package example demonstrates memlayout against the kind of fixed-size
// page format a B-tree leaf node uses: a small header, a variable-count
// run of fixed-width elements, and a footer pinned to a constant high
// offset.
//
// Where the teacher repository expressed this with `@offset` struct
// tags consumed by a source-to-source generator, here the same shapes
// are built as TypeDescriptors and driven through Accessor at runtime —
// the Accessor built once in init() plays the role the generated
// MarshalLayout/UnmarshalLayout methods used to.
package example

import (
	"fmt"

	"github.com/alexhholmes/memlayout"
)

// LeafElement is one key/offset pair inside a leaf node's element run.
type LeafElement struct {
	Key    uint32
	Offset uint32
}

var leafElementType = memlayout.Struct([]memlayout.FieldDescriptor{
	memlayout.Field("Key", memlayout.Primitive(memlayout.KU32)),
	memlayout.Field("Offset", memlayout.Primitive(memlayout.KU32)),
})

// LeafHeader is the fixed-size prefix of a leaf node page.
type LeafHeader struct {
	NumKeys  uint16
	Flags    uint16
	NextPage uint32
	PrevPage uint32
	Reserved uint32
}

var leafHeaderType = memlayout.Struct([]memlayout.FieldDescriptor{
	memlayout.Field("NumKeys", memlayout.Primitive(memlayout.KU16)),
	memlayout.Field("Flags", memlayout.Primitive(memlayout.KU16)),
	memlayout.Field("NextPage", memlayout.Primitive(memlayout.KU32)),
	memlayout.Field("PrevPage", memlayout.Primitive(memlayout.KU32)),
	memlayout.Field("Reserved", memlayout.Primitive(memlayout.KU32)),
})

const (
	leafPageSize   = 4096
	leafFooterSize = 8
	leafFooterOff  = leafPageSize - leafFooterSize
)

var (
	leafHeaderAccess  *memlayout.Accessor[LeafHeader]
	leafElementAccess *memlayout.Accessor[LeafElement]
	leafFooterAccess  *memlayout.Accessor[uint64]
)

func init() {
	var err error
	if leafHeaderAccess, err = memlayout.NewAccessor[LeafHeader](leafHeaderType); err != nil {
		panic(err)
	}
	if leafElementAccess, err = memlayout.NewAccessor[LeafElement](leafElementType); err != nil {
		panic(err)
	}
	if leafFooterAccess, err = memlayout.NewAccessor[uint64](memlayout.Primitive(memlayout.KU64)); err != nil {
		panic(err)
	}
}

// LeafNode is a B-tree leaf page: a header, a variable-count run of
// elements occupying the space between the header and the footer, and a
// footer pinned at leafFooterOff.
type LeafNode struct {
	Header   LeafHeader
	Elements []LeafElement
	Footer   uint64
}

// MarshalLeafNode encodes node into a freshly allocated leafPageSize-byte
// buffer from alloc.
func MarshalLeafNode(alloc memlayout.Allocator, node *LeafNode) (memlayout.Buffer, error) {
	const op = "MarshalLeafNode"

	buf, err := alloc.Allocate(leafPageSize, 1)
	if err != nil {
		return memlayout.Buffer{}, err
	}

	if err := leafHeaderAccess.Set(memlayout.Buffer{Bytes: buf.Bytes}, node.Header); err != nil {
		return memlayout.Buffer{}, err
	}

	stride := leafElementAccess.Stride()
	elementsRegion := memlayout.Buffer{Bytes: buf.Bytes[leafHeaderAccess.Stride():leafFooterOff]}
	if uint64(len(node.Elements))*stride > uint64(len(elementsRegion.Bytes)) {
		return memlayout.Buffer{}, &memlayout.Error{
			Kind: memlayout.CapacityExceeded,
			Op:   op,
			Err:  fmt.Errorf("%d elements do not fit in the %d-byte element region", len(node.Elements), len(elementsRegion.Bytes)),
		}
	}
	for i, elem := range node.Elements {
		if err := leafElementAccess.SetAt(elementsRegion, uint64(i), elem); err != nil {
			return memlayout.Buffer{}, err
		}
	}

	if err := leafFooterAccess.Set(memlayout.Buffer{Bytes: buf.Bytes[leafFooterOff:]}, node.Footer); err != nil {
		return memlayout.Buffer{}, err
	}

	return buf, nil
}

// UnmarshalLeafNode decodes a LeafNode out of a leafPageSize-byte page,
// reading exactly Header.NumKeys elements.
func UnmarshalLeafNode(buf memlayout.Buffer) (*LeafNode, error) {
	header, err := leafHeaderAccess.Get(memlayout.Buffer{Bytes: buf.Bytes})
	if err != nil {
		return nil, err
	}

	elementsRegion := memlayout.Buffer{Bytes: buf.Bytes[leafHeaderAccess.Stride():leafFooterOff]}
	elements := make([]LeafElement, header.NumKeys)
	for i := range elements {
		elem, err := leafElementAccess.GetAt(elementsRegion, uint64(i))
		if err != nil {
			return nil, err
		}
		elements[i] = elem
	}

	footer, err := leafFooterAccess.Get(memlayout.Buffer{Bytes: buf.Bytes[leafFooterOff:]})
	if err != nil {
		return nil, err
	}

	return &LeafNode{Header: header, Elements: elements, Footer: footer}, nil
}
