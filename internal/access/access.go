// Package access is the core of the Access Engine (spec §4.D): it
// compiles a ComputedLayout, bound to a concrete Go struct type, into a
// flat list of primitive field operations and then performs bulk
// get/set (struct <-> buffer) using those operations.
//
// Building the operation list once, eagerly, and reusing it on every
// Get/Set call is the runtime analogue of the teacher repository's
// internal/codegen.Generator, which builds one text-emission plan per
// struct member and renders it once into Go source. Here the "render"
// step produces a []fieldOp of reflect.StructField indices instead of
// source text (spec Design Notes: "Do not introduce a runtime
// code-generator"); Decode/Encode interpret those records with a
// switch over the primitive kind.
package access

import (
	"encoding/binary"
	"math"
	"reflect"
	"strings"

	"github.com/alexhholmes/memlayout/internal/desc"
	"github.com/alexhholmes/memlayout/internal/errs"
	"github.com/alexhholmes/memlayout/internal/layout"
)

// fieldOp is one primitive leaf of a compiled struct codec.
type fieldOp struct {
	index     []int
	offset    uint64
	width     uint64
	byteOrder desc.ByteOrder
	kind      desc.PrimitiveKind
}

// Codec binds a ComputedLayout of Shape==StructShape to a concrete Go
// struct type, ready to decode/encode values of that type to/from a byte
// buffer.
type Codec struct {
	GoType   reflect.Type
	Computed *layout.Computed
	ops      []fieldOp
}

// Build compiles a Codec for goType (must be a struct type) against
// computed (must be a struct layout). Fails with UnsupportedLayoutError if
// computed contains a union or array leaf (of any element type) anywhere
// in its member tree (spec §4.A "nested sequence-of-struct encountered where a
// struct-only walk is required: decoder construction fails"; spec §4.D
// "For a Union or Sequence Field encountered by the bulk codec: fail").
func Build(goType reflect.Type, computed *layout.Computed) (*Codec, error) {
	const op = "access.Build"

	if goType.Kind() != reflect.Struct {
		return nil, errs.New(errs.InvalidArgument, op, "%s is not a struct type", goType)
	}
	if computed.Shape != layout.StructShape {
		return nil, errs.New(errs.UnsupportedLayout, op, "bulk codec requires a struct layout, got shape %d", computed.Shape)
	}

	ops, err := compileMembers(op, goType, computed, nil, 0)
	if err != nil {
		return nil, err
	}
	return &Codec{GoType: goType, Computed: computed, ops: ops}, nil
}

func compileMembers(op string, goType reflect.Type, computed *layout.Computed, prefix []int, baseOffset uint64) ([]fieldOp, error) {
	var ops []fieldOp

	for _, m := range computed.Members {
		if m.Kind != layout.FieldMember {
			continue
		}

		sf, ok := findGoField(goType, m.Name)
		if !ok {
			return nil, errs.New(errs.NotFound, op, "no Go field matching layout member %q on %s", m.Name, goType)
		}
		index := append(append([]int{}, prefix...), sf.Index...)

		switch m.Computed.Shape {
		case layout.PrimitiveShape:
			if err := checkKindCompat(op, m.Computed.PrimitiveKind, sf); err != nil {
				return nil, err
			}
			ops = append(ops, fieldOp{
				index:     index,
				offset:    baseOffset + m.Offset,
				width:     m.Width,
				byteOrder: m.ByteOrder,
				kind:      m.Computed.PrimitiveKind,
			})

		case layout.StructShape:
			if sf.Type.Kind() != reflect.Struct {
				return nil, errs.New(errs.InvalidArgument, op, "field %q: layout is a struct but Go field is %s", m.Name, sf.Type)
			}
			nested, err := compileMembers(op, sf.Type, m.Computed, index, baseOffset+m.Offset)
			if err != nil {
				return nil, err
			}
			ops = append(ops, nested...)

		default:
			// Union or Array(sequence) leaf: bulk codec refuses these
			// (spec §4.D) even though the layout engine can describe
			// them fine (spec §9: "Unions and zero-sized tail arrays
			// are partially supported ... the bulk get/set codecs
			// refuse them. This is a deliberate contract.").
			return nil, errs.New(errs.UnsupportedLayout, op, "field %q has an unsupported bulk-codec shape", m.Name)
		}
	}

	return ops, nil
}

// findGoField locates the struct field matching a layout member name:
// a `layout:"name"` tag override first, then an exact name match, then a
// case-insensitive name match — the same tag-driven override convention the teacher
// repository's internal/parser uses for its own `layout:"..."` tags,
// here matching against the abstract descriptor's field name instead of
// an AST-derived offset.
func findGoField(t reflect.Type, name string) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if tag, ok := sf.Tag.Lookup("layout"); ok && tag == name {
			return sf, true
		}
	}
	if sf, ok := t.FieldByName(name); ok {
		return sf, true
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if strings.EqualFold(sf.Name, name) {
			return sf, true
		}
	}
	return reflect.StructField{}, false
}

func checkKindCompat(op string, pk desc.PrimitiveKind, sf reflect.StructField) error {
	ok := false
	switch pk {
	case desc.Bool:
		ok = sf.Type.Kind() == reflect.Bool
	case desc.I8:
		ok = sf.Type.Kind() == reflect.Int8
	case desc.U8:
		ok = sf.Type.Kind() == reflect.Uint8
	case desc.I16:
		ok = sf.Type.Kind() == reflect.Int16
	case desc.U16, desc.Char16:
		ok = sf.Type.Kind() == reflect.Uint16
	case desc.I32:
		ok = sf.Type.Kind() == reflect.Int32
	case desc.U32:
		ok = sf.Type.Kind() == reflect.Uint32
	case desc.I64:
		ok = sf.Type.Kind() == reflect.Int64
	case desc.U64:
		ok = sf.Type.Kind() == reflect.Uint64
	case desc.F32:
		ok = sf.Type.Kind() == reflect.Float32
	case desc.F64:
		ok = sf.Type.Kind() == reflect.Float64
	}
	if !ok {
		return errs.New(errs.InvalidArgument, op, "Go field %s (%s) is not compatible with primitive kind %s", sf.Name, sf.Type, pk)
	}
	return nil
}

func byteOrderOf(bo desc.ByteOrder) binary.ByteOrder {
	switch bo {
	case desc.LittleEndian:
		return binary.LittleEndian
	case desc.BigEndian:
		return binary.BigEndian
	default:
		return binary.NativeEndian
	}
}

// Decode reads one record out of buf[base:] into a newly addressable
// reflect.Value of Codec.GoType, following spec §4.D's walk/skip-padding
// rule (padding members were never added to ops in the first place).
func (c *Codec) Decode(buf []byte, base uint64) reflect.Value {
	rv := reflect.New(c.GoType).Elem()
	for _, op := range c.ops {
		fv := rv.FieldByIndex(op.index)
		off := base + op.offset
		raw := buf[off : off+op.width]
		order := byteOrderOf(op.byteOrder)

		switch op.kind {
		case desc.Bool:
			fv.SetBool(raw[0] != 0)
		case desc.I8:
			fv.SetInt(int64(int8(raw[0])))
		case desc.U8:
			fv.SetUint(uint64(raw[0]))
		case desc.I16:
			fv.SetInt(int64(int16(order.Uint16(raw))))
		case desc.U16, desc.Char16:
			fv.SetUint(uint64(order.Uint16(raw)))
		case desc.I32:
			fv.SetInt(int64(int32(order.Uint32(raw))))
		case desc.U32:
			fv.SetUint(uint64(order.Uint32(raw)))
		case desc.F32:
			fv.SetFloat(float64(math.Float32frombits(order.Uint32(raw))))
		case desc.I64:
			fv.SetInt(int64(order.Uint64(raw)))
		case desc.U64:
			fv.SetUint(order.Uint64(raw))
		case desc.F64:
			fv.SetFloat(math.Float64frombits(order.Uint64(raw)))
		}
	}
	return rv
}

// Encode writes rv (a value of Codec.GoType) into buf[base:].
func (c *Codec) Encode(buf []byte, base uint64, rv reflect.Value) {
	for _, op := range c.ops {
		fv := rv.FieldByIndex(op.index)
		off := base + op.offset
		raw := buf[off : off+op.width]
		order := byteOrderOf(op.byteOrder)

		switch op.kind {
		case desc.Bool:
			if fv.Bool() {
				raw[0] = 1
			} else {
				raw[0] = 0
			}
		case desc.I8:
			raw[0] = byte(int8(fv.Int()))
		case desc.U8:
			raw[0] = byte(fv.Uint())
		case desc.I16:
			order.PutUint16(raw, uint16(fv.Int()))
		case desc.U16, desc.Char16:
			order.PutUint16(raw, uint16(fv.Uint()))
		case desc.I32:
			order.PutUint32(raw, uint32(fv.Int()))
		case desc.U32:
			order.PutUint32(raw, uint32(fv.Uint()))
		case desc.F32:
			order.PutUint32(raw, math.Float32bits(float32(fv.Float())))
		case desc.I64:
			order.PutUint64(raw, uint64(fv.Int()))
		case desc.U64:
			order.PutUint64(raw, fv.Uint())
		case desc.F64:
			order.PutUint64(raw, math.Float64bits(fv.Float()))
		}
	}
}
