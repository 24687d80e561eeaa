package memlayout

import (
	"encoding/binary"
	"math"
	"reflect"

	"github.com/cespare/xxhash"

	"github.com/alexhholmes/memlayout/internal/desc"
	"github.com/alexhholmes/memlayout/internal/errs"
)

// primCodec reads or writes one primitive-kinded field, bound to the Go
// type F a caller requested via FieldAccessor[T, F]. It plays the same
// role for a single scalar path that internal/access.Codec plays for a
// whole struct, minus the field-walk: TypedFieldAccessor already knows
// the one offset it addresses.
type primCodec struct {
	kind  desc.PrimitiveKind
	order binary.ByteOrder
	width uint64
}

func newPrimCodec(op string, kind desc.PrimitiveKind, bo desc.ByteOrder, fType reflect.Type) (*primCodec, error) {
	if !primKindCompatible(kind, fType) {
		return nil, errs.New(errs.InvalidArgument, op, "primitive kind %s is not compatible with Go type %s", kind, fType)
	}
	return &primCodec{kind: kind, order: byteOrderOf(bo), width: kind.Width()}, nil
}

func primKindCompatible(pk desc.PrimitiveKind, t reflect.Type) bool {
	switch pk {
	case desc.Bool:
		return t.Kind() == reflect.Bool
	case desc.I8:
		return t.Kind() == reflect.Int8
	case desc.U8:
		return t.Kind() == reflect.Uint8
	case desc.I16:
		return t.Kind() == reflect.Int16
	case desc.U16, desc.Char16:
		return t.Kind() == reflect.Uint16
	case desc.I32:
		return t.Kind() == reflect.Int32
	case desc.U32:
		return t.Kind() == reflect.Uint32
	case desc.I64:
		return t.Kind() == reflect.Int64
	case desc.U64:
		return t.Kind() == reflect.Uint64
	case desc.F32:
		return t.Kind() == reflect.Float32
	case desc.F64:
		return t.Kind() == reflect.Float64
	default:
		return false
	}
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

func (c *primCodec) get(buf []byte, off uint64) (any, error) {
	raw := buf[off : off+c.width]
	switch c.kind {
	case desc.Bool:
		return raw[0] != 0, nil
	case desc.I8:
		return int8(raw[0]), nil
	case desc.U8:
		return raw[0], nil
	case desc.I16:
		return int16(c.order.Uint16(raw)), nil
	case desc.U16, desc.Char16:
		return c.order.Uint16(raw), nil
	case desc.I32:
		return int32(c.order.Uint32(raw)), nil
	case desc.U32:
		return c.order.Uint32(raw), nil
	case desc.F32:
		return math.Float32frombits(c.order.Uint32(raw)), nil
	case desc.I64:
		return int64(c.order.Uint64(raw)), nil
	case desc.U64:
		return c.order.Uint64(raw), nil
	case desc.F64:
		return math.Float64frombits(c.order.Uint64(raw)), nil
	default:
		return nil, errs.New(errs.UnsupportedLayout, "primCodec.get", "unsupported primitive kind %s", c.kind)
	}
}

func (c *primCodec) set(buf []byte, off uint64, val any) error {
	raw := buf[off : off+c.width]
	rv := reflect.ValueOf(val)
	switch c.kind {
	case desc.Bool:
		if rv.Bool() {
			raw[0] = 1
		} else {
			raw[0] = 0
		}
	case desc.I8:
		raw[0] = byte(int8(rv.Int()))
	case desc.U8:
		raw[0] = byte(rv.Uint())
	case desc.I16:
		c.order.PutUint16(raw, uint16(rv.Int()))
	case desc.U16, desc.Char16:
		c.order.PutUint16(raw, uint16(rv.Uint()))
	case desc.I32:
		c.order.PutUint32(raw, uint32(rv.Int()))
	case desc.U32:
		c.order.PutUint32(raw, uint32(rv.Uint()))
	case desc.F32:
		c.order.PutUint32(raw, math.Float32bits(float32(rv.Float())))
	case desc.I64:
		c.order.PutUint64(raw, uint64(rv.Int()))
	case desc.U64:
		c.order.PutUint64(raw, rv.Uint())
	case desc.F64:
		c.order.PutUint64(raw, math.Float64bits(rv.Float()))
	default:
		return errs.New(errs.UnsupportedLayout, "primCodec.set", "unsupported primitive kind %s", c.kind)
	}
	return nil
}

// xxhash32 folds a 64-bit xxhash digest down to 32 bits by xoring its
// halves, the same fold zeebo/gofaster's htable.Table uses to turn a
// cespare/xxhash Sum64 into the tagged 31-bit hash its slots store.
func xxhash32(b []byte) uint32 {
	h := xxhash.Sum64(b)
	return uint32(h) ^ uint32(h>>32)
}
