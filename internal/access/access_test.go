package access

import (
	"reflect"
	"testing"

	"github.com/alexhholmes/memlayout/internal/desc"
	"github.com/alexhholmes/memlayout/internal/layout"
)

type point struct {
	X int32
	Y int32
}

func pointLayout(t *testing.T) *layout.Computed {
	t.Helper()
	td := desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("X", desc.NewPrimitive(desc.I32)),
		desc.NewField("Y", desc.NewPrimitive(desc.I32)),
	})
	c, err := layout.Compute(td)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	return c
}

func TestBuildAndRoundTrip(t *testing.T) {
	c := pointLayout(t)
	codec, err := Build(reflect.TypeOf(point{}), c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	buf := make([]byte, c.Size)
	codec.Encode(buf, 0, reflect.ValueOf(point{X: -5, Y: 42}))

	got := codec.Decode(buf, 0).Interface().(point)
	if got != (point{X: -5, Y: 42}) {
		t.Errorf("round trip = %+v, want {-5 42}", got)
	}
}

func TestBuildRejectsNonStructGoType(t *testing.T) {
	c := pointLayout(t)
	if _, err := Build(reflect.TypeOf(int32(0)), c); err == nil {
		t.Error("expected an error building a codec for a non-struct Go type")
	}
}

func TestBuildRejectsNonStructLayout(t *testing.T) {
	arr, err := layout.Compute(desc.NewArray(desc.NewPrimitive(desc.U32), 4))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if _, err := Build(reflect.TypeOf(point{}), arr); err == nil {
		t.Error("expected an error building a codec against a non-struct layout")
	}
}

func TestBuildFieldNameMatching(t *testing.T) {
	td := desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("numKeys", desc.NewPrimitive(desc.U16)),
	})
	c, err := layout.Compute(td)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	type withCaseMismatch struct {
		NumKeys uint16
	}
	if _, err := Build(reflect.TypeOf(withCaseMismatch{}), c); err != nil {
		t.Errorf("expected case-insensitive field matching to succeed, got %v", err)
	}

	type withTag struct {
		Count uint16 `layout:"numKeys"`
	}
	if _, err := Build(reflect.TypeOf(withTag{}), c); err != nil {
		t.Errorf("expected tag-based field matching to succeed, got %v", err)
	}

	type noMatch struct {
		Other uint16
	}
	if _, err := Build(reflect.TypeOf(noMatch{}), c); err == nil {
		t.Error("expected an error when no Go field matches the layout member")
	}
}

func TestBuildRejectsIncompatibleKind(t *testing.T) {
	td := desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("X", desc.NewPrimitive(desc.I32)),
	})
	c, err := layout.Compute(td)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	type wrongKind struct {
		X string
	}
	if _, err := Build(reflect.TypeOf(wrongKind{}), c); err == nil {
		t.Error("expected an error binding an int32 layout member to a string Go field")
	}
}

func TestBuildRejectsUnionLeaf(t *testing.T) {
	union := desc.NewUnion([]desc.FieldDescriptor{
		desc.NewField("i", desc.NewPrimitive(desc.I32)),
		desc.NewField("f", desc.NewPrimitive(desc.F32)),
	})
	td := desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("u", union),
	})
	c, err := layout.Compute(td)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	type withUnion struct {
		U int32
	}
	if _, err := Build(reflect.TypeOf(withUnion{}), c); err == nil {
		t.Error("expected the bulk codec to refuse a union leaf")
	}
}

func TestNestedStructCompiles(t *testing.T) {
	inner := desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("X", desc.NewPrimitive(desc.I32)),
		desc.NewField("Y", desc.NewPrimitive(desc.I32)),
	})
	outer := desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("Origin", inner),
		desc.NewField("Scale", desc.NewPrimitive(desc.F64)),
	})
	c, err := layout.Compute(outer)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	type rect struct {
		Origin point
		Scale  float64
	}
	codec, err := Build(reflect.TypeOf(rect{}), c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	buf := make([]byte, c.Size)
	want := rect{Origin: point{X: 1, Y: 2}, Scale: 3.5}
	codec.Encode(buf, 0, reflect.ValueOf(want))
	got := codec.Decode(buf, 0).Interface().(rect)
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestByteOrderOverride(t *testing.T) {
	td := desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("V", desc.NewPrimitive(desc.U32), desc.FieldOpts{ByteOrder: desc.BigEndian}),
	})
	c, err := layout.Compute(td)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	type withV struct{ V uint32 }
	codec, err := Build(reflect.TypeOf(withV{}), c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	buf := make([]byte, 4)
	codec.Encode(buf, 0, reflect.ValueOf(withV{V: 0x01020304}))
	if buf[0] != 0x01 || buf[3] != 0x04 {
		t.Errorf("big-endian encode = %v, want [1 2 3 4]", buf)
	}
}
