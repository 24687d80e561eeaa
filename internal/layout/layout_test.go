package layout

import (
	"testing"

	"github.com/alexhholmes/memlayout/internal/desc"
)

func mustCompute(t *testing.T, td desc.TypeDescriptor) *Computed {
	t.Helper()
	c, err := Compute(td)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	return c
}

func TestComputePrimitive(t *testing.T) {
	tests := []struct {
		kind      desc.PrimitiveKind
		wantSize  uint64
		wantAlign uint64
	}{
		{desc.U8, 1, 1},
		{desc.U16, 2, 2},
		{desc.U32, 4, 4},
		{desc.U64, 8, 8},
		{desc.F64, 8, 8},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			c := mustCompute(t, desc.NewPrimitive(tt.kind))
			if c.Shape != PrimitiveShape {
				t.Errorf("Shape = %v, want PrimitiveShape", c.Shape)
			}
			if c.Size != tt.wantSize {
				t.Errorf("Size = %d, want %d", c.Size, tt.wantSize)
			}
			if c.Alignment != tt.wantAlign {
				t.Errorf("Alignment = %d, want %d", c.Alignment, tt.wantAlign)
			}
		})
	}
}

// TestComputeStructAutoPadding mirrors the classic C-compiler layout
// example: {u8, u32, u16} should pad to {u8, pad3, u32, u16, pad2} = 12
// bytes, alignment 4.
func TestComputeStructAutoPadding(t *testing.T) {
	td := desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("a", desc.NewPrimitive(desc.U8)),
		desc.NewField("b", desc.NewPrimitive(desc.U32)),
		desc.NewField("c", desc.NewPrimitive(desc.U16)),
	})

	c := mustCompute(t, td)
	if c.Size != 12 {
		t.Errorf("Size = %d, want 12", c.Size)
	}
	if c.Alignment != 4 {
		t.Errorf("Alignment = %d, want 4", c.Alignment)
	}

	a, err := c.FindMember("a")
	if err != nil || a.Offset != 0 {
		t.Errorf("a offset = %v (err=%v), want 0", a, err)
	}
	b, err := c.FindMember("b")
	if err != nil || b.Offset != 4 {
		t.Errorf("b offset = %v (err=%v), want 4", b, err)
	}
	cc, err := c.FindMember("c")
	if err != nil || cc.Offset != 8 {
		t.Errorf("c offset = %v (err=%v), want 8", cc, err)
	}
}

func TestComputeStructNoAutoPadding(t *testing.T) {
	td := desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("a", desc.NewPrimitive(desc.U8)),
		desc.NewField("b", desc.NewPrimitive(desc.U32)),
	}, desc.LayoutOpts{Kind: desc.StructAggregate, AutoPadding: false, EndPadding: 0})

	c := mustCompute(t, td)
	if c.Size != 5 {
		t.Errorf("Size = %d, want 5 (no padding)", c.Size)
	}
	b, err := c.FindMember("b")
	if err != nil || b.Offset != 1 {
		t.Errorf("b offset = %v (err=%v), want 1", b, err)
	}
}

func TestComputeStructExplicitPaddingBefore(t *testing.T) {
	pad := uint64(10)
	td := desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("a", desc.NewPrimitive(desc.U16)),
		desc.NewField("b", desc.NewPrimitive(desc.U64), desc.FieldOpts{PaddingBefore: &pad}),
	})

	c := mustCompute(t, td)
	b, err := c.FindMember("b")
	if err != nil {
		t.Fatalf("FindMember(b): %v", err)
	}
	if b.Offset != 2+pad {
		t.Errorf("b offset = %d, want %d", b.Offset, 2+pad)
	}
}

func TestComputeStructEndPaddingExplicit(t *testing.T) {
	td := desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("a", desc.NewPrimitive(desc.U8)),
	}, desc.LayoutOpts{Kind: desc.StructAggregate, AutoPadding: true, EndPadding: 100})

	c := mustCompute(t, td)
	if c.Size != 101 {
		t.Errorf("Size = %d, want 101 (1 field byte + 100 explicit end padding)", c.Size)
	}
}

func TestComputeStructEndPaddingNone(t *testing.T) {
	td := desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("a", desc.NewPrimitive(desc.U8)),
		desc.NewField("b", desc.NewPrimitive(desc.U32)),
	}, desc.LayoutOpts{Kind: desc.StructAggregate, AutoPadding: true, EndPadding: 0})

	c := mustCompute(t, td)
	// auto-padding still pads "a" to align "b", but no trailing pad after b.
	if c.Size != 8 {
		t.Errorf("Size = %d, want 8", c.Size)
	}
}

func TestComputeStructInvalidEndPadding(t *testing.T) {
	td := desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("a", desc.NewPrimitive(desc.U8)),
	}, desc.LayoutOpts{Kind: desc.StructAggregate, AutoPadding: true, EndPadding: -2})

	if _, err := Compute(td); err == nil {
		t.Error("expected an error for end_padding < -1")
	}
}

func TestComputeStructByteOrderOnNonPrimitiveRejected(t *testing.T) {
	inner := desc.NewStruct([]desc.FieldDescriptor{desc.NewField("x", desc.NewPrimitive(desc.U8))})
	td := desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("s", inner, desc.FieldOpts{ByteOrder: desc.BigEndian}),
	})
	if _, err := Compute(td); err == nil {
		t.Error("expected an error for byte_order override on a non-primitive field")
	}
}

func TestComputeStructBadAlignmentOverride(t *testing.T) {
	td := desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("a", desc.NewPrimitive(desc.U8), desc.FieldOpts{AlignmentOverride: 3}),
	})
	if _, err := Compute(td); err == nil {
		t.Error("expected an error for a non-power-of-two alignment override")
	}
}

func TestComputeUnionOverlapAtZero(t *testing.T) {
	td := desc.NewUnion([]desc.FieldDescriptor{
		desc.NewField("i", desc.NewPrimitive(desc.I32)),
		desc.NewField("f", desc.NewPrimitive(desc.F64)),
	})

	c := mustCompute(t, td)
	if c.Shape != UnionShape {
		t.Errorf("Shape = %v, want UnionShape", c.Shape)
	}
	if c.Size != 8 {
		t.Errorf("Size = %d, want 8 (max of member sizes)", c.Size)
	}
	if c.Alignment != 8 {
		t.Errorf("Alignment = %d, want 8", c.Alignment)
	}
	i, err := c.FindMember("i")
	if err != nil || i.Offset != 0 {
		t.Errorf("i offset = %v (err=%v), want 0", i, err)
	}
	f, err := c.FindMember("f")
	if err != nil || f.Offset != 0 {
		t.Errorf("f offset = %v (err=%v), want 0", f, err)
	}
}

func TestComputeArrayFixedCount(t *testing.T) {
	td := desc.NewArray(desc.NewPrimitive(desc.U32), 4)
	c := mustCompute(t, td)
	if c.Shape != ArrayShape {
		t.Errorf("Shape = %v, want ArrayShape", c.Shape)
	}
	if c.Size != 16 {
		t.Errorf("Size = %d, want 16", c.Size)
	}
	if c.Alignment != 4 {
		t.Errorf("Alignment = %d, want 4", c.Alignment)
	}
}

func TestComputeArrayUnsizedTail(t *testing.T) {
	td := desc.NewArray(desc.NewPrimitive(desc.U32), 0)
	c := mustCompute(t, td)
	if c.Size != 0 {
		t.Errorf("Size = %d, want 0 for an unsized tail", c.Size)
	}
	// Alignment still reflects the element type, even though size is 0.
	if c.Alignment != 4 {
		t.Errorf("Alignment = %d, want 4", c.Alignment)
	}
}

func TestComputeNestedStructTiles(t *testing.T) {
	inner := desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("a", desc.NewPrimitive(desc.U8)),
		desc.NewField("b", desc.NewPrimitive(desc.U32)),
	})
	outer := desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("first", inner),
		desc.NewField("second", desc.NewPrimitive(desc.U8)),
	})

	c := mustCompute(t, outer)
	first, err := c.FindMember("first")
	if err != nil {
		t.Fatalf("FindMember(first): %v", err)
	}
	if first.Computed.Size != 8 {
		t.Errorf("inner struct size = %d, want 8 (tiled to its own alignment)", first.Computed.Size)
	}
}

func TestComputeIsMemoizedByIdentity(t *testing.T) {
	td := desc.NewPrimitive(desc.U32)
	c1, err := Compute(td)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	c2, err := Compute(td)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if c1 != c2 {
		t.Error("Compute(t) twice on the same descriptor should return the identical cached *Computed")
	}

	td2 := desc.NewPrimitive(desc.U32)
	c3, err := Compute(td2)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if c3 == c1 {
		t.Error("a distinct descriptor value should not share the first one's cache entry")
	}
}

func TestFindMemberNotFound(t *testing.T) {
	c := mustCompute(t, desc.NewStruct([]desc.FieldDescriptor{desc.NewField("a", desc.NewPrimitive(desc.U8))}))
	if _, err := c.FindMember("nope"); err == nil {
		t.Error("expected an error for a missing member")
	}
}
