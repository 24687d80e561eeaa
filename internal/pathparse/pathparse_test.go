package pathparse

import (
	"testing"

	"github.com/alexhholmes/memlayout/internal/desc"
	"github.com/alexhholmes/memlayout/internal/layout"
)

func TestParse(t *testing.T) {
	tests := []struct {
		path    string
		want    []Step
		wantErr bool
	}{
		{".x", []Step{{Kind: FieldStep, Name: "x"}}, false},
		{".header.numKeys", []Step{{Kind: FieldStep, Name: "header"}, {Kind: FieldStep, Name: "numKeys"}}, false},
		{"[]", []Step{{Kind: ArrayStep}}, false},
		{".elements[]", []Step{{Kind: FieldStep, Name: "elements"}, {Kind: ArrayStep}}, false},
		{"[][]", []Step{{Kind: ArrayStep}, {Kind: ArrayStep}}, false},
		{"", nil, true},
		{"x", nil, true},
		{".", nil, true},
		{".1abc", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := Parse(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Parse(%q) expected error, got nil", tt.path)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.path, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.path, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Parse(%q)[%d] = %+v, want %+v", tt.path, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func pointType() desc.TypeDescriptor {
	return desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("X", desc.NewPrimitive(desc.I32)),
		desc.NewField("Y", desc.NewPrimitive(desc.I32)),
	})
}

func TestResolveFieldStep(t *testing.T) {
	c, err := layout.Compute(pointType())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	steps, err := Parse(".Y")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r, err := Resolve(c, steps)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Offset != 4 {
		t.Errorf("Offset = %d, want 4", r.Offset)
	}
	if len(r.Strides) != 0 {
		t.Errorf("Strides = %v, want none", r.Strides)
	}
}

func TestResolveFieldNotFound(t *testing.T) {
	c, err := layout.Compute(pointType())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	steps, _ := Parse(".Z")
	if _, err := Resolve(c, steps); err == nil {
		t.Error("expected an error for an unknown field")
	}
}

func TestResolveArrayStep(t *testing.T) {
	arr := desc.NewArray(desc.NewPrimitive(desc.U32), 10)
	c, err := layout.Compute(arr)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	steps, err := Parse("[]")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r, err := Resolve(c, steps)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(r.Strides) != 1 || r.Strides[0] != 4 {
		t.Errorf("Strides = %v, want [4]", r.Strides)
	}
	if r.Final.Shape != layout.PrimitiveShape {
		t.Errorf("Final.Shape = %v, want PrimitiveShape", r.Final.Shape)
	}
}

func TestByteOffsetRequiresNoIndices(t *testing.T) {
	arr := desc.NewStruct([]desc.FieldDescriptor{
		desc.NewField("items", desc.NewArray(desc.NewPrimitive(desc.U32), 4)),
	})
	c, err := layout.Compute(arr)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if _, err := ByteOffset(c, ".items[]"); err == nil {
		t.Error("expected an error: path requires an index ByteOffset cannot supply")
	}

	if off, err := ByteOffset(c, ".items"); err != nil || off != 0 {
		t.Errorf("ByteOffset(.items) = %d, %v; want 0, nil", off, err)
	}
}

func TestResolveFieldStepOnNonAggregate(t *testing.T) {
	c, err := layout.Compute(desc.NewPrimitive(desc.U32))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	steps, _ := Parse(".x")
	if _, err := Resolve(c, steps); err == nil {
		t.Error("expected an error resolving a field step against a primitive layout")
	}
}
