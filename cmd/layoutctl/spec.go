package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/alexhholmes/memlayout"
)

// fieldSpec is the TOML shape of one FieldDescriptor or, recursively, one
// Struct/Union/Array TypeDescriptor. Exactly one of the primitive kinds,
// "struct", "union", or "array" is expected in Kind.
type fieldSpec struct {
	Name              string      `toml:"name"`
	Kind              string      `toml:"kind"`
	Fields            []fieldSpec `toml:"fields"`
	Element           *fieldSpec  `toml:"element"`
	Count             uint64      `toml:"count"`
	AutoPadding       *bool       `toml:"auto_padding"`
	EndPadding        *int64      `toml:"end_padding"`
	AlignmentOverride uint64      `toml:"alignment_override"`
	PaddingBefore     *uint64     `toml:"padding_before"`
	ByteOrder         string      `toml:"byte_order"`
}

// documentSpec is the top-level TOML document: a single root type under
// [layout].
type documentSpec struct {
	Layout fieldSpec `toml:"layout"`
}

func loadDocument(path string) (*documentSpec, error) {
	var doc documentSpec
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &doc, nil
}

var primitiveKinds = map[string]memlayout.PrimitiveKind{
	"bool":   memlayout.KBool,
	"i8":     memlayout.KI8,
	"u8":     memlayout.KU8,
	"i16":    memlayout.KI16,
	"u16":    memlayout.KU16,
	"i32":    memlayout.KI32,
	"u32":    memlayout.KU32,
	"i64":    memlayout.KI64,
	"u64":    memlayout.KU64,
	"f32":    memlayout.KF32,
	"f64":    memlayout.KF64,
	"char16": memlayout.KChar16,
}

var byteOrders = map[string]memlayout.ByteOrder{
	"":              memlayout.NativeEndian,
	"native":        memlayout.NativeEndian,
	"little_endian": memlayout.LittleEndian,
	"big_endian":    memlayout.BigEndian,
}

func buildType(f fieldSpec) (memlayout.TypeDescriptor, error) {
	if pk, ok := primitiveKinds[f.Kind]; ok {
		return memlayout.Primitive(pk), nil
	}

	switch f.Kind {
	case "struct", "union":
		fields := make([]memlayout.FieldDescriptor, len(f.Fields))
		for i, child := range f.Fields {
			fd, err := buildField(child)
			if err != nil {
				return nil, err
			}
			fields[i] = fd
		}

		opts := memlayout.DefaultLayoutOpts()
		if f.AutoPadding != nil {
			opts.AutoPadding = *f.AutoPadding
		}
		if f.EndPadding != nil {
			opts.EndPadding = *f.EndPadding
		}

		if f.Kind == "union" {
			return memlayout.Union(fields, opts), nil
		}
		return memlayout.Struct(fields, opts), nil

	case "array":
		if f.Element == nil {
			return nil, fmt.Errorf("array field %q is missing [element]", f.Name)
		}
		elem, err := buildType(*f.Element)
		if err != nil {
			return nil, err
		}
		return memlayout.Array(elem, f.Count), nil

	default:
		return nil, fmt.Errorf("unknown kind %q (field %q)", f.Kind, f.Name)
	}
}

func buildField(f fieldSpec) (memlayout.FieldDescriptor, error) {
	t, err := buildType(f)
	if err != nil {
		return memlayout.FieldDescriptor{}, err
	}

	bo, ok := byteOrders[f.ByteOrder]
	if !ok {
		return memlayout.FieldDescriptor{}, fmt.Errorf("field %q: unknown byte_order %q", f.Name, f.ByteOrder)
	}

	return memlayout.Field(f.Name, t, memlayout.FieldOpts{
		AlignmentOverride: f.AlignmentOverride,
		PaddingBefore:     f.PaddingBefore,
		ByteOrder:         bo,
	}), nil
}

func loadTypeDescriptor(path string) (memlayout.TypeDescriptor, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}
	return buildType(doc.Layout)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
