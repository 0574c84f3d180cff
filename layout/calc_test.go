package layout

import (
	"testing"

	"go.bytecodealliance.org/wit"
)

func TestCalculatePrimitives(t *testing.T) {
	c := NewCalculator()

	tests := []struct {
		typ   wit.Type
		name  string
		size  uintptr
		align uintptr
	}{
		{wit.Bool{}, "bool", 1, 1},
		{wit.U8{}, "u8", 1, 1},
		{wit.S8{}, "s8", 1, 1},
		{wit.U16{}, "u16", 2, 2},
		{wit.S16{}, "s16", 2, 2},
		{wit.U32{}, "u32", 4, 4},
		{wit.S32{}, "s32", 4, 4},
		{wit.U64{}, "u64", 8, 8},
		{wit.S64{}, "s64", 8, 8},
		{wit.F32{}, "f32", 4, 4},
		{wit.F64{}, "f64", 8, 8},
		{wit.Char{}, "char", 4, 4},
		{wit.String{}, "string", 8, 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := c.Calculate(tc.typ)
			if info.Size != tc.size {
				t.Errorf("size: got %d, want %d", info.Size, tc.size)
			}
			if info.Align != tc.align {
				t.Errorf("align: got %d, want %d", info.Align, tc.align)
			}
		})
	}
}

func TestCalculateRecord(t *testing.T) {
	c := NewCalculator()

	t.Run("empty", func(t *testing.T) {
		typedef := &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{}}}
		info := c.Calculate(typedef)
		if info.Size != 0 || info.Align != 1 {
			t.Errorf("got size/align %d/%d, want 0/1", info.Size, info.Align)
		}
	})

	t.Run("mixed_alignment", func(t *testing.T) {
		typedef := &wit.TypeDef{Kind: &wit.Record{
			Fields: []wit.Field{
				{Name: "a", Type: wit.U8{}},
				{Name: "b", Type: wit.U32{}},
				{Name: "c", Type: wit.U8{}},
			},
		}}
		info := c.Calculate(typedef)

		want := map[string]uintptr{"a": 0, "b": 4, "c": 8}
		for name, off := range want {
			if info.FieldOffs[name] != off {
				t.Errorf("field %s offset: got %d, want %d", name, info.FieldOffs[name], off)
			}
		}
		if info.Size != 12 {
			t.Errorf("size: got %d, want 12", info.Size)
		}
		if info.Align != 4 {
			t.Errorf("align: got %d, want 4", info.Align)
		}
	})

	t.Run("u64_alignment", func(t *testing.T) {
		typedef := &wit.TypeDef{Kind: &wit.Record{
			Fields: []wit.Field{
				{Name: "a", Type: wit.U8{}},
				{Name: "b", Type: wit.U64{}},
			},
		}}
		info := c.Calculate(typedef)
		if info.FieldOffs["b"] != 8 {
			t.Errorf("field b offset: got %d, want 8", info.FieldOffs["b"])
		}
		if info.Size != 16 || info.Align != 8 {
			t.Errorf("got size/align %d/%d, want 16/8", info.Size, info.Align)
		}
	})

	t.Run("cached", func(t *testing.T) {
		typedef := &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{{Name: "x", Type: wit.U16{}}}}}
		first := c.Calculate(typedef)
		if _, ok := c.cache[typedef]; !ok {
			t.Fatal("expected typedef to be cached")
		}
		if second := c.Calculate(typedef); second.Size != first.Size {
			t.Errorf("cached size %d differs from %d", second.Size, first.Size)
		}
	})
}

func TestCalculateCompound(t *testing.T) {
	c := NewCalculator()

	tests := []struct {
		typ   wit.Type
		name  string
		size  uintptr
		align uintptr
	}{
		{&wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}}, "list", 8, 4},
		{&wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{}}}, "empty_tuple", 0, 1},
		{&wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{wit.U8{}, wit.U64{}, wit.U8{}}}}, "tuple_u8_u64_u8", 24, 8},
		{&wit.TypeDef{Kind: &wit.Option{Type: wit.U32{}}}, "option_u32", 8, 4},
		{&wit.TypeDef{Kind: &wit.Option{Type: wit.U8{}}}, "option_u8", 2, 1},
		{&wit.TypeDef{Kind: &wit.Result{OK: wit.U64{}}}, "result_u64", 16, 8},
		{&wit.TypeDef{Kind: &wit.Result{}}, "result_empty", 1, 1},
		{&wit.TypeDef{Kind: &wit.Variant{Cases: []wit.Case{{Name: "a", Type: wit.U16{}}, {Name: "b"}}}}, "variant", 4, 2},
		{&wit.TypeDef{Kind: &wit.Enum{Cases: make([]wit.EnumCase, 3)}}, "enum_small", 1, 1},
		{&wit.TypeDef{Kind: &wit.Enum{Cases: make([]wit.EnumCase, 300)}}, "enum_u16", 2, 2},
		{&wit.TypeDef{Kind: &wit.Flags{Flags: make([]wit.Flag, 0)}}, "flags_0", 0, 1},
		{&wit.TypeDef{Kind: &wit.Flags{Flags: make([]wit.Flag, 8)}}, "flags_8", 1, 1},
		{&wit.TypeDef{Kind: &wit.Flags{Flags: make([]wit.Flag, 9)}}, "flags_9", 2, 2},
		{&wit.TypeDef{Kind: &wit.Flags{Flags: make([]wit.Flag, 32)}}, "flags_32", 4, 4},
		{&wit.TypeDef{Kind: &wit.Flags{Flags: make([]wit.Flag, 33)}}, "flags_33", 8, 4},
		{&wit.TypeDef{Kind: &wit.Flags{Flags: make([]wit.Flag, 64)}}, "flags_64", 8, 4},
		{&wit.TypeDef{Kind: &wit.Flags{Flags: make([]wit.Flag, 65)}}, "flags_65", 12, 4},
		{&wit.TypeDef{Kind: wit.U32{}}, "alias", 4, 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := c.Calculate(tc.typ)
			if info.Size != tc.size {
				t.Errorf("size: got %d, want %d", info.Size, tc.size)
			}
			if info.Align != tc.align {
				t.Errorf("align: got %d, want %d", info.Align, tc.align)
			}
		})
	}
}
