package wasmslab

import (
	"context"
	"encoding/binary"
	stderrors "errors"
	"math"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/slabcopy"
	"github.com/wippyai/slabcopy/errors"
	"github.com/wippyai/slabcopy/layout"
)

// guestWASM imports env.cabi_realloc and exports a local cabi_realloc that
// forwards all four arguments to it, plus 1 page of memory as "memory".
var guestWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	0x01, 0x09, 0x01, 0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7f, 0x01, 0x7f, // type: (i32 i32 i32 i32) -> i32
	0x02, 0x14, 0x01, // import section: 20 bytes, 1 import
	0x03, 0x65, 0x6e, 0x76, // module: "env"
	0x0c, 0x63, 0x61, 0x62, 0x69, 0x5f, 0x72, 0x65, 0x61, 0x6c, 0x6c, 0x6f, 0x63, // name: "cabi_realloc"
	0x00, 0x00, // kind: func, type 0
	0x03, 0x02, 0x01, 0x00, // function section: 1 function of type 0
	0x05, 0x03, 0x01, 0x00, 0x01, // memory section: 1 page, no max
	0x07, 0x19, 0x02, // export section: 25 bytes, 2 exports
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, // name: "memory"
	0x02, 0x00, // kind: memory, index 0
	0x0c, 0x63, 0x61, 0x62, 0x69, 0x5f, 0x72, 0x65, 0x61, 0x6c, 0x6c, 0x6f, 0x63, // name: "cabi_realloc"
	0x00, 0x01, // kind: func, index 1 (the local wrapper)
	0x0a, 0x0e, 0x01, // code section: 14 bytes, 1 body
	0x0c, 0x00, // body: 12 bytes, no locals
	0x20, 0x00, 0x20, 0x01, 0x20, 0x02, 0x20, 0x03, // local.get 0..3
	0x10, 0x00, // call 0 (env.cabi_realloc)
	0x0b, // end
}

type vertex struct {
	X, Y, Z float32
	Color   uint32
}

func vertexType() wit.Type {
	return &wit.TypeDef{Kind: &wit.Record{
		Fields: []wit.Field{
			{Name: "x", Type: wit.F32{}},
			{Name: "y", Type: wit.F32{}},
			{Name: "z", Type: wit.F32{}},
			{Name: "color", Type: wit.U32{}},
		},
	}}
}

// bump is a host-side cabi_realloc that never reuses memory.
type bump struct {
	next  uint32
	fail  uint32
	frees []uint32
}

func (b *bump) realloc(_ context.Context, oldPtr, _, alignment, newSize uint32) uint32 {
	if newSize == 0 {
		b.frees = append(b.frees, oldPtr)
		return 0
	}
	if newSize == b.fail {
		return 0
	}
	p := (b.next + alignment - 1) &^ (alignment - 1)
	b.next = p + newSize
	return p
}

func newGuest(t *testing.T) (api.Module, *bump) {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	alloc := &bump{next: 1024, fail: math.MaxUint32}
	if _, err := rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().WithFunc(alloc.realloc).Export("cabi_realloc").
		Instantiate(ctx); err != nil {
		t.Fatalf("failed to instantiate env: %v", err)
	}

	compiled, err := rt.CompileModule(ctx, guestWASM)
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}
	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		t.Fatalf("failed to instantiate: %v", err)
	}
	return mod, alloc
}

func read(t *testing.T, mem api.Memory, ptr, n uint32) []byte {
	t.Helper()
	b, ok := mem.Read(ptr, n)
	if !ok {
		t.Fatalf("read [%d, +%d) out of bounds", ptr, n)
	}
	return append([]byte(nil), b...)
}

func TestNew(t *testing.T) {
	mod, _ := newGuest(t)
	mem := mod.Memory()

	tests := []struct {
		name      string
		base      uint32
		size      uint32
		wantAlign uintptr
		wantErr   error
	}{
		{"zero base", 0, 64, PageSize, nil},
		{"aligned 16", 4096 + 16, 64, 16, nil},
		{"odd base", 1029, 8, 1, nil},
		{"exact end", PageSize - 8, 8, 8, nil},
		{"past end", PageSize - 8, 16, 0, errors.ErrCapacityExceeded},
		{"base past end", PageSize + 8, 0, 0, errors.ErrCapacityExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(mem, tt.base, tt.size)
			if tt.wantErr != nil {
				if !stderrors.Is(err, tt.wantErr) {
					t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if s.Align() != tt.wantAlign {
				t.Errorf("Align() = %d, want %d", s.Align(), tt.wantAlign)
			}
			if s.Size() != uintptr(tt.size) || s.Base() != tt.base {
				t.Errorf("window = [%d, +%d)", s.Base(), s.Size())
			}
		})
	}

	if _, err := New(nil, 0, 0); !stderrors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("New(nil) error = %v", err)
	}
}

func TestSlab_CopyIntoGuest(t *testing.T) {
	mod, _ := newGuest(t)
	mem := mod.Memory()

	s, err := New(mem, 2048, 64)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec, err := slabcopy.CopyValue(s, 1, uint32(0xDEADBEEF))
	if err != nil {
		t.Fatalf("CopyValue() error = %v", err)
	}
	if rec.Offset != 4 || rec.Len != 4 {
		t.Fatalf("record = %v, want [4, 8)", rec)
	}

	ptr, n := s.GuestPtr(rec)
	if ptr != 2052 || n != 4 {
		t.Fatalf("GuestPtr() = %d, %d", ptr, n)
	}
	if got := binary.LittleEndian.Uint32(read(t, mem, ptr, n)); got != 0xDEADBEEF {
		t.Errorf("guest value = %#x", got)
	}
}

func TestSlab_AlignmentFromBase(t *testing.T) {
	mod, _ := newGuest(t)

	s, err := New(mod.Memory(), 1028, 64)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = slabcopy.CopyValue(s, 0, uint64(1))
	if !stderrors.Is(err, errors.ErrAlignmentUnsatisfiable) {
		t.Fatalf("CopyValue(uint64) error = %v, want alignment unsatisfiable", err)
	}
	if got := read(t, mod.Memory(), 1028, 8); binary.LittleEndian.Uint64(got) != 0 {
		t.Errorf("memory written on failure: %x", got)
	}
}

func TestSlab_WritePanics(t *testing.T) {
	mod, _ := newGuest(t)

	s, err := New(mod.Memory(), 0, 4)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for write past window")
		}
	}()
	s.Write(2, []byte{1, 2, 3})
}

func TestAllocFromModule(t *testing.T) {
	ctx := context.Background()
	mod, alloc := newGuest(t)

	o, err := AllocFromModule(ctx, mod, 48, 16)
	if err != nil {
		t.Fatalf("AllocFromModule() error = %v", err)
	}
	s := o.Slab().(*Slab)
	if s.Base()%16 != 0 || o.Align() < 16 {
		t.Errorf("allocation at %d with align %d", s.Base(), o.Align())
	}

	verts := []vertex{{1, 2, 3, 0xFF0000FF}, {4, 5, 6, 0x00FF00FF}}
	rec, err := slabcopy.CopySlice(o, 0, verts)
	if err != nil {
		t.Fatalf("CopySlice() error = %v", err)
	}
	ptr, n := s.GuestPtr(rec)
	got := read(t, mod.Memory(), ptr, n)
	if c := binary.LittleEndian.Uint32(got[28:]); c != 0x00FF00FF {
		t.Errorf("second color = %#x", c)
	}

	if err := o.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if len(alloc.frees) != 1 || alloc.frees[0] != s.Base() {
		t.Errorf("frees = %v, want [%d]", alloc.frees, s.Base())
	}
}

func TestGuestAllocatorIsLocal(t *testing.T) {
	mod, alloc := newGuest(t)

	def, ok := mod.ExportedFunctionDefinitions()[DefaultAllocatorExport]
	if !ok {
		t.Fatalf("guest does not export %s", DefaultAllocatorExport)
	}
	if _, _, isImport := def.Import(); isImport {
		t.Fatalf("%s is a re-exported import", DefaultAllocatorExport)
	}

	results, err := mod.ExportedFunction(DefaultAllocatorExport).Call(context.Background(), 0, 0, 8, 24)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if len(results) != 1 || results[0] != 1024 || alloc.next != 1048 {
		t.Errorf("Call() = %v, next = %d, want [1024], 1048", results, alloc.next)
	}
}

func TestAlloc_FreeAfterCancel(t *testing.T) {
	mod, alloc := newGuest(t)
	ctx, cancel := context.WithCancel(context.Background())

	o, err := AllocFromModule(ctx, mod, 16, 8)
	if err != nil {
		t.Fatalf("AllocFromModule() error = %v", err)
	}
	base := o.Slab().(*Slab).Base()
	cancel()

	if err := o.Close(); err != nil {
		t.Fatalf("Close() after cancel error = %v", err)
	}
	if len(alloc.frees) != 1 || alloc.frees[0] != base {
		t.Errorf("frees = %v, want [%d]", alloc.frees, base)
	}
}

func TestAlloc_Errors(t *testing.T) {
	ctx := context.Background()
	mod, alloc := newGuest(t)
	fn := mod.ExportedFunction(DefaultAllocatorExport)

	t.Run("missing export", func(t *testing.T) {
		_, err := AllocFromModule(ctx, mod, 8, 8, WithAllocatorExport("malloc"))
		if !stderrors.Is(err, errors.ErrInvalidInput) {
			t.Errorf("error = %v, want invalid input", err)
		}
	})

	t.Run("bad alignment", func(t *testing.T) {
		_, err := Alloc(ctx, mod.Memory(), fn, 8, 6)
		if !stderrors.Is(err, errors.ErrInvalidInput) {
			t.Errorf("error = %v, want invalid input", err)
		}
	})

	t.Run("null", func(t *testing.T) {
		alloc.fail = 77
		defer func() { alloc.fail = math.MaxUint32 }()
		_, err := Alloc(ctx, mod.Memory(), fn, 77, 8)
		if !stderrors.Is(err, errors.ErrAllocation) {
			t.Errorf("error = %v, want allocation failure", err)
		}
	})

	t.Run("past memory end", func(t *testing.T) {
		frees := len(alloc.frees)
		_, err := Alloc(ctx, mod.Memory(), fn, 2*PageSize, 8)
		if !stderrors.Is(err, errors.ErrCapacityExceeded) {
			t.Errorf("error = %v, want capacity exceeded", err)
		}
		if len(alloc.frees) != frees+1 {
			t.Error("rejected allocation not freed")
		}
	})
}

func TestCopyChecked(t *testing.T) {
	ctx := context.Background()
	mod, _ := newGuest(t)
	c := layout.NewCalculator()

	o, err := AllocFromModule(ctx, mod, 64, 4)
	if err != nil {
		t.Fatalf("AllocFromModule() error = %v", err)
	}
	defer o.Close()
	base := o.Slab().(*Slab).Base()

	v := vertex{1.5, -2, 0, 0xAABBCCDD}
	rec, err := CopyChecked(c, o, 0, v, vertexType())
	if err != nil {
		t.Fatalf("CopyChecked() error = %v", err)
	}
	got := read(t, mod.Memory(), base+uint32(rec.Offset), uint32(rec.Len))
	if x := math.Float32frombits(binary.LittleEndian.Uint32(got)); x != 1.5 {
		t.Errorf("x = %v", x)
	}

	type swapped struct {
		Color   uint32
		X, Y, Z float32
	}
	_, err = CopyChecked(c, o, 16, swapped{}, vertexType())
	if !stderrors.Is(err, errors.ErrLayoutMismatch) {
		t.Fatalf("CopyChecked(swapped) error = %v, want layout mismatch", err)
	}
	if got := read(t, mod.Memory(), base+16, 16); binary.LittleEndian.Uint64(got) != 0 {
		t.Errorf("memory written on mismatch: %x", got)
	}

	rec, err = CopySliceChecked(c, o, 16, []uint16{1, 2, 3}, wit.U16{})
	if err != nil || rec.Len != 6 {
		t.Fatalf("CopySliceChecked() = %v, %v", rec, err)
	}
	if _, err := CopySliceChecked(c, o, 32, []uint16{1}, wit.U32{}); !stderrors.Is(err, errors.ErrLayoutMismatch) {
		t.Errorf("CopySliceChecked(u32) error = %v", err)
	}
}
