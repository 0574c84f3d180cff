package main

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/slabcopy"
	"github.com/wippyai/slabcopy/wasmslab"
)

// region is a slab together with a way to read it back without going
// through the Slab interface.
type region struct {
	slab    slabcopy.Slab
	observe func() ([]byte, error)
	close   func() error
}

func openRegion(ctx context.Context, backing string, size, alignment uintptr) (*region, error) {
	switch backing {
	case "heap":
		return openHeap(size, alignment)
	case "mmap":
		return openMmap(size)
	case "wasm":
		return openWasm(ctx, size, alignment)
	default:
		return nil, fmt.Errorf("unknown backing %q (want heap, mmap or wasm)", backing)
	}
}

func openHeap(size, alignment uintptr) (*region, error) {
	if size == 0 {
		return nil, fmt.Errorf("size must be positive")
	}
	buf := make([]byte, size+alignment)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	pad := (alignment - addr%alignment) % alignment
	window := buf[pad : pad+size]

	s, err := slabcopy.FromRaw(unsafe.Pointer(unsafe.SliceData(window)), size, alignment)
	if err != nil {
		return nil, err
	}
	return &region{
		slab:    s,
		observe: func() ([]byte, error) { return window, nil },
		close:   func() error { return nil },
	}, nil
}

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

// guestHeapStart keeps the first KiB of guest memory unused so that null
// stays distinguishable from a real allocation.
const guestHeapStart = 1024

// bumpAllocator is a host cabi_realloc that hands out memory upwards and
// never reuses it.
type bumpAllocator struct {
	next uint32
}

func (b *bumpAllocator) realloc(_ context.Context, _, _, alignment, newSize uint32) uint32 {
	if newSize == 0 {
		return 0
	}
	p := (b.next + alignment - 1) &^ (alignment - 1)
	b.next = p + newSize
	return p
}

func openWasm(ctx context.Context, size, alignment uintptr) (*region, error) {
	if size > 1<<31 || alignment > wasmslab.PageSize {
		return nil, fmt.Errorf("wasm backing supports up to 2 GiB with alignment up to %d", wasmslab.PageSize)
	}
	rt := wazero.NewRuntime(ctx)
	fail := func(err error) (*region, error) {
		rt.Close(ctx)
		return nil, err
	}

	alloc := &bumpAllocator{next: guestHeapStart}
	if _, err := rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().WithFunc(alloc.realloc).Export(wasmslab.DefaultAllocatorExport).
		Instantiate(ctx); err != nil {
		return fail(fmt.Errorf("instantiate env: %w", err))
	}
	mod, err := rt.Instantiate(ctx, guestWASM)
	if err != nil {
		return fail(fmt.Errorf("instantiate guest: %w", err))
	}

	mem := mod.Memory()
	if err := growFor(mem, guestHeapStart+uint64(size)+uint64(alignment)); err != nil {
		return fail(err)
	}

	o, err := wasmslab.AllocFromModule(ctx, mod, uint32(size), uint32(alignment))
	if err != nil {
		return fail(err)
	}
	s := o.Slab().(*wasmslab.Slab)
	return &region{
		slab: o,
		observe: func() ([]byte, error) {
			b, ok := mem.Read(s.Base(), uint32(size))
			if !ok {
				return nil, fmt.Errorf("guest memory read out of bounds")
			}
			return b, nil
		},
		close: func() error {
			err := o.Close()
			rt.Close(ctx)
			return err
		},
	}, nil
}

func growFor(mem api.Memory, need uint64) error {
	have := uint64(mem.Size())
	if need <= have {
		return nil
	}
	pages := (need - have + wasmslab.PageSize - 1) / wasmslab.PageSize
	if _, ok := mem.Grow(uint32(pages)); !ok {
		return fmt.Errorf("grow guest memory by %d pages", pages)
	}
	return nil
}
