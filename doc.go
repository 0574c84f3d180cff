// Package slabcopy copies typed Go values into raw memory that may be
// uninitialized, misaligned for the value, or not readable by the caller,
// such as buffers mapped by a graphics driver or a wasm guest's linear memory.
//
// # Architecture Overview
//
//	slabcopy/            Slab capability, copy operations, owned slabs, cursor
//	├── layout/          Go and WIT (Canonical ABI) type layouts, layout checks
//	├── mmapslab/        Slabs over anonymous and file memory mappings (unix)
//	├── wasmslab/        Slabs over wazero linear memory and guest allocations
//	├── errors/          Structured error types
//	├── internal/align/  Overflow-checked offset arithmetic
//	├── cmd/slabdump/    Demo tool that copies values and dumps the region
//	└── examples/basic/  Staging a header and vertex array in one buffer
//
// # Slabs
//
// A Slab is anything that can describe a writable byte span: its size, the
// alignment guaranteed for its base address, and a Write method that stores
// bytes at an offset without reading or typing the destination.
//
//	buf := make([]byte, 256)
//	s := slabcopy.FromBytes(buf)            // caller-owned buffer
//	r, err := slabcopy.FromRaw(ptr, n, 64)  // foreign memory
//	h, err := slabcopy.NewHeap(4096, 256)   // owned, Go heap
//
// # Copying
//
// Copy operations compute the first offset at or after the requested one that
// satisfies the value's alignment, check the range fits, write, and return a
// Record naming exactly which bytes were written:
//
//	rec, err := slabcopy.CopyValue(s, 1, uint32(7))          // rec == {4, 4}
//	rec, err  = slabcopy.CopySlice(s, rec.End(), vertices)
//	rec, err  = slabcopy.CopyStrided(s, 0, lights, 256)      // uniform array stride
//
// Failures are returned, never truncated: capacity exceeded, alignment
// unsatisfiable (the slab's declared base alignment is below what the value
// needs) and arithmetic overflow. Nothing is written when validation fails.
//
// Source types must be free of Go pointers. Padding inside a struct is copied
// as-is.
//
// # Ownership
//
// Owned pairs a slab with a release function that runs exactly once:
//
//	err := slabcopy.WithOwned(s, free, func(s slabcopy.Slab) error {
//	    _, err := slabcopy.CopySlice(s, 0, indices)
//	    return err
//	})
//
// # Thread Safety
//
// Copies are synchronous. Concurrent copies are safe only into disjoint
// ranges of a slab whose implementation allows it; BytesSlab, RawSlab, heap
// and mmap slabs do, wasmslab does not. Ordering and non-overlap are the
// caller's responsibility. Cursor is not safe for concurrent use.
package slabcopy
