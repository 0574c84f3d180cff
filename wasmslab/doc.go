// Package wasmslab provides slabs over WebAssembly linear memory.
//
// This package bridges wazero's memory API with slabcopy.Slab, so typed host
// values can be copied into guest memory without going through per-field
// encoders.
//
// # Memory Window
//
// Wraps a range of guest memory the host is allowed to write:
//
//	s, err := wasmslab.New(mod.Memory(), ptr, size)
//	rec, err := slabcopy.CopySlice(s, 0, vertices)
//	// pass s.Base()+rec.Offset and rec.Len to the guest
//
// # Guest Allocations
//
// Allocates through the guest's cabi_realloc export and frees on Close:
//
//	o, err := wasmslab.AllocFromModule(ctx, mod, 1024, 16)
//	defer o.Close()
//
// # Layout Checks
//
// CopyChecked and CopySliceChecked verify with layout.Check that the Go type
// matches the Canonical ABI layout of a WIT type before writing.
//
// Slabs from this package are NOT safe for concurrent use: wazero memory of a
// module instance must be accessed by one goroutine at a time.
package wasmslab
