// Package layout describes the in-memory shape of values copied into slabs.
//
// Two sources of layout are supported:
//
//   - Go types: Of reports size and alignment from unsafe.Sizeof and
//     unsafe.Alignof, and PointerFree reports whether the type's bytes can be
//     written outside the Go heap without hiding pointers from the collector.
//   - WIT types: Calculator computes Canonical ABI size, alignment and record
//     field offsets, which is how a wasm guest expects data in linear memory.
//
// Check ties the two together: before copying a Go value into guest memory,
// it verifies that the Go type has exactly the layout the guest expects.
//
//	c := layout.NewCalculator()
//	if err := layout.Check[Vertex](c, vertexType); err != nil {
//	    return err
//	}
package layout
