// Package align provides overflow-checked offset arithmetic for slab copies.
//
// Every destination range is computed here before any byte is written:
//
//   - Up rounds a relative offset to a power-of-two alignment
//   - Add and Mul are checked uintptr operations
//   - Compute turns a copy request into a validated [start, end) range
//
// The slab's declared base alignment is treated as a conservative lower bound:
// a request needing more alignment than the base guarantees is rejected rather
// than probed against the actual address.
//
// This package is internal to slabcopy.
package align
