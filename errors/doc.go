// Package errors provides structured error types for slab copy operations.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the Go type being copied, the destination range that was
// requested and an optional cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCopy, errors.KindCapacityExceeded).
//		GoType("main.Vertex").
//		Range(64, 48).
//		Detailf("slab holds %d bytes", 96).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.CapacityExceeded(errors.PhaseCopy, 64, 48, 96)
//	err := errors.Overflow(errors.PhaseLayout, "stride 4096 x 1<<60 elements")
//
// All errors implement the standard error interface and support errors.Is/As.
// The exported sentinels (ErrCapacityExceeded, ErrOverflow, ...) carry no phase
// and therefore match an error of the same kind raised in any phase.
package errors
