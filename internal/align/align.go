package align

import (
	"math/bits"

	"github.com/wippyai/slabcopy/errors"
)

const maxUintptr = ^uintptr(0)

func IsPow2(n uintptr) bool {
	return n != 0 && n&(n-1) == 0
}

// NextPow2 returns the smallest power of two >= n, 1 for n == 0 and false
// when the result does not fit in uintptr.
func NextPow2(n uintptr) (uintptr, bool) {
	if n <= 1 {
		return 1, true
	}
	shift := bits.Len(uint(n - 1))
	if shift >= bits.UintSize {
		return 0, false
	}
	return uintptr(1) << shift, true
}

// LowestBit returns the largest power of two dividing n, capped at limit.
// Zero is divisible by everything and yields limit.
func LowestBit(n, limit uintptr) uintptr {
	if n == 0 {
		return limit
	}
	b := n & -n
	if b > limit {
		return limit
	}
	return b
}

func Add(a, b uintptr) (uintptr, bool) {
	if a > maxUintptr-b {
		return 0, false
	}
	return a + b, true
}

func Mul(a, b uintptr) (uintptr, bool) {
	hi, lo := bits.Mul(uint(a), uint(b))
	if hi != 0 {
		return 0, false
	}
	return uintptr(lo), true
}

// Up rounds offset up to a multiple of align. align must be a power of two.
func Up(offset, align uintptr) (uintptr, bool) {
	if align <= 1 {
		return offset, true
	}
	v, ok := Add(offset, align-1)
	if !ok {
		return 0, false
	}
	return v &^ (align - 1), true
}

// Request describes one destination range to validate.
type Request struct {
	GoType    string
	SlabSize  uintptr
	SlabAlign uintptr
	Offset    uintptr
	Length    uintptr
	Align     uintptr
	MinAlign  uintptr
	Exact     bool
}

// Offsets is a validated destination range.
type Offsets struct {
	Start uintptr
	End   uintptr
	Align uintptr
}

// Compute validates r and returns the aligned destination range. Nothing is
// written; callers write only after Compute succeeds.
func Compute(r Request) (Offsets, error) {
	valueAlign := r.Align
	if valueAlign == 0 {
		valueAlign = 1
	}
	if !IsPow2(valueAlign) {
		return Offsets{}, errors.New(errors.PhaseLayout, errors.KindInvalidInput).
			GoType(r.GoType).
			Detailf("alignment %d is not a power of two", valueAlign).
			Build()
	}
	minAlign, ok := NextPow2(r.MinAlign)
	if !ok {
		return Offsets{}, errors.Overflow(errors.PhaseLayout, "minimum alignment")
	}
	need := max(valueAlign, minAlign)

	if !IsPow2(r.SlabAlign) {
		return Offsets{}, errors.InvalidInput(errors.PhaseLayout, "slab base alignment is not a power of two")
	}
	if r.SlabAlign < need {
		e := errors.AlignmentUnsatisfiable(errors.PhaseLayout, need, r.SlabAlign)
		e.GoType = r.GoType
		return Offsets{}, e
	}

	start, ok := Up(r.Offset, need)
	if !ok {
		return Offsets{}, errors.Overflow(errors.PhaseLayout, "aligned offset")
	}
	if r.Exact && start != r.Offset {
		return Offsets{}, errors.UnalignedOffset(errors.PhaseLayout, r.Offset, need)
	}
	end, ok := Add(start, r.Length)
	if !ok {
		return Offsets{}, errors.Overflow(errors.PhaseLayout, "end offset")
	}
	if start > r.SlabSize || end > r.SlabSize {
		e := errors.CapacityExceeded(errors.PhaseLayout, start, r.Length, r.SlabSize)
		e.GoType = r.GoType
		return Offsets{}, e
	}

	return Offsets{Start: start, End: end, Align: need}, nil
}
