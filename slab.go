package slabcopy

import (
	"fmt"
	"unsafe"

	"github.com/wippyai/slabcopy/errors"
	"github.com/wippyai/slabcopy/internal/align"
)

// MaxDeclaredAlign caps the base alignment a slab derives from its address.
const MaxDeclaredAlign = 4096

// Slab is a span of raw bytes that may be written but not read. Its contents
// before a write are unspecified and are never inspected.
//
// Implementations must write through address and length only: Write must not
// form a typed view of destination memory. Size and Align must not change
// for the life of the slab. Write panics if offset+len(src) exceeds Size;
// that is a contract violation by the caller, not a recoverable error.
type Slab interface {
	// Size returns the writable length in bytes.
	Size() uintptr
	// Align returns the guaranteed alignment of the base address, a power of two.
	Align() uintptr
	// Write copies src to [offset, offset+len(src)). Bytes outside the range are untouched.
	Write(offset uintptr, src []byte)
}

// Record describes the bytes a copy wrote.
type Record struct {
	Offset uintptr
	Len    uintptr
}

// End returns the offset one past the last written byte.
func (r Record) End() uintptr {
	return r.Offset + r.Len
}

func (r Record) String() string {
	return fmt.Sprintf("[%d, %d)", r.Offset, r.End())
}

// BytesSlab is a Slab over an in-process buffer the caller owns. Writes to
// disjoint ranges may run concurrently.
type BytesSlab struct {
	buf   []byte
	align uintptr
}

// FromBytes wraps buf. The declared base alignment is taken from the buffer's
// address once, here, and capped at MaxDeclaredAlign.
func FromBytes(buf []byte) *BytesSlab {
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	return &BytesSlab{buf: buf, align: align.LowestBit(addr, MaxDeclaredAlign)}
}

func (s *BytesSlab) Size() uintptr  { return uintptr(len(s.buf)) }
func (s *BytesSlab) Align() uintptr { return s.align }

func (s *BytesSlab) Write(offset uintptr, src []byte) {
	end := checkWrite(offset, len(src), s.Size())
	copy(s.buf[offset:end], src)
}

// RawSlab is a Slab over memory obtained outside the Go heap, such as a
// buffer mapped by a device driver or returned from C. The memory must stay
// valid for as long as the RawSlab is used. Writes to disjoint ranges may run
// concurrently.
type RawSlab struct {
	base  unsafe.Pointer
	size  uintptr
	align uintptr
}

// FromRaw wraps size bytes at base. align is the guaranteed alignment of
// base; it must be a power of two that base actually satisfies.
func FromRaw(base unsafe.Pointer, size, alignment uintptr) (*RawSlab, error) {
	if base == nil {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "nil base pointer")
	}
	if !align.IsPow2(alignment) {
		return nil, errors.InvalidInput(errors.PhaseAlloc, fmt.Sprintf("alignment %d is not a power of two", alignment))
	}
	if uintptr(base)%alignment != 0 {
		return nil, errors.InvalidInput(errors.PhaseAlloc, fmt.Sprintf("base %p is not %d-byte aligned", base, alignment))
	}
	if _, ok := align.Add(uintptr(base), size); !ok {
		return nil, errors.Overflow(errors.PhaseAlloc, "base + size")
	}
	return &RawSlab{base: base, size: size, align: alignment}, nil
}

func (s *RawSlab) Size() uintptr  { return s.size }
func (s *RawSlab) Align() uintptr { return s.align }

// Write stores src through a byte span starting at base+offset. Only the
// source is read.
func (s *RawSlab) Write(offset uintptr, src []byte) {
	checkWrite(offset, len(src), s.size)
	if len(src) == 0 {
		return
	}
	dst := unsafe.Slice((*byte)(unsafe.Add(s.base, offset)), len(src))
	copy(dst, src)
}

// checkWrite enforces the Write precondition and returns the end offset.
func checkWrite(offset uintptr, n int, size uintptr) uintptr {
	end, ok := align.Add(offset, uintptr(n))
	if !ok || end > size {
		panic(fmt.Sprintf("slabcopy: write [%d, +%d) outside slab of %d bytes", offset, n, size))
	}
	return end
}

var (
	_ Slab = (*BytesSlab)(nil)
	_ Slab = (*RawSlab)(nil)
	_ Slab = (*Owned)(nil)
)
