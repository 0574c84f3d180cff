package wasmslab

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/slabcopy"
	"github.com/wippyai/slabcopy/errors"
	"github.com/wippyai/slabcopy/internal/align"
)

// PageSize is the WebAssembly page size, the largest alignment a guest
// address is assumed to have.
const PageSize = 65536

// Slab is a window [base, base+size) of guest linear memory.
type Slab struct {
	mem   api.Memory
	base  uint32
	size  uint32
	align uintptr
}

// New wraps size bytes of mem starting at guest address base. The declared
// base alignment is the largest power of two dividing base, capped at PageSize.
func New(mem api.Memory, base, size uint32) (*Slab, error) {
	if mem == nil {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "nil memory")
	}
	if end := uint64(base) + uint64(size); end > uint64(mem.Size()) {
		return nil, errors.CapacityExceeded(errors.PhaseAlloc, uintptr(base), uintptr(size), uintptr(mem.Size()))
	}
	return &Slab{
		mem:   mem,
		base:  base,
		size:  size,
		align: align.LowestBit(uintptr(base), PageSize),
	}, nil
}

// Base returns the guest address of the window.
func (s *Slab) Base() uint32 { return s.base }

// GuestPtr translates a record to the guest address and length a guest
// function expects.
func (s *Slab) GuestPtr(rec slabcopy.Record) (ptr, length uint32) {
	return s.base + uint32(rec.Offset), uint32(rec.Len)
}

func (s *Slab) Size() uintptr  { return uintptr(s.size) }
func (s *Slab) Align() uintptr { return s.align }

// Write writes bytes to guest memory.
func (s *Slab) Write(offset uintptr, src []byte) {
	end := offset + uintptr(len(src))
	if end < offset || end > uintptr(s.size) {
		panic(fmt.Sprintf("wasmslab: write [%d, +%d) outside window of %d bytes", offset, len(src), s.size))
	}
	if !s.mem.Write(s.base+uint32(offset), src) {
		panic(fmt.Sprintf("wasmslab: memory write out of bounds: offset=%d, length=%d", s.base+uint32(offset), len(src)))
	}
}

var _ slabcopy.Slab = (*Slab)(nil)
