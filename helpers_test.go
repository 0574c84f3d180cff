package slabcopy

import (
	"bytes"
	"unsafe"
)

// testSlab pre-fills its buffer with a marker so untouched bytes are visible
// and counts Write calls so failed copies can be shown to write nothing.
type testSlab struct {
	buf    []byte
	align  uintptr
	writes int
}

const marker = 0xAA

func newTestSlab(size, align uintptr) *testSlab {
	return &testSlab{buf: bytes.Repeat([]byte{marker}, int(size)), align: align}
}

func (s *testSlab) Size() uintptr  { return uintptr(len(s.buf)) }
func (s *testSlab) Align() uintptr { return s.align }

func (s *testSlab) Write(offset uintptr, src []byte) {
	s.writes++
	copy(s.buf[offset:offset+uintptr(len(src))], src)
}

func (s *testSlab) at(r Record) []byte {
	return s.buf[r.Offset:r.End()]
}

func rawBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

type vertex struct {
	Pos   [3]float32
	Color uint32
}

// header has interior padding after Kind.
type header struct {
	Kind  uint8
	Count uint32
	Flags uint16
}
