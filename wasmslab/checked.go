package wasmslab

import (
	"go.bytecodealliance.org/wit"
	"golang.org/x/sys/cpu"

	"github.com/wippyai/slabcopy"
	"github.com/wippyai/slabcopy/errors"
	"github.com/wippyai/slabcopy/layout"
)

// CopyChecked copies v into dst after verifying that T has the Canonical ABI
// layout of t. Guest memory is little-endian, so raw copies are refused on
// big-endian hosts.
func CopyChecked[T any](c *layout.Calculator, dst slabcopy.Slab, offset uintptr, v T, t wit.Type, opts ...slabcopy.CopyOption) (slabcopy.Record, error) {
	if err := checkABI[T](c, t); err != nil {
		return slabcopy.Record{}, err
	}
	return slabcopy.CopyValue(dst, offset, v, opts...)
}

// CopySliceChecked copies src as the contents of a list<t> after verifying
// the element layout.
func CopySliceChecked[T any](c *layout.Calculator, dst slabcopy.Slab, offset uintptr, src []T, elem wit.Type, opts ...slabcopy.CopyOption) (slabcopy.Record, error) {
	if err := checkABI[T](c, elem); err != nil {
		return slabcopy.Record{}, err
	}
	return slabcopy.CopySlice(dst, offset, src, opts...)
}

func checkABI[T any](c *layout.Calculator, t wit.Type) error {
	if cpu.IsBigEndian {
		return errors.Unsupported(errors.PhaseLayout, layout.TypeName[T](), "raw copy into little-endian guest memory from a big-endian host")
	}
	return layout.Check[T](c, t)
}
