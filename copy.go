package slabcopy

import (
	stderrors "errors"
	"reflect"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/slabcopy/errors"
	"github.com/wippyai/slabcopy/internal/align"
	"github.com/wippyai/slabcopy/layout"
)

// CopyOption configures a copy operation.
type CopyOption func(*copyConfig)

type copyConfig struct {
	minAlign uintptr
	exact    bool
}

// WithMinAlign requires the destination offset to be aligned to at least n
// bytes, in addition to the alignment of the copied type. n is rounded up
// to a power of two.
func WithMinAlign(n uintptr) CopyOption {
	return func(c *copyConfig) { c.minAlign = n }
}

// Exact makes the copy fail with ErrUnalignedOffset instead of padding the
// requested offset forward.
func Exact() CopyOption {
	return func(c *copyConfig) { c.exact = true }
}

func newCopyConfig(opts []CopyOption) copyConfig {
	cfg := copyConfig{minAlign: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// CopyValue copies the bytes of v into dst at the first offset >= offset that
// satisfies the alignment of T, and returns the range written.
//
// T must not contain Go pointers. Padding bytes inside T are copied as they are.
func CopyValue[T any](dst Slab, offset uintptr, v T, opts ...CopyOption) (Record, error) {
	info, err := source[T]()
	if err != nil {
		return Record{}, err
	}
	off, err := plan[T](dst, offset, info.Size, info.Align, newCopyConfig(opts))
	if err != nil {
		return Record{}, err
	}
	if info.Size > 0 {
		dst.Write(off.Start, unsafe.Slice((*byte)(unsafe.Pointer(&v)), info.Size))
	}
	return Record{Offset: off.Start, Len: info.Size}, nil
}

// CopySlice copies src into dst as one contiguous transfer starting at the
// first offset >= offset aligned for T. The record length is len(src)*sizeof(T).
func CopySlice[T any](dst Slab, offset uintptr, src []T, opts ...CopyOption) (Record, error) {
	info, err := source[T]()
	if err != nil {
		return Record{}, err
	}
	return copyContiguous[T](dst, offset, unsafe.Pointer(unsafe.SliceData(src)), uintptr(len(src)), info, newCopyConfig(opts))
}

func copyContiguous[T any](dst Slab, offset uintptr, src unsafe.Pointer, count uintptr, info layout.Info, cfg copyConfig) (Record, error) {
	total, ok := align.Mul(count, info.Size)
	if !ok {
		return Record{}, rejected[T](offset, errors.New(errors.PhaseCopy, errors.KindOverflow).
			Detailf("%d elements of %d bytes overflows uintptr", count, info.Size).
			Build())
	}
	off, err := plan[T](dst, offset, total, info.Align, cfg)
	if err != nil {
		return Record{}, err
	}
	if total > 0 {
		dst.Write(off.Start, unsafe.Slice((*byte)(src), total))
	}
	return Record{Offset: off.Start, Len: total}, nil
}

// CopyStrided copies each element of src to start+i*stride, where start is
// the first offset >= offset aligned for T. Bytes between elements are left
// untouched. stride must be at least sizeof(T) and a multiple of alignof(T).
//
// The record spans from the first element to the end of the last one:
// (len(src)-1)*stride + sizeof(T) bytes, or zero for an empty src.
func CopyStrided[T any](dst Slab, offset uintptr, src []T, stride uintptr, opts ...CopyOption) (Record, error) {
	info, err := source[T]()
	if err != nil {
		return Record{}, err
	}
	if stride < info.Size || stride%info.Align != 0 {
		return Record{}, rejected[T](offset, errors.InvalidStride(errors.PhaseCopy, stride, info.Size, info.Align))
	}

	var span uintptr
	if n := uintptr(len(src)); n > 0 {
		gaps, ok := align.Mul(n-1, stride)
		if ok {
			span, ok = align.Add(gaps, info.Size)
		}
		if !ok {
			return Record{}, rejected[T](offset, errors.New(errors.PhaseCopy, errors.KindOverflow).
				Detailf("%d elements at stride %d overflows uintptr", n, stride).
				Build())
		}
	}

	off, err := plan[T](dst, offset, span, info.Align, newCopyConfig(opts))
	if err != nil {
		return Record{}, err
	}
	if info.Size > 0 {
		at := off.Start
		for i := range src {
			dst.Write(at, unsafe.Slice((*byte)(unsafe.Pointer(&src[i])), info.Size))
			at += stride
		}
	}
	return Record{Offset: off.Start, Len: span}, nil
}

// source returns the layout of T, rejecting types whose bytes hold Go pointers.
func source[T any]() (layout.Info, error) {
	if !layout.PointerFree(reflect.TypeFor[T]()) {
		return layout.Info{}, rejected[T](0, errors.Unsupported(errors.PhaseCopy, "", "type contains Go pointers"))
	}
	return layout.Of[T](), nil
}

func plan[T any](dst Slab, offset, length, valueAlign uintptr, cfg copyConfig) (align.Offsets, error) {
	off, err := align.Compute(align.Request{
		SlabSize:  dst.Size(),
		SlabAlign: dst.Align(),
		Offset:    offset,
		Length:    length,
		Align:     valueAlign,
		MinAlign:  cfg.minAlign,
		Exact:     cfg.exact,
	})
	if err != nil {
		return align.Offsets{}, rejected[T](offset, err)
	}
	return off, nil
}

// rejected annotates err with the Go type being copied and logs it.
func rejected[T any](offset uintptr, err error) error {
	name := layout.TypeName[T]()
	var e *errors.Error
	if stderrors.As(err, &e) && e.GoType == "" {
		e.GoType = name
	}
	Logger().Debug("copy rejected",
		zap.String("type", name),
		zap.Uintptr("offset", offset),
		zap.Error(err),
	)
	return err
}
