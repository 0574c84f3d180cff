package slabcopy

import (
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/slabcopy/errors"
	"github.com/wippyai/slabcopy/internal/align"
)

// Owned pairs a slab with the function that releases its backing memory.
// Close runs the release function exactly once. Owned is itself a Slab;
// writing to it after Close panics.
type Owned struct {
	slab    Slab
	release func() error
	err     error
	once    sync.Once
	closed  atomic.Bool
}

// NewOwned takes ownership of s. release may be nil when nothing needs freeing.
func NewOwned(s Slab, release func() error) *Owned {
	return &Owned{slab: s, release: release}
}

func (o *Owned) Size() uintptr  { return o.slab.Size() }
func (o *Owned) Align() uintptr { return o.slab.Align() }

func (o *Owned) Write(offset uintptr, src []byte) {
	if o.closed.Load() {
		panic(fmt.Sprintf("slabcopy: write [%d, +%d) to a released slab", offset, len(src)))
	}
	o.slab.Write(offset, src)
}

// Slab returns the wrapped slab, for backend-specific accessors.
func (o *Owned) Slab() Slab { return o.slab }

// Released reports whether Close has run.
func (o *Owned) Released() bool { return o.closed.Load() }

// Close releases the backing memory. Later calls return the result of the
// first one. Safe for concurrent use.
func (o *Owned) Close() error {
	o.once.Do(func() {
		o.closed.Store(true)
		size := o.slab.Size()
		if o.release == nil {
			return
		}
		if err := o.release(); err != nil {
			o.err = errors.Wrap(errors.PhaseRelease, errors.KindAllocation, err, "release backing memory")
			Logger().Warn("slab release failed", zap.Uintptr("size", size), zap.Error(err))
			return
		}
		Logger().Debug("slab released", zap.Uintptr("size", size))
	})
	return o.err
}

// WithOwned runs fn with an owned slab and releases it when fn returns,
// fails or panics. A release error is joined to fn's error.
func WithOwned(s Slab, release func() error, fn func(Slab) error) (err error) {
	o := NewOwned(s, release)
	defer func() {
		if r := recover(); r != nil {
			_ = o.Close()
			panic(r)
		}
		if cerr := o.Close(); cerr != nil {
			err = stderrors.Join(err, cerr)
		}
	}()
	return fn(o)
}

// NewHeap allocates size bytes from the Go heap with a base aligned to
// alignment and wraps them as an owned slab. Closing it drops the reference
// so the garbage collector can reclaim the memory.
func NewHeap(size, alignment uintptr) (*Owned, error) {
	if size == 0 {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "heap slab of size 0")
	}
	if !align.IsPow2(alignment) {
		return nil, errors.InvalidInput(errors.PhaseAlloc, fmt.Sprintf("alignment %d is not a power of two", alignment))
	}
	total, ok := align.Add(size, alignment-1)
	if !ok {
		return nil, errors.Overflow(errors.PhaseAlloc, "heap slab size")
	}

	backing := make([]byte, total)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(backing)))
	pad := (alignment - addr%alignment) % alignment
	s := FromBytes(backing[pad : pad+size : pad+size])
	s.align = max(s.align, alignment)

	Logger().Debug("heap slab allocated",
		zap.Uintptr("size", size),
		zap.Uintptr("align", s.Align()),
	)
	return NewOwned(s, func() error {
		s.buf = nil
		return nil
	}), nil
}
