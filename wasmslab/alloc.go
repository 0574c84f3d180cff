package wasmslab

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/slabcopy"
	"github.com/wippyai/slabcopy/errors"
	"github.com/wippyai/slabcopy/internal/align"
)

// DefaultAllocatorExport is the Canonical ABI realloc export.
const DefaultAllocatorExport = "cabi_realloc"

type config struct {
	export string
}

// Option configures AllocFromModule.
type Option func(*config)

// WithAllocatorExport selects the realloc-style export used to allocate and free.
func WithAllocatorExport(name string) Option {
	return func(c *config) { c.export = name }
}

// Alloc allocates size bytes aligned to alignment by calling
// realloc(0, 0, alignment, size) and returns them as an owned slab. Close
// frees the allocation with realloc(ptr, size, alignment, 0). The free call
// keeps ctx's values but not its cancellation, so cancelling ctx before Close
// does not leak the guest allocation.
func Alloc(ctx context.Context, mem api.Memory, realloc api.Function, size, alignment uint32) (*slabcopy.Owned, error) {
	if realloc == nil {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "nil allocator function")
	}
	if !align.IsPow2(uintptr(alignment)) {
		return nil, errors.InvalidInput(errors.PhaseAlloc, fmt.Sprintf("alignment %d is not a power of two", alignment))
	}

	results, err := realloc.Call(ctx, 0, 0, uint64(alignment), uint64(size))
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhaseAlloc, uintptr(size), uintptr(alignment), err)
	}
	if len(results) == 0 {
		return nil, errors.AllocationFailed(errors.PhaseAlloc, uintptr(size), uintptr(alignment), fmt.Errorf("allocation returned no result"))
	}
	ptr := uint32(results[0])

	freeCtx := context.WithoutCancel(ctx)
	free := func() error {
		_, err := realloc.Call(freeCtx, uint64(ptr), uint64(size), uint64(alignment), 0)
		return err
	}

	if ptr == 0 && size > 0 {
		return nil, errors.AllocationFailed(errors.PhaseAlloc, uintptr(size), uintptr(alignment), fmt.Errorf("guest returned null"))
	}
	if ptr%alignment != 0 {
		_ = free()
		return nil, errors.AllocationFailed(errors.PhaseAlloc, uintptr(size), uintptr(alignment), fmt.Errorf("guest returned unaligned pointer %#x", ptr))
	}

	s, err := New(mem, ptr, size)
	if err != nil {
		_ = free()
		return nil, err
	}
	s.align = max(s.align, uintptr(alignment))

	slabcopy.Logger().Debug("guest slab allocated",
		zap.Uint32("ptr", ptr),
		zap.Uint32("size", size),
		zap.Uint32("align", alignment),
	)
	return slabcopy.NewOwned(s, free), nil
}

// AllocFromModule allocates from mod's own memory using its allocator export.
func AllocFromModule(ctx context.Context, mod api.Module, size, alignment uint32, opts ...Option) (*slabcopy.Owned, error) {
	cfg := config{export: DefaultAllocatorExport}
	for _, opt := range opts {
		opt(&cfg)
	}
	if mod == nil {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "nil module")
	}
	fn := mod.ExportedFunction(cfg.export)
	if fn == nil {
		return nil, errors.InvalidInput(errors.PhaseAlloc, fmt.Sprintf("module does not export %q", cfg.export))
	}
	return Alloc(ctx, mod.Memory(), fn, size, alignment)
}
