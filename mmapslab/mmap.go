//go:build unix

package mmapslab

import (
	"math"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/wippyai/slabcopy"
	"github.com/wippyai/slabcopy/errors"
)

// Slab is a slabcopy.Slab over a memory mapping.
type Slab struct {
	data  []byte
	align uintptr
}

func (s *Slab) Size() uintptr  { return uintptr(len(s.data)) }
func (s *Slab) Align() uintptr { return s.align }

func (s *Slab) Write(offset uintptr, src []byte) {
	end := offset + uintptr(len(src))
	if end < offset || end > uintptr(len(s.data)) {
		panic("mmapslab: write outside mapping")
	}
	copy(s.data[offset:end], src)
}

// Sync flushes the mapping to the backing file or device.
func (s *Slab) Sync() error {
	if err := unix.Msync(s.data, unix.MS_SYNC); err != nil {
		return errors.Wrap(errors.PhaseRelease, errors.KindAllocation, err, "msync")
	}
	return nil
}

type config struct {
	fd     int
	offset int64
	file   bool
	shared bool
	locked bool
}

// Option configures a mapping.
type Option func(*config)

// WithFile maps fd at offset instead of anonymous memory. File mappings are
// always shared.
func WithFile(fd int, offset int64) Option {
	return func(c *config) {
		c.fd = fd
		c.offset = offset
		c.file = true
		c.shared = true
	}
}

// WithShared makes an anonymous mapping shared with child processes.
func WithShared() Option {
	return func(c *config) { c.shared = true }
}

// WithLocked locks the mapping into RAM.
func WithLocked() Option {
	return func(c *config) { c.locked = true }
}

// Map creates a read-write mapping of size bytes and returns it as an owned
// slab. The base alignment is the system page size.
func Map(size uintptr, opts ...Option) (*slabcopy.Owned, error) {
	cfg := config{fd: -1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if size == 0 || size > math.MaxInt {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "mapping size must be in (0, MaxInt]")
	}
	if cfg.file && cfg.fd < 0 {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "negative file descriptor")
	}

	flags := unix.MAP_PRIVATE
	if cfg.shared {
		flags = unix.MAP_SHARED
	}
	if !cfg.file {
		flags |= unix.MAP_ANON
	}

	data, err := unix.Mmap(cfg.fd, cfg.offset, int(size), unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhaseAlloc, size, uintptr(unix.Getpagesize()), err)
	}
	if cfg.locked {
		if err := unix.Mlock(data); err != nil {
			_ = unix.Munmap(data)
			return nil, errors.AllocationFailed(errors.PhaseAlloc, size, uintptr(unix.Getpagesize()), err)
		}
	}

	s := &Slab{data: data, align: uintptr(unix.Getpagesize())}
	slabcopy.Logger().Debug("mapped slab",
		zap.Uintptr("size", size),
		zap.Int("fd", cfg.fd),
		zap.Bool("shared", cfg.shared),
	)

	return slabcopy.NewOwned(s, func() error {
		data := s.data
		s.data = nil
		return unix.Munmap(data)
	}), nil
}
