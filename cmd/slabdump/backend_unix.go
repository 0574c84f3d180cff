//go:build unix

package main

import (
	"fmt"
	"os"

	"github.com/wippyai/slabcopy/mmapslab"
)

// openMmap maps a temporary file so the copied bytes can be read back from
// the file after msync.
func openMmap(size uintptr) (*region, error) {
	f, err := os.CreateTemp("", "slabdump-*.bin")
	if err != nil {
		return nil, err
	}
	cleanup := func() {
		f.Close()
		os.Remove(f.Name())
	}
	if err := f.Truncate(int64(size)); err != nil {
		cleanup()
		return nil, fmt.Errorf("truncate: %w", err)
	}

	o, err := mmapslab.Map(size, mmapslab.WithFile(int(f.Fd()), 0))
	if err != nil {
		cleanup()
		return nil, err
	}
	s := o.Slab().(*mmapslab.Slab)
	return &region{
		slab: o,
		observe: func() ([]byte, error) {
			if err := s.Sync(); err != nil {
				return nil, err
			}
			return os.ReadFile(f.Name())
		},
		close: func() error {
			err := o.Close()
			cleanup()
			return err
		},
	}, nil
}
