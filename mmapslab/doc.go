// Package mmapslab provides slabs backed by memory mappings.
//
// Mappings stand in for device-mapped memory: the Go runtime does not manage
// them, their alignment is the page size, and their contents are whatever the
// mapped object holds. Map returns an owned slab whose Close unmaps the
// region exactly once.
//
//	o, err := mmapslab.Map(1<<20)
//	if err != nil {
//	    return err
//	}
//	defer o.Close()
//	rec, err := slabcopy.CopySlice(o, 0, vertices)
//
// Map a file or device shared to make writes visible outside the process:
//
//	o, err := mmapslab.Map(size, mmapslab.WithFile(int(f.Fd()), 0))
//
// Writes to disjoint ranges of one mapping may run concurrently.
package mmapslab
