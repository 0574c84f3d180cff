package slabcopy

import "iter"

// CopySeq copies every value of seq, each at the first offset aligned for T
// (and the requested minimum alignment) at or after the end of the previous
// one. It returns one record per value.
//
// On error the values already copied stay written; their records are
// returned alongside the error.
func CopySeq[T any](dst Slab, offset uintptr, seq iter.Seq[T], opts ...CopyOption) ([]Record, error) {
	var records []Record
	next := offset
	for v := range seq {
		rec, err := CopyValue(dst, next, v, opts...)
		if err != nil {
			return records, err
		}
		records = append(records, rec)
		next = rec.End()
	}
	return records, nil
}

// CopySeqPacked copies the values of seq back to back. Only the first value
// honours the minimum alignment option; the rest are placed at the natural
// alignment of T. The returned record spans all written values. The boolean
// is false when seq yields nothing.
func CopySeqPacked[T any](dst Slab, offset uintptr, seq iter.Seq[T], opts ...CopyOption) (Record, bool, error) {
	cfg := newCopyConfig(opts)
	rest := []CopyOption{WithMinAlign(1)}
	if cfg.exact {
		rest = append(rest, Exact())
	}

	var first, last Record
	n := 0
	for v := range seq {
		var (
			rec Record
			err error
		)
		if n == 0 {
			rec, err = CopyValue(dst, offset, v, opts...)
			first = rec
		} else {
			rec, err = CopyValue(dst, last.End(), v, rest...)
		}
		if err != nil {
			return Record{}, false, err
		}
		last = rec
		n++
	}
	if n == 0 {
		return Record{}, false, nil
	}
	return Record{Offset: first.Offset, Len: last.End() - first.Offset}, true, nil
}
