package slabcopy

import "sync"

// Cursor writes values one after another into a slab and remembers where
// each one went. A Cursor is not safe for concurrent use.
type Cursor struct {
	dst     Slab
	records []Record
	start   uintptr
	next    uintptr
}

var cursorPool = sync.Pool{
	New: func() any {
		return &Cursor{records: make([]Record, 0, 8)}
	},
}

const maxPooledRecordCapacity = 128

// NewCursor returns a cursor writing into dst from offset start. Call
// Release when done with it.
func NewCursor(dst Slab, start uintptr) *Cursor {
	c := cursorPool.Get().(*Cursor)
	c.dst = dst
	c.Reset(start)
	return c
}

// Release returns the cursor to the pool; the cursor is invalid afterwards.
func (c *Cursor) Release() {
	c.dst = nil
	// Only pool small record lists to prevent memory bloat
	if cap(c.records) > maxPooledRecordCapacity {
		return
	}
	c.records = c.records[:0]
	cursorPool.Put(c)
}

// Reset forgets all records and moves the cursor to start.
func (c *Cursor) Reset(start uintptr) {
	c.records = c.records[:0]
	c.start = start
	c.next = start
}

// Offset returns where the next push will start looking for an aligned offset.
func (c *Cursor) Offset() uintptr { return c.next }

func (c *Cursor) Count() int { return len(c.records) }

// Records returns a copy of the records produced so far, in push order.
func (c *Cursor) Records() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Span returns the range from the cursor's start offset to the end of the last push.
func (c *Cursor) Span() Record {
	return Record{Offset: c.start, Len: c.next - c.start}
}

func (c *Cursor) advance(rec Record) {
	c.records = append(c.records, rec)
	c.next = rec.End()
}

// Push copies v at the cursor. On error the cursor does not move.
func Push[T any](c *Cursor, v T, opts ...CopyOption) (Record, error) {
	rec, err := CopyValue(c.dst, c.next, v, opts...)
	if err != nil {
		return Record{}, err
	}
	c.advance(rec)
	return rec, nil
}

// PushSlice copies src contiguously at the cursor. On error the cursor does not move.
func PushSlice[T any](c *Cursor, src []T, opts ...CopyOption) (Record, error) {
	rec, err := CopySlice(c.dst, c.next, src, opts...)
	if err != nil {
		return Record{}, err
	}
	c.advance(rec)
	return rec, nil
}

// PushStrided copies src at the cursor with the given element stride. On
// error the cursor does not move.
func PushStrided[T any](c *Cursor, src []T, stride uintptr, opts ...CopyOption) (Record, error) {
	rec, err := CopyStrided(c.dst, c.next, src, stride, opts...)
	if err != nil {
		return Record{}, err
	}
	c.advance(rec)
	return rec, nil
}
