package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/slabcopy"
)

// batch is a run of literals of the same kind, copied as one slice.
type batch interface {
	Kind() string
	Len() int
	push(c *slabcopy.Cursor, stride uintptr, opts []slabcopy.CopyOption) (slabcopy.Record, error)
}

type typedBatch[T any] struct {
	kind string
	vals []T
}

func (b *typedBatch[T]) Kind() string { return b.kind }
func (b *typedBatch[T]) Len() int     { return len(b.vals) }

func (b *typedBatch[T]) push(c *slabcopy.Cursor, stride uintptr, opts []slabcopy.CopyOption) (slabcopy.Record, error) {
	if stride == 0 {
		return slabcopy.PushSlice(c, b.vals, opts...)
	}
	return slabcopy.PushStrided(c, b.vals, stride, opts...)
}

// appendValue adds v to the last batch when it has the same kind.
func appendValue[T any](batches []batch, kind string, v T) []batch {
	if n := len(batches); n > 0 {
		if b, ok := batches[n-1].(*typedBatch[T]); ok && b.kind == kind {
			b.vals = append(b.vals, v)
			return batches
		}
	}
	return append(batches, &typedBatch[T]{kind: kind, vals: []T{v}})
}

// parseValues parses literals of the form kind:value.
func parseValues(args []string) ([]batch, error) {
	var batches []batch
	for _, arg := range args {
		kind, lit, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, fmt.Errorf("value %q: expected kind:value", arg)
		}
		var err error
		batches, err = parseValue(batches, kind, lit)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", arg, err)
		}
	}
	return batches, nil
}

func parseValue(batches []batch, kind, lit string) ([]batch, error) {
	switch kind {
	case "u8":
		v, err := strconv.ParseUint(lit, 0, 8)
		return appendValue(batches, kind, uint8(v)), err
	case "u16":
		v, err := strconv.ParseUint(lit, 0, 16)
		return appendValue(batches, kind, uint16(v)), err
	case "u32":
		v, err := strconv.ParseUint(lit, 0, 32)
		return appendValue(batches, kind, uint32(v)), err
	case "u64":
		v, err := strconv.ParseUint(lit, 0, 64)
		return appendValue(batches, kind, v), err
	case "s32":
		v, err := strconv.ParseInt(lit, 0, 32)
		return appendValue(batches, kind, int32(v)), err
	case "s64":
		v, err := strconv.ParseInt(lit, 0, 64)
		return appendValue(batches, kind, v), err
	case "f32":
		v, err := strconv.ParseFloat(lit, 32)
		return appendValue(batches, kind, float32(v)), err
	case "f64":
		v, err := strconv.ParseFloat(lit, 64)
		return appendValue(batches, kind, v), err
	case "vec4":
		parts := strings.Split(lit, "/")
		if len(parts) != 4 {
			return batches, fmt.Errorf("vec4 needs 4 components, got %d", len(parts))
		}
		var v [4]float32
		for i, p := range parts {
			f, err := strconv.ParseFloat(p, 32)
			if err != nil {
				return batches, err
			}
			v[i] = float32(f)
		}
		return appendValue(batches, kind, v), nil
	default:
		return batches, fmt.Errorf("unknown kind %q", kind)
	}
}

// entry is one copied batch and where it landed.
type entry struct {
	kind   string
	count  int
	record slabcopy.Record
}

// copyBatches copies every batch through one cursor starting at offset.
func copyBatches(dst slabcopy.Slab, offset, stride uintptr, batches []batch, opts []slabcopy.CopyOption) ([]entry, error) {
	c := slabcopy.NewCursor(dst, offset)
	defer c.Release()

	entries := make([]entry, 0, len(batches))
	for _, b := range batches {
		rec, err := b.push(c, stride, opts)
		if err != nil {
			return entries, fmt.Errorf("copy %d x %s: %w", b.Len(), b.Kind(), err)
		}
		entries = append(entries, entry{kind: b.Kind(), count: b.Len(), record: rec})
	}
	return entries, nil
}
