package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseCopy    Phase = "copy"    // copy into a slab
	PhaseLayout  Phase = "layout"  // offset and type layout computation
	PhaseAlloc   Phase = "alloc"   // wrapping or obtaining backing memory
	PhaseRelease Phase = "release" // returning backing memory
)

// Kind categorizes the error
type Kind string

const (
	KindCapacityExceeded       Kind = "capacity_exceeded"
	KindAlignmentUnsatisfiable Kind = "alignment_unsatisfiable"
	KindOverflow               Kind = "overflow"
	KindUnalignedOffset        Kind = "unaligned_offset"
	KindInvalidStride          Kind = "invalid_stride"
	KindUnsupported            Kind = "unsupported"
	KindInvalidInput           Kind = "invalid_input"
	KindAllocation             Kind = "allocation"
	KindReleased               Kind = "released"
	KindLayoutMismatch         Kind = "layout_mismatch"
)

// Sentinels for errors.Is. A sentinel has no Phase and matches any phase.
var (
	ErrCapacityExceeded       = &Error{Kind: KindCapacityExceeded}
	ErrAlignmentUnsatisfiable = &Error{Kind: KindAlignmentUnsatisfiable}
	ErrOverflow               = &Error{Kind: KindOverflow}
	ErrUnalignedOffset        = &Error{Kind: KindUnalignedOffset}
	ErrInvalidStride          = &Error{Kind: KindInvalidStride}
	ErrUnsupported            = &Error{Kind: KindUnsupported}
	ErrInvalidInput           = &Error{Kind: KindInvalidInput}
	ErrAllocation             = &Error{Kind: KindAllocation}
	ErrReleased               = &Error{Kind: KindReleased}
	ErrLayoutMismatch         = &Error{Kind: KindLayoutMismatch}
)

// Error is the structured error type used throughout the module
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Detail string
	// Offset and Length describe the requested destination range when HasRange is set.
	Offset   uintptr
	Length   uintptr
	HasRange bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.GoType != "" {
		b.WriteString(" for ")
		b.WriteString(e.GoType)
	}

	if e.HasRange {
		fmt.Fprintf(&b, " at [%d, +%d)", e.Offset, e.Length)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a Phase
// matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Range sets the requested destination range
func (b *Builder) Range(offset, length uintptr) *Builder {
	b.err.Offset = offset
	b.err.Length = length
	b.err.HasRange = true
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string) *Builder {
	b.err.Detail = msg
	return b
}

// Detailf sets a formatted detail message
func (b *Builder) Detailf(format string, args ...any) *Builder {
	b.err.Detail = fmt.Sprintf(format, args...)
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// CapacityExceeded creates an error for a range that does not fit in a slab of size capacity.
func CapacityExceeded(phase Phase, offset, length, capacity uintptr) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindCapacityExceeded,
		Offset:   offset,
		Length:   length,
		HasRange: true,
		Detail:   fmt.Sprintf("slab capacity is %d bytes", capacity),
	}
}

// AlignmentUnsatisfiable creates an error for a slab whose base alignment is below the required one.
func AlignmentUnsatisfiable(phase Phase, required, base uintptr) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAlignmentUnsatisfiable,
		Detail: fmt.Sprintf("required alignment %d exceeds slab base alignment %d", required, base),
	}
}

// Overflow creates an arithmetic overflow error
func Overflow(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: what + " overflows uintptr",
	}
}

// UnalignedOffset creates an error for an exact copy whose offset is not aligned.
func UnalignedOffset(phase Phase, offset, align uintptr) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnalignedOffset,
		Detail: fmt.Sprintf("offset %d is not a multiple of %d", offset, align),
	}
}

// InvalidStride creates an invalid stride error
func InvalidStride(phase Phase, stride, size, align uintptr) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidStride,
		Detail: fmt.Sprintf("stride %d must be >= %d and a multiple of %d", stride, size, align),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, goType, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		GoType: goType,
		Detail: what,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uintptr, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// LayoutMismatch creates an error for a Go type whose memory layout differs from the expected one.
func LayoutMismatch(goType, detail string) *Error {
	return &Error{
		Phase:  PhaseLayout,
		Kind:   KindLayoutMismatch,
		GoType: goType,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
