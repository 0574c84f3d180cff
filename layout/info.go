package layout

import (
	"reflect"
	"sync"
	"unsafe"
)

// Info is the size and alignment of a type. FieldOffs is only filled for
// WIT records.
type Info struct {
	FieldOffs map[string]uintptr
	Size      uintptr
	Align     uintptr
}

// Of returns the layout of T.
func Of[T any]() Info {
	var zero T
	return Info{Size: unsafe.Sizeof(zero), Align: unsafe.Alignof(zero)}
}

// TypeName returns the name used for T in errors.
func TypeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

var pointerFreeCache sync.Map // reflect.Type -> bool

// PointerFree reports whether values of t contain no Go pointers, so their raw
// bytes can be written to memory the garbage collector does not scan.
func PointerFree(t reflect.Type) bool {
	if cached, ok := pointerFreeCache.Load(t); ok {
		return cached.(bool)
	}
	free := pointerFree(t)
	pointerFreeCache.Store(t, free)
	return free
}

func pointerFree(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || pointerFree(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if !pointerFree(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		// Pointer, UnsafePointer, String, Slice, Map, Chan, Func, Interface
		return false
	}
}
