package layout

import (
	"fmt"
	"reflect"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/slabcopy/errors"
)

// Check verifies that the Go type T has the Canonical ABI layout of t, so its
// raw bytes can be copied into guest memory as-is. Only types whose lowered
// form is plain data are accepted: primitives, records, tuples, enums and
// flags. Strings, lists, options, results and variants need encoding and are
// rejected as unsupported.
func Check[T any](c *Calculator, t wit.Type) error {
	goType := reflect.TypeFor[T]()
	if !PointerFree(goType) {
		return errors.Unsupported(errors.PhaseLayout, goType.String(), "type contains Go pointers")
	}
	return c.check(goType, t, []string{goType.String()})
}

func (c *Calculator) check(g reflect.Type, t wit.Type, path []string) error {
	info := c.Calculate(t)
	if g.Size() != info.Size || uintptr(g.Align()) != info.Align {
		return mismatch(path, "Go size/align %d/%d, WIT %s size/align %d/%d",
			g.Size(), g.Align(), witName(t), info.Size, info.Align)
	}

	switch typ := t.(type) {
	case wit.Bool:
		return expectKind(g, path, t, reflect.Bool, reflect.Uint8)
	case wit.U8:
		return expectKind(g, path, t, reflect.Uint8)
	case wit.S8:
		return expectKind(g, path, t, reflect.Int8)
	case wit.U16:
		return expectKind(g, path, t, reflect.Uint16)
	case wit.S16:
		return expectKind(g, path, t, reflect.Int16)
	case wit.U32:
		return expectKind(g, path, t, reflect.Uint32, reflect.Uint, reflect.Uintptr)
	case wit.S32:
		return expectKind(g, path, t, reflect.Int32, reflect.Int)
	case wit.Char:
		return expectKind(g, path, t, reflect.Int32, reflect.Uint32)
	case wit.U64:
		return expectKind(g, path, t, reflect.Uint64, reflect.Uint, reflect.Uintptr)
	case wit.S64:
		return expectKind(g, path, t, reflect.Int64, reflect.Int)
	case wit.F32:
		return expectKind(g, path, t, reflect.Float32)
	case wit.F64:
		return expectKind(g, path, t, reflect.Float64)
	case *wit.TypeDef:
		return c.checkTypeDef(g, typ, path)
	default:
		return errors.Unsupported(errors.PhaseLayout, g.String(), "WIT "+witName(t)+" is not plain data")
	}
}

func (c *Calculator) checkTypeDef(g reflect.Type, t *wit.TypeDef, path []string) error {
	switch kind := t.Kind.(type) {
	case *wit.Record:
		fields := dataFields(g)
		if g.Kind() != reflect.Struct || len(fields) != len(kind.Fields) {
			return mismatch(path, "record with %d fields needs a struct with %d non-blank fields", len(kind.Fields), len(kind.Fields))
		}
		offs := c.Calculate(t).FieldOffs
		for i, wf := range kind.Fields {
			gf := fields[i]
			fieldPath := append(path[:len(path):len(path)], gf.Name)
			if gf.Offset != offs[wf.Name] {
				return mismatch(fieldPath, "offset %d, WIT field %q at %d", gf.Offset, wf.Name, offs[wf.Name])
			}
			if err := c.check(gf.Type, wf.Type, fieldPath); err != nil {
				return err
			}
		}
		return nil

	case *wit.Tuple:
		return c.checkTuple(g, kind, path)

	case *wit.Enum:
		return expectUnsigned(g, path, t)

	case *wit.Flags:
		if len(kind.Flags) > 32 {
			if g.Kind() == reflect.Array && g.Elem().Kind() == reflect.Uint32 {
				return nil
			}
			return mismatch(path, "more than 32 flags need a [N]uint32 array")
		}
		return expectUnsigned(g, path, t)

	case *wit.List, *wit.Option, *wit.Result, *wit.Variant:
		return errors.Unsupported(errors.PhaseLayout, g.String(), "WIT "+witName(t)+" is not plain data")

	case wit.Type:
		return c.check(g, kind, path)

	default:
		return errors.Unsupported(errors.PhaseLayout, g.String(), "WIT "+witName(t)+" is not plain data")
	}
}

func (c *Calculator) checkTuple(g reflect.Type, t *wit.Tuple, path []string) error {
	switch g.Kind() {
	case reflect.Struct:
		fields := dataFields(g)
		if len(fields) != len(t.Types) {
			return mismatch(path, "tuple of %d needs a struct with %d non-blank fields", len(t.Types), len(t.Types))
		}
		var offset uintptr
		for i, et := range t.Types {
			elem := c.Calculate(et)
			offset = alignTo(offset, elem.Align)
			fieldPath := append(path[:len(path):len(path)], fields[i].Name)
			if fields[i].Offset != offset {
				return mismatch(fieldPath, "offset %d, tuple element %d at %d", fields[i].Offset, i, offset)
			}
			if err := c.check(fields[i].Type, et, fieldPath); err != nil {
				return err
			}
			offset += elem.Size
		}
		return nil

	case reflect.Array:
		if g.Len() != len(t.Types) {
			return mismatch(path, "tuple of %d needs an array of %d", len(t.Types), len(t.Types))
		}
		for i, et := range t.Types {
			if err := c.check(g.Elem(), et, append(path[:len(path):len(path)], fmt.Sprintf("[%d]", i))); err != nil {
				return err
			}
		}
		return nil
	}
	return mismatch(path, "tuple needs a struct or array, got %s", g.Kind())
}

// dataFields returns the struct fields that carry data. Blank fields are
// explicit padding and have no WIT counterpart.
func dataFields(g reflect.Type) []reflect.StructField {
	if g.Kind() != reflect.Struct {
		return nil
	}
	fields := make([]reflect.StructField, 0, g.NumField())
	for i := range g.NumField() {
		f := g.Field(i)
		if f.Name == "_" {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

func expectKind(g reflect.Type, path []string, t wit.Type, kinds ...reflect.Kind) error {
	for _, k := range kinds {
		if g.Kind() == k {
			return nil
		}
	}
	return mismatch(path, "Go kind %s cannot hold WIT %s", g.Kind(), witName(t))
}

func expectUnsigned(g reflect.Type, path []string, t wit.Type) error {
	return expectKind(g, path, t, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64)
}

func mismatch(path []string, format string, args ...any) error {
	return errors.LayoutMismatch(strings.Join(path, "."), fmt.Sprintf(format, args...))
}

func witName(t wit.Type) string {
	if td, ok := t.(*wit.TypeDef); ok {
		if td.Name != nil {
			return *td.Name
		}
		return strings.TrimPrefix(fmt.Sprintf("%T", td.Kind), "*wit.")
	}
	return strings.ToLower(strings.TrimPrefix(fmt.Sprintf("%T", t), "wit."))
}
