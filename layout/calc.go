package layout

import (
	"go.bytecodealliance.org/wit"
)

// Calculator computes Canonical ABI layouts of WIT types. Results for type
// definitions are cached; a Calculator is not safe for concurrent use.
type Calculator struct {
	cache map[*wit.TypeDef]Info
}

func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[*wit.TypeDef]Info),
	}
}

func (c *Calculator) Calculate(t wit.Type) Info {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return Info{Size: 1, Align: 1}
	case wit.U16, wit.S16:
		return Info{Size: 2, Align: 2}
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return Info{Size: 4, Align: 4}
	case wit.U64, wit.S64, wit.F64:
		return Info{Size: 8, Align: 8}
	case wit.String:
		return Info{Size: 8, Align: 4} // [ptr: u32, len: u32]
	case *wit.TypeDef:
		return c.calculateTypeDef(typ)
	default:
		return Info{Size: 0, Align: 1}
	}
}

func (c *Calculator) calculateTypeDef(t *wit.TypeDef) Info {
	if cached, ok := c.cache[t]; ok {
		return cached
	}

	var info Info

	switch kind := t.Kind.(type) {
	case *wit.Record:
		info = c.calculateRecord(kind)
	case *wit.Variant:
		info = c.calculateVariant(kind)
	case *wit.Enum:
		size := discriminantSize(len(kind.Cases))
		info = Info{Size: size, Align: size}
	case *wit.List:
		info = Info{Size: 8, Align: 4}
	case *wit.Option:
		inner := c.Calculate(kind.Type)
		info = c.tagged(1, inner.Size, inner.Align)
	case *wit.Result:
		info = c.calculateResult(kind)
	case *wit.Tuple:
		info = c.sequence(kind.Types, nil)
	case *wit.Flags:
		info = calculateFlags(len(kind.Flags))
	case wit.Type:
		info = c.Calculate(kind)
	default:
		info = Info{Size: 0, Align: 1}
	}

	c.cache[t] = info
	return info
}

func (c *Calculator) calculateRecord(r *wit.Record) Info {
	types := make([]wit.Type, len(r.Fields))
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		types[i] = f.Type
		names[i] = f.Name
	}
	return c.sequence(types, names)
}

// sequence lays out types back to back, each at its own alignment, and pads
// the total to the largest alignment. Records and tuples share this rule.
func (c *Calculator) sequence(types []wit.Type, names []string) Info {
	if len(types) == 0 {
		return Info{Size: 0, Align: 1}
	}

	var offs map[string]uintptr
	if names != nil {
		offs = make(map[string]uintptr, len(names))
	}
	maxAlign := uintptr(1)
	offset := uintptr(0)

	for i, typ := range types {
		elem := c.Calculate(typ)
		offset = alignTo(offset, elem.Align)
		if offs != nil {
			offs[names[i]] = offset
		}
		maxAlign = max(maxAlign, elem.Align)
		offset += elem.Size
	}

	return Info{
		Size:      alignTo(offset, maxAlign),
		Align:     maxAlign,
		FieldOffs: offs,
	}
}

func (c *Calculator) calculateVariant(v *wit.Variant) Info {
	if len(v.Cases) == 0 {
		return Info{Size: 0, Align: 1}
	}

	maxAlign := uintptr(1)
	maxSize := uintptr(0)
	for _, cs := range v.Cases {
		if cs.Type != nil {
			caseLayout := c.Calculate(cs.Type)
			maxAlign = max(maxAlign, caseLayout.Align)
			maxSize = max(maxSize, caseLayout.Size)
		}
	}

	return c.tagged(discriminantSize(len(v.Cases)), maxSize, maxAlign)
}

func (c *Calculator) calculateResult(r *wit.Result) Info {
	maxSize, maxAlign := uintptr(0), uintptr(1)
	for _, t := range []wit.Type{r.OK, r.Err} {
		if t == nil {
			continue
		}
		l := c.Calculate(t)
		maxSize = max(maxSize, l.Size)
		maxAlign = max(maxAlign, l.Align)
	}
	return c.tagged(1, maxSize, maxAlign)
}

// tagged lays out a discriminant followed by a payload.
func (c *Calculator) tagged(disc, payloadSize, payloadAlign uintptr) Info {
	align := max(disc, payloadAlign, 1)
	payloadOffset := alignTo(disc, align)
	return Info{
		Size:  alignTo(payloadOffset+payloadSize, align),
		Align: align,
	}
}

func calculateFlags(n int) Info {
	switch {
	case n == 0:
		return Info{Size: 0, Align: 1}
	case n <= 8:
		return Info{Size: 1, Align: 1}
	case n <= 16:
		return Info{Size: 2, Align: 2}
	}
	// more than 16 flags: one u32 word per 32 flags
	return Info{Size: uintptr((n+31)/32) * 4, Align: 4}
}

func discriminantSize(n int) uintptr {
	switch {
	case n <= 1<<8:
		return 1
	case n <= 1<<16:
		return 2
	default:
		return 4
	}
}

func alignTo(offset, align uintptr) uintptr {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}
