package slab

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// InferNumber picks a field type from a numeric literal's text. Integral
// literals become int32, or int64/uint64 when out of range. Literals with a
// fraction or exponent become float32, or float64 beyond float32 range.
func InferNumber(text string) (ValueType, error) {
	if strings.ContainsAny(text, ".eE") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return TypeUnknown, fmt.Errorf("%w: %q: %v", ErrInvalidText, text, err)
		}
		if math.Abs(f) > math.MaxFloat32 {
			return TypeFloat64, nil
		}
		return TypeFloat32, nil
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		if i >= math.MinInt32 && i <= math.MaxInt32 {
			return TypeInt32, nil
		}
		return TypeInt64, nil
	}
	if _, err := strconv.ParseUint(text, 10, 64); err == nil {
		return TypeUInt64, nil
	}
	return TypeUnknown, fmt.Errorf("%w: %q is not a number", ErrInvalidText, text)
}

// UnifyElements picks one element type for an array literal. Numbers widen
// (any float makes the array float), bools stay bool, anything else mixed
// is unsupported: a fixed layout holds one kind per field.
func UnifyElements(kinds []ValueType) (ValueType, error) {
	if len(kinds) == 0 {
		return TypeUnknown, nil
	}
	out := kinds[0]
	for _, k := range kinds[1:] {
		u, ok := widen(out, k)
		if !ok {
			return TypeUnknown, fmt.Errorf("%w: array mixes %s and %s", ErrUnsupported, out, k)
		}
		out = u
	}
	return out, nil
}

func widen(a, b ValueType) (ValueType, bool) {
	if a == b {
		return a, true
	}
	numeric := func(t ValueType) bool { return t.IsValue() && t != TypeBool && t != TypeChar }
	if !numeric(a) || !numeric(b) {
		return TypeUnknown, false
	}
	switch {
	case a == TypeFloat64 || b == TypeFloat64:
		return TypeFloat64, true
	case a.IsFloat() || b.IsFloat():
		return TypeFloat32, true
	case a == TypeUInt64 || b == TypeUInt64:
		// No integer type holds both uint64 and negative values.
		if a.IsSigned() || b.IsSigned() {
			return TypeFloat64, true
		}
		return TypeUInt64, true
	case a.Width() == 8 || b.Width() == 8:
		return TypeInt64, true
	}
	return TypeInt32, true
}

// EnsureValue makes name a value field of count vt elements. A missing field
// is synthesized and tagged. An existing field must have the same byte
// length; its elements are coerced to vt in place. Reference fields fail
// with ErrStructuralMismatch.
func (c *Container) EnsureValue(name string, vt ValueType, count int, array bool) (FieldHeader, error) {
	if !vt.IsValue() {
		return FieldHeader{}, fmt.Errorf("%w: %s value field %q", ErrUnsupported, vt, name)
	}
	fd := sized(name, count, vt.Width(), false)
	if fd.err != nil {
		return FieldHeader{}, fd.err
	}
	i, ok := c.schema.index[name]
	if !ok {
		if err := c.Extend(fd); err != nil {
			return FieldHeader{}, err
		}
		i = c.schema.index[name]
		SetTag(c.tags(), i, vt, array)
		return c.FieldHeader(i)
	}
	cur := c.schema.fields[i]
	if cur.IsReference() {
		return FieldHeader{}, fmt.Errorf("%w: field %q is a reference field, written as %s", ErrStructuralMismatch, name, vt)
	}
	if cur.Length() != fd.Length() {
		return FieldHeader{}, fmt.Errorf("%w: field %q has %d bytes, needs %d", ErrWidthMismatch, name, cur.Length(), fd.Length())
	}
	if err := c.coerce(i, vt, !array && count == 1); err != nil {
		return FieldHeader{}, err
	}
	return c.FieldHeader(i)
}

// EnsureReference makes name a reference field of count slots. A missing
// field is synthesized with Empty slots; an existing value field fails with
// ErrStructuralMismatch.
func (c *Container) EnsureReference(name string, count int, array bool) (FieldHeader, error) {
	fd := sized(name, count, RefSize, true)
	if fd.err != nil {
		return FieldHeader{}, fd.err
	}
	i, ok := c.schema.index[name]
	if !ok {
		if err := c.Extend(fd); err != nil {
			return FieldHeader{}, err
		}
		i = c.schema.index[name]
		SetTag(c.tags(), i, TypeRef, array)
		return c.FieldHeader(i)
	}
	cur := c.schema.fields[i]
	if !cur.IsReference() {
		return FieldHeader{}, fmt.Errorf("%w: field %q is a value field, written as reference", ErrStructuralMismatch, name)
	}
	if cur.Length() != fd.Length() {
		return FieldHeader{}, fmt.Errorf("%w: field %q holds %d references, needs %d", ErrWidthMismatch, name, cur.Length()/RefSize, count)
	}
	if array {
		SetTag(c.tags(), i, TypeRef, true)
	}
	return c.FieldHeader(i)
}

// ValueField builds a value field request of count vt elements.
func ValueField(name string, vt ValueType, count int) FieldDescriptor {
	return sized(name, count, vt.Width(), false)
}
