package slab

import (
	"bytes"
	"fmt"
	"unsafe"

	"github.com/rawbytedev/slab/internal/common"
)

// Read returns the named scalar field as T, coercing a same-width field in
// place when its recorded type differs.
func Read[T Scalar](c *Container, name string) (T, error) {
	var zero T
	i, err := c.index(name)
	if err != nil {
		return zero, err
	}
	if err := c.coerce(i, TypeOf[T](), true); err != nil {
		return zero, err
	}
	return load[T](c.data(i)), nil
}

// TryRead is Read without the error detail.
func TryRead[T Scalar](c *Container, name string) (T, bool) {
	v, err := Read[T](c, name)
	return v, err == nil
}

// Write stores v into the named scalar field.
func Write[T Scalar](c *Container, name string, v T) error {
	i, err := c.index(name)
	if err != nil {
		return err
	}
	if err := c.coerce(i, TypeOf[T](), true); err != nil {
		return err
	}
	store(c.data(i), v)
	return nil
}

// GetArray returns the named inline value array as a []T aliasing the
// container buffer. The slice is valid until the schema changes or the
// container is released.
func GetArray[T Scalar](c *Container, name string) ([]T, error) {
	i, err := c.index(name)
	if err != nil {
		return nil, err
	}
	if err := c.coerce(i, TypeOf[T](), false); err != nil {
		return nil, err
	}
	return overlay[T](c.data(i), name)
}

// WriteArray copies vals into the named value array. len(vals) must equal
// the array's element count; arrays are never resized.
func WriteArray[T Scalar](c *Container, name string, vals []T) error {
	i, err := c.index(name)
	if err != nil {
		return err
	}
	vt := TypeOf[T]()
	if err := c.coerce(i, vt, false); err != nil {
		return err
	}
	b := c.data(i)
	w := vt.Width()
	if n := len(b) / w; n != len(vals) {
		return fmt.Errorf("%w: %q holds %d elements, got %d", ErrWidthMismatch, name, n, len(vals))
	}
	for j, v := range vals {
		store(b[j*w:], v)
	}
	return nil
}

// GetFieldData overlays a field's bytes as []T without touching its tag.
// ContainerReference reads reference fields; every other T reads value
// fields.
func GetFieldData[T Data](c *Container, h FieldHeader) ([]T, error) {
	i, err := c.check(h)
	if err != nil {
		return nil, err
	}
	var zero T
	vt := typeOfAny(zero)
	fd := c.schema.fields[i]
	if fd.IsReference() != (vt == TypeRef) {
		return nil, fmt.Errorf("%w: field %q is a %s field, overlaid as %s", ErrStructuralMismatch, fd.name, kindWord(fd), vt)
	}
	if fd.Length()%vt.Width() != 0 {
		return nil, fmt.Errorf("%w: field %q has %d bytes, overlaid as %s", ErrWidthMismatch, fd.name, fd.Length(), vt)
	}
	return overlay[T](c.data(i), fd.name)
}

func overlay[T any](b []byte, name string) ([]T, error) {
	var zero T
	if !common.Aligned(b, unsafe.Alignof(zero)) {
		return nil, fmt.Errorf("%w: %q", ErrMisaligned, name)
	}
	return common.Overlay[T](b), nil
}

// ReadString returns a char array field as text, up to the first NUL.
func ReadString(c *Container, name string) (string, error) {
	i, err := c.index(name)
	if err != nil {
		return "", err
	}
	if err := c.coerce(i, TypeChar, false); err != nil {
		return "", err
	}
	b := c.data(i)
	if n := bytes.IndexByte(b, 0); n >= 0 {
		b = b[:n]
	}
	return string(b), nil
}

// WriteString stores s into a char array field, zero-filling the tail.
func WriteString(c *Container, name, s string) error {
	i, err := c.index(name)
	if err != nil {
		return err
	}
	if err := c.coerce(i, TypeChar, false); err != nil {
		return err
	}
	b := c.data(i)
	if len(s) > len(b) {
		return fmt.Errorf("%w: %q holds %d bytes, got %d", ErrWidthMismatch, name, len(b), len(s))
	}
	clear(b[copy(b, s):])
	return nil
}
