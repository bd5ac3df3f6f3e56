package slab

import (
	"fmt"

	"github.com/rawbytedev/slab/internal/common"
)

// RefSize is the byte width of one child ID.
const RefSize = 8

// FieldDescriptor names one field, its encoded length and its offset in the
// container buffer. A negative encoded length marks a reference field whose
// magnitude is the byte length. Descriptors are values; the With* methods
// return repositioned copies.
type FieldDescriptor struct {
	name   string
	length int32
	offset int32
	err    error
}

// Type declares a single value field of T.
func Type[T Scalar](name string) FieldDescriptor {
	return FieldDescriptor{name: name, length: int32(TypeOf[T]().Width())}
}

// ArrayOf declares an inline array of count T values.
func ArrayOf[T Scalar](name string, count int) FieldDescriptor {
	return sized(name, count, TypeOf[T]().Width(), false)
}

// Reference declares a single child reference.
func Reference(name string) FieldDescriptor {
	return FieldDescriptor{name: name, length: -RefSize}
}

// ReferenceArray declares count child references.
func ReferenceArray(name string, count int) FieldDescriptor {
	return sized(name, count, RefSize, true)
}

// Fixed declares an untyped value field of length bytes.
func Fixed(name string, length int) FieldDescriptor {
	return sized(name, length, 1, false)
}

// NewFieldDescriptor builds a descriptor from its raw parts, as read back by codecs.
func NewFieldDescriptor(name string, encodedLength, offset int) (FieldDescriptor, error) {
	fd := FieldDescriptor{name: name, length: int32(encodedLength), offset: int32(offset)}
	switch {
	case encodedLength < -common.MaxFieldBytes || encodedLength > common.MaxFieldBytes:
		return fd, fmt.Errorf("%w: field %q", ErrLengthOverflow, name)
	case offset < 0 || offset > common.MaxFieldBytes:
		return fd, fmt.Errorf("%w: field %q offset %d", ErrLengthOverflow, name, offset)
	case encodedLength < 0 && -encodedLength%RefSize != 0:
		return fd, fmt.Errorf("%w: reference field %q length %d", ErrWidthMismatch, name, -encodedLength)
	}
	return fd, nil
}

func sized(name string, count, width int, ref bool) FieldDescriptor {
	n, ok := common.CheckedMul(count, width)
	if !ok {
		return FieldDescriptor{name: name, err: fmt.Errorf("%w: field %q count %d x %d bytes", ErrLengthOverflow, name, count, width)}
	}
	if ref {
		return FieldDescriptor{name: name, length: -int32(n)}
	}
	return FieldDescriptor{name: name, length: int32(n)}
}

func (f FieldDescriptor) Name() string { return f.name }

// EncodedLength is the signed length: negative for references.
func (f FieldDescriptor) EncodedLength() int { return int(f.length) }

// Length is the field's byte length.
func (f FieldDescriptor) Length() int {
	if f.length < 0 {
		return int(-f.length)
	}
	return int(f.length)
}

func (f FieldDescriptor) Offset() int { return int(f.offset) }

func (f FieldDescriptor) End() int { return int(f.offset) + f.Length() }

func (f FieldDescriptor) IsReference() bool { return f.length < 0 }

// Err reports a construction error (length overflow) carried until build time.
func (f FieldDescriptor) Err() error { return f.err }

// WithOffset returns a copy placed at offset.
func (f FieldDescriptor) WithOffset(offset int) FieldDescriptor {
	f.offset = int32(offset)
	return f
}

// WithBaseInfo returns a copy shifted by base, turning a data-relative offset
// into an absolute buffer offset.
func (f FieldDescriptor) WithBaseInfo(base int) FieldDescriptor {
	f.offset += int32(base)
	return f
}

// WithName returns a renamed copy.
func (f FieldDescriptor) WithName(name string) FieldDescriptor {
	f.name = name
	return f
}

// Equal compares name, encoded length and offset.
func (f FieldDescriptor) Equal(o FieldDescriptor) bool {
	return f.name == o.name && f.length == o.length && f.offset == o.offset
}

func (f FieldDescriptor) String() string {
	if f.IsReference() {
		return fmt.Sprintf("%s:ref[%d]@%d", f.name, f.Length()/RefSize, f.offset)
	}
	return fmt.Sprintf("%s:%dB@%d", f.name, f.length, f.offset)
}

// alignment is the boundary a field is placed on.
func (f FieldDescriptor) alignment() int {
	if f.IsReference() {
		return RefSize
	}
	return common.NaturalAlign(f.Length())
}
