package slab

import "errors"

var (
	ErrLengthOverflow     = errors.New("field length overflows 32-bit size")
	ErrDuplicateField     = errors.New("duplicate field name")
	ErrFieldNotFound      = errors.New("field not found")
	ErrStructuralMismatch = errors.New("reference/value structural mismatch")
	ErrWidthMismatch      = errors.New("field width does not match access type")
	ErrNotLive            = errors.New("container is not live")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrInvalidPath        = errors.New("invalid field path")
	ErrMisaligned         = errors.New("field data is misaligned for access type")
	ErrInvalidText        = errors.New("text does not parse as field value")
	ErrUnsupported        = errors.New("unsupported value type")
)
