package slab

// ValueType is the live kind of the bytes stored in a field.
type ValueType uint8

const (
	TypeUnknown ValueType = iota
	TypeBool
	TypeInt8
	TypeUInt8
	TypeInt16
	TypeUInt16
	TypeInt32
	TypeUInt32
	TypeInt64
	TypeUInt64
	TypeFloat32
	TypeFloat64
	TypeChar // one UTF-8 code unit; Char arrays render as text
	TypeRef
)

var typeNames = [...]string{
	TypeUnknown: "unknown",
	TypeBool:    "bool",
	TypeInt8:    "int8",
	TypeUInt8:   "uint8",
	TypeInt16:   "int16",
	TypeUInt16:  "uint16",
	TypeInt32:   "int32",
	TypeUInt32:  "uint32",
	TypeInt64:   "int64",
	TypeUInt64:  "uint64",
	TypeFloat32: "float32",
	TypeFloat64: "float64",
	TypeChar:    "char",
	TypeRef:     "ref",
}

var typeWidths = [...]int{
	TypeBool: 1, TypeInt8: 1, TypeUInt8: 1, TypeChar: 1,
	TypeInt16: 2, TypeUInt16: 2,
	TypeInt32: 4, TypeUInt32: 4, TypeFloat32: 4,
	TypeInt64: 8, TypeUInt64: 8, TypeFloat64: 8, TypeRef: 8,
}

func (t ValueType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "invalid"
}

// Width is the byte width of one element, 0 for TypeUnknown.
func (t ValueType) Width() int {
	if int(t) < len(typeWidths) {
		return typeWidths[t]
	}
	return 0
}

func (t ValueType) IsSigned() bool {
	return t == TypeInt8 || t == TypeInt16 || t == TypeInt32 || t == TypeInt64
}

func (t ValueType) IsFloat() bool { return t == TypeFloat32 || t == TypeFloat64 }

// IsValue reports whether t is a known non-reference kind.
func (t ValueType) IsValue() bool { return t > TypeUnknown && t < TypeRef }

// ParseValueType is the inverse of String.
func ParseValueType(s string) (ValueType, bool) {
	for i, n := range typeNames {
		if n == s {
			return ValueType(i), true
		}
	}
	return TypeUnknown, false
}

// Tag header layout: one byte per field, low 7 bits the ValueType, high bit
// the array flag. The accessors below work on a borrowed header slice.
const (
	tagTypeMask  = 0x7F
	tagArrayFlag = 0x80
)

// TagType returns the ValueType recorded for field i.
func TagType(hdr []byte, i int) ValueType { return ValueType(hdr[i] & tagTypeMask) }

// TagIsArray reports the array flag for field i.
func TagIsArray(hdr []byte, i int) bool { return hdr[i]&tagArrayFlag != 0 }

// SetTag records vt and the array flag for field i.
func SetTag(hdr []byte, i int, vt ValueType, array bool) {
	hdr[i] = byte(vt)&tagTypeMask | arrayBit(array)
}

// SetTagType replaces the type bits of field i, keeping its array flag.
func SetTagType(hdr []byte, i int, vt ValueType) {
	hdr[i] = hdr[i]&tagArrayFlag | byte(vt)&tagTypeMask
}

func arrayBit(array bool) byte {
	var b byte
	if array {
		b = tagArrayFlag
	}
	return b
}

// Scalar is the set of Go types that map onto a value field element.
type Scalar interface {
	bool | int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64
}

// Data is the set of element types GetFieldData can overlay.
type Data interface {
	Scalar | ContainerReference
}

// TypeOf returns the ValueType a Scalar maps to.
func TypeOf[T Scalar]() ValueType {
	var zero T
	return typeOfAny(any(zero))
}

func typeOfAny(v any) ValueType {
	switch v.(type) {
	case bool:
		return TypeBool
	case int8:
		return TypeInt8
	case uint8:
		return TypeUInt8
	case int16:
		return TypeInt16
	case uint16:
		return TypeUInt16
	case int32:
		return TypeInt32
	case uint32:
		return TypeUInt32
	case int64:
		return TypeInt64
	case uint64:
		return TypeUInt64
	case float32:
		return TypeFloat32
	case float64:
		return TypeFloat64
	case ContainerReference:
		return TypeRef
	}
	return TypeUnknown
}
