package slab

import (
	"encoding/binary"
	"math"
)

// load decodes one little-endian element of T from b.
func load[T Scalar](b []byte) T {
	var v T
	switch p := any(&v).(type) {
	case *bool:
		*p = b[0] != 0
	case *int8:
		*p = int8(b[0])
	case *uint8:
		*p = b[0]
	case *int16:
		*p = int16(binary.LittleEndian.Uint16(b))
	case *uint16:
		*p = binary.LittleEndian.Uint16(b)
	case *int32:
		*p = int32(binary.LittleEndian.Uint32(b))
	case *uint32:
		*p = binary.LittleEndian.Uint32(b)
	case *int64:
		*p = int64(binary.LittleEndian.Uint64(b))
	case *uint64:
		*p = binary.LittleEndian.Uint64(b)
	case *float32:
		*p = math.Float32frombits(binary.LittleEndian.Uint32(b))
	case *float64:
		*p = math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return v
}

// store encodes v little-endian into b.
func store[T Scalar](b []byte, v T) {
	switch x := any(v).(type) {
	case bool:
		b[0] = 0
		if x {
			b[0] = 1
		}
	case int8:
		b[0] = byte(x)
	case uint8:
		b[0] = x
	case int16:
		binary.LittleEndian.PutUint16(b, uint16(x))
	case uint16:
		binary.LittleEndian.PutUint16(b, x)
	case int32:
		binary.LittleEndian.PutUint32(b, uint32(x))
	case uint32:
		binary.LittleEndian.PutUint32(b, x)
	case int64:
		binary.LittleEndian.PutUint64(b, uint64(x))
	case uint64:
		binary.LittleEndian.PutUint64(b, x)
	case float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(x))
	case float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(x))
	}
}

type numClass uint8

const (
	numSigned numClass = iota
	numUnsigned
	numFloat
)

// number is a decoded element wide enough to convert between any two kinds.
type number struct {
	class numClass
	i     int64
	u     uint64
	f     float64
}

func loadNumber(b []byte, vt ValueType) number {
	switch vt {
	case TypeBool:
		return number{class: numUnsigned, u: uint64(b2u(b[0] != 0))}
	case TypeInt8:
		return number{class: numSigned, i: int64(load[int8](b))}
	case TypeUInt8, TypeChar:
		return number{class: numUnsigned, u: uint64(b[0])}
	case TypeInt16:
		return number{class: numSigned, i: int64(load[int16](b))}
	case TypeUInt16:
		return number{class: numUnsigned, u: uint64(load[uint16](b))}
	case TypeInt32:
		return number{class: numSigned, i: int64(load[int32](b))}
	case TypeUInt32:
		return number{class: numUnsigned, u: uint64(load[uint32](b))}
	case TypeInt64:
		return number{class: numSigned, i: load[int64](b)}
	case TypeUInt64, TypeRef:
		return number{class: numUnsigned, u: load[uint64](b)}
	case TypeFloat32:
		return number{class: numFloat, f: float64(load[float32](b))}
	case TypeFloat64:
		return number{class: numFloat, f: load[float64](b)}
	}
	return number{}
}

func storeNumber(b []byte, vt ValueType, n number) {
	switch vt {
	case TypeBool:
		store(b, n.bool())
	case TypeInt8:
		store(b, int8(n.int()))
	case TypeUInt8, TypeChar:
		store(b, uint8(n.uint()))
	case TypeInt16:
		store(b, int16(n.int()))
	case TypeUInt16:
		store(b, uint16(n.uint()))
	case TypeInt32:
		store(b, int32(n.int()))
	case TypeUInt32:
		store(b, uint32(n.uint()))
	case TypeInt64:
		store(b, n.int())
	case TypeUInt64, TypeRef:
		store(b, n.uint())
	case TypeFloat32:
		store(b, float32(n.float()))
	case TypeFloat64:
		store(b, n.float())
	}
}

func (n number) int() int64 {
	switch n.class {
	case numUnsigned:
		return int64(n.u)
	case numFloat:
		return int64(n.f)
	}
	return n.i
}

func (n number) uint() uint64 {
	switch n.class {
	case numSigned:
		return uint64(n.i)
	case numFloat:
		if n.f < 0 {
			return uint64(int64(n.f))
		}
		return uint64(n.f)
	}
	return n.u
}

func (n number) float() float64 {
	switch n.class {
	case numSigned:
		return float64(n.i)
	case numUnsigned:
		return float64(n.u)
	}
	return n.f
}

func (n number) bool() bool {
	switch n.class {
	case numSigned:
		return n.i != 0
	case numFloat:
		return n.f != 0
	}
	return n.u != 0
}

func b2u(v bool) uint8 {
	var u uint8
	if v {
		u = 1
	}
	return u
}

// convertElements rewrites count elements of b from one kind to another of
// the same width.
func convertElements(b []byte, from, to ValueType) {
	w := to.Width()
	for off := 0; off+w <= len(b); off += w {
		el := b[off : off+w]
		storeNumber(el, to, loadNumber(el, from))
	}
}
