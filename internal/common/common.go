package common

import (
	"math"
	"unsafe"
)

// MaxFieldBytes bounds a single field's byte length so it fits a signed 32-bit size.
const MaxFieldBytes = math.MaxInt32

// AlignUp rounds n up to the next multiple of align (a power of two).
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// NaturalAlign returns the largest power of two <= 8 that divides length.
// Zero-length fields align to 1.
func NaturalAlign(length int) int {
	if length <= 0 {
		return 1
	}
	a := length & -length
	if a > 8 {
		return 8
	}
	return a
}

// CheckedMul multiplies count by width and reports whether the product fits MaxFieldBytes.
func CheckedMul(count, width int) (int, bool) {
	if count < 0 || width < 0 {
		return 0, false
	}
	if count != 0 && width > MaxFieldBytes/count {
		return 0, false
	}
	return count * width, true
}

// WriteVarUintTo appends varint-encoded x to dst using a small stack scratch.
func WriteVarUintTo(dst []byte, x uint64) []byte {
	var scratch [10]byte
	i := 0
	for x >= 0x80 {
		scratch[i] = byte(x) | 0x80
		x >>= 7
		i++
	}
	scratch[i] = byte(x)
	i++
	return append(dst, scratch[:i]...)
}

// WriteVarInt appends a zigzag varint.
func WriteVarInt(dst []byte, x int64) []byte {
	return WriteVarUintTo(dst, uint64(x<<1)^uint64(x>>63))
}

// ReadVarUint decodes a varint from b returning value and bytes consumed.
// n == 0 means b was truncated or the varint overflowed.
func ReadVarUint(b []byte) (uint64, int) {
	var x uint64
	var s uint
	for i, c := range b {
		if i == 10 {
			return 0, 0
		}
		x |= uint64(c&0x7F) << s
		if c&0x80 == 0 {
			return x, i + 1
		}
		s += 7
	}
	return 0, 0
}

// ReadVarInt decodes a zigzag varint.
func ReadVarInt(b []byte) (int64, int) {
	u, n := ReadVarUint(b)
	return int64(u>>1) ^ -int64(u&1), n
}

// Aligned reports whether b's first byte sits on an align boundary.
func Aligned(b []byte, align uintptr) bool {
	if len(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&b[0]))%align == 0
}

// Overlay aliases b as a slice of T without copying. len(b) must be a
// multiple of sizeof(T) and b must be aligned for T.
func Overlay[T any](b []byte) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if len(b) == 0 || size == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), len(b)/size)
}
