package common

import (
	"math"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignUp(t *testing.T) {
	assert.Equal(t, 0, AlignUp(0, 8))
	assert.Equal(t, 8, AlignUp(1, 8))
	assert.Equal(t, 8, AlignUp(8, 8))
	assert.Equal(t, 16, AlignUp(9, 8))
	assert.Equal(t, 6, AlignUp(5, 2))
}

func TestNaturalAlign(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 1, 4: 4, 6: 2, 8: 8, 12: 4, 16: 8, 24: 8}
	for length, want := range cases {
		assert.Equal(t, want, NaturalAlign(length), "length %d", length)
	}
}

func TestCheckedMul(t *testing.T) {
	n, ok := CheckedMul(4, 8)
	require.True(t, ok)
	assert.Equal(t, 32, n)
	_, ok = CheckedMul(-1, 8)
	assert.False(t, ok)
	_, ok = CheckedMul(math.MaxInt32/4+1, 8)
	assert.False(t, ok)
	n, ok = CheckedMul(0, 8)
	require.True(t, ok)
	assert.Zero(t, n)
}

func TestVarUint(t *testing.T) {
	condition := func(x uint64) bool {
		b := WriteVarUintTo(nil, x)
		got, n := ReadVarUint(b)
		return got == x && n == len(b)
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
	_, n := ReadVarUint([]byte{0x80, 0x80})
	assert.Zero(t, n)
}

func TestVarInt(t *testing.T) {
	condition := func(x int64) bool {
		b := WriteVarInt(nil, x)
		got, n := ReadVarInt(b)
		return got == x && n == len(b)
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}

func TestOverlay(t *testing.T) {
	b := make([]byte, 16)
	u := Overlay[uint64](b)
	require.Len(t, u, 2)
	u[1] = 0x0102030405060708
	assert.Equal(t, byte(0x08), b[8])
	assert.True(t, Aligned(b, 8))
	assert.Nil(t, Overlay[uint32](nil))
}
