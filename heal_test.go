package slab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferNumber(t *testing.T) {
	cases := []struct {
		text string
		want ValueType
	}{
		{"0", TypeInt32},
		{"-2147483648", TypeInt32},
		{"2147483648", TypeInt64},
		{"-9223372036854775808", TypeInt64},
		{"18446744073709551615", TypeUInt64},
		{"1.5", TypeFloat32},
		{"74.0", TypeFloat32},
		{"1e3", TypeFloat32},
		{"-2.5E-3", TypeFloat32},
		{"1e300", TypeFloat64},
	}
	for _, tc := range cases {
		got, err := InferNumber(tc.text)
		require.NoError(t, err, tc.text)
		assert.Equal(t, tc.want, got, tc.text)
	}
	for _, bad := range []string{"", "abc", "1.2.3", "18446744073709551616"} {
		_, err := InferNumber(bad)
		assert.ErrorIs(t, err, ErrInvalidText, bad)
	}
}

func TestUnifyElements(t *testing.T) {
	got, err := UnifyElements([]ValueType{TypeInt32, TypeFloat32, TypeInt32})
	require.NoError(t, err)
	assert.Equal(t, TypeFloat32, got)

	got, err = UnifyElements([]ValueType{TypeInt64, TypeFloat32, TypeFloat64})
	require.NoError(t, err)
	assert.Equal(t, TypeFloat64, got)

	got, err = UnifyElements([]ValueType{TypeInt32, TypeInt64})
	require.NoError(t, err)
	assert.Equal(t, TypeInt64, got)

	got, err = UnifyElements([]ValueType{TypeUInt64, TypeUInt64})
	require.NoError(t, err)
	assert.Equal(t, TypeUInt64, got)

	got, err = UnifyElements([]ValueType{TypeInt32, TypeUInt64})
	require.NoError(t, err)
	assert.Equal(t, TypeFloat64, got, "signed and uint64 share no integer type")

	got, err = UnifyElements([]ValueType{TypeUInt64, TypeInt64})
	require.NoError(t, err)
	assert.Equal(t, TypeFloat64, got)

	got, err = UnifyElements([]ValueType{TypeUInt32, TypeUInt64})
	require.NoError(t, err)
	assert.Equal(t, TypeUInt64, got)

	got, err = UnifyElements([]ValueType{TypeBool, TypeBool})
	require.NoError(t, err)
	assert.Equal(t, TypeBool, got)

	got, err = UnifyElements(nil)
	require.NoError(t, err)
	assert.Equal(t, TypeUnknown, got)

	_, err = UnifyElements([]ValueType{TypeBool, TypeInt32})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestEnsureValueSynthesizes(t *testing.T) {
	rt := NewRuntime(RegistryOptions{})
	c := rt.New(nil)
	h, err := c.EnsureValue("v", TypeInt32, 1, false)
	require.NoError(t, err)
	assert.Equal(t, TypeInt32, h.Type())
	assert.False(t, h.IsArray())
	assert.Equal(t, 4, h.Length())

	h, err = c.EnsureValue("name", TypeChar, 5, true)
	require.NoError(t, err)
	assert.True(t, h.IsArray())
	assert.Equal(t, 5, h.Count())
	require.NoError(t, WriteString(c, "name", "slab"))
	s, err := ReadString(c, "name")
	require.NoError(t, err)
	assert.Equal(t, "slab", s)

	// Same field, same bytes, new element type: converted in place.
	require.NoError(t, Write(c, "v", int32(42)))
	h, err = c.EnsureValue("v", TypeFloat32, 1, false)
	require.NoError(t, err)
	assert.Equal(t, TypeFloat32, h.Type())
	f, err := Read[float32](c, "v")
	require.NoError(t, err)
	assert.Equal(t, float32(42), f)
}

func TestEnsureValueRejects(t *testing.T) {
	rt := NewRuntime(RegistryOptions{})
	c := rt.New(nil)
	_, err := c.EnsureReference("child", 1, false)
	require.NoError(t, err)

	_, err = c.EnsureValue("child", TypeInt64, 1, false)
	assert.ErrorIs(t, err, ErrStructuralMismatch)

	_, err = c.EnsureValue("v", TypeInt16, 1, false)
	require.NoError(t, err)
	_, err = c.EnsureValue("v", TypeInt32, 1, false)
	assert.ErrorIs(t, err, ErrWidthMismatch)
	_, err = c.EnsureReference("v", 1, false)
	assert.ErrorIs(t, err, ErrStructuralMismatch)

	_, err = c.EnsureValue("x", TypeRef, 1, false)
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = c.EnsureValue("x", TypeInt32, -1, false)
	assert.ErrorIs(t, err, ErrLengthOverflow)
}

func TestEnsureReference(t *testing.T) {
	rt := NewRuntime(RegistryOptions{})
	c := rt.New(nil)
	h, err := c.EnsureReference("kids", 3, true)
	require.NoError(t, err)
	assert.True(t, h.IsRef())
	assert.True(t, h.IsArray())
	assert.Equal(t, 3, h.Count())

	arr, err := c.GetObjectArray("kids")
	require.NoError(t, err)
	for _, s := range arr.All() {
		assert.True(t, s.IsNull)
	}
	_, err = c.EnsureReference("kids", 3, true)
	require.NoError(t, err)
	_, err = c.EnsureReference("kids", 2, true)
	assert.ErrorIs(t, err, ErrWidthMismatch)
}
