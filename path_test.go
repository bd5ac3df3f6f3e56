package slab

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain builds a -> b -> c through single reference fields named "next",
// each container also carrying an int32 "v".
func chain(t *testing.T) (*Runtime, []*Container) {
	t.Helper()
	rt := NewRuntime(RegistryOptions{})
	s, err := NewSchemaBuilder().Add(Type[int32]("v"), Reference("next")).Build(rt.Pool)
	require.NoError(t, err)
	nodes := []*Container{rt.New(s), rt.New(s), rt.New(s)}
	for i, n := range nodes {
		require.NoError(t, Write(n, "v", int32(i)))
		n.Version = uint64(100 + i)
	}
	require.NoError(t, nodes[0].SetObject("next", nodes[1]))
	require.NoError(t, nodes[1].SetObject("next", nodes[2]))
	return rt, nodes
}

func TestWritePathTouchesLeafOnly(t *testing.T) {
	_, nodes := chain(t)
	before := [][]byte{
		append([]byte(nil), nodes[0].Bytes()...),
		append([]byte(nil), nodes[1].Bytes()...),
	}
	require.NoError(t, WritePath(nodes[0], "next.next.v", int32(77)))

	v, err := Read[int32](nodes[2], "v")
	require.NoError(t, err)
	assert.Equal(t, int32(77), v)
	got, err := ReadPath[int32](nodes[0], "next.next.v")
	require.NoError(t, err)
	assert.Equal(t, int32(77), got)

	for i := range before {
		assert.Equal(t, before[i], nodes[i].Bytes(), "intermediate %d changed", i)
		assert.Equal(t, uint64(100+i), nodes[i].Version)
	}
	assert.Equal(t, uint64(102), nodes[2].Version)
}

func TestPathErrors(t *testing.T) {
	rt, nodes := chain(t)
	_, err := ReadPath[int32](nodes[0], "next.next.next.v")
	assert.ErrorIs(t, err, ErrInvalidPath, "null hop")
	_, err = ReadPath[int32](nodes[0], "v.next")
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.ErrorIs(t, err, ErrStructuralMismatch)
	_, err = ReadPath[int32](nodes[0], "next..v")
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = ReadPath[int32](nodes[0], "")
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = ReadPath[int32](nodes[0], "next.missing")
	assert.ErrorIs(t, err, ErrFieldNotFound)

	require.NoError(t, rt.Registry.Release(nodes[1]))
	_, err = ReadPath[int32](nodes[0], "next.v")
	assert.ErrorIs(t, err, ErrNotLive, "dangling child is reported, not guessed")
}

func TestGetObjectPath(t *testing.T) {
	_, nodes := chain(t)
	got, err := nodes[0].GetObjectPath("next.next")
	require.NoError(t, err)
	assert.Same(t, nodes[2], got)
	got, err = nodes[0].GetObjectPath("next.next.next")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSentinelsNeverResolve(t *testing.T) {
	_, nodes := chain(t)
	require.NoError(t, nodes[2].SetReference("next", Wild))
	got, err := nodes[2].GetObject("next")
	require.NoError(t, err)
	assert.Nil(t, got)
	r, err := nodes[2].GetReference("next")
	require.NoError(t, err)
	assert.True(t, r.IsNull())
}

func TestObjectArray(t *testing.T) {
	rt, c := newUnit(t)
	arr, err := c.GetObjectArray("children")
	require.NoError(t, err)
	require.Equal(t, 2, arr.Count())
	for _, s := range arr.All() {
		assert.True(t, s.IsNull)
	}
	child := rt.New(nil)
	require.NoError(t, arr.Set(0, child))
	got, err := arr.Get(0)
	require.NoError(t, err)
	assert.Same(t, child, got)
	none, err := arr.Get(1)
	require.NoError(t, err)
	assert.Nil(t, none)
	_, err = arr.Slot(2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	require.NoError(t, rt.Registry.Release(child))
	_, err = arr.Get(0)
	assert.ErrorIs(t, err, ErrNotLive)

	require.NoError(t, c.Extend(Type[int8]("extra")))
	_, err = arr.Slot(0)
	assert.ErrorIs(t, err, ErrNotLive, "view is stale after schema change")

	other := NewRuntime(RegistryOptions{}).New(nil)
	arr, err = c.GetObjectArray("children")
	require.NoError(t, err)
	assert.Error(t, arr.Set(1, other))
}

func TestWalkHandlesCycles(t *testing.T) {
	_, nodes := chain(t)
	require.NoError(t, nodes[2].SetObject("next", nodes[0]))
	var visited []uint64
	require.NoError(t, Walk(nodes[0], func(c *Container) error {
		visited = append(visited, c.ID())
		return nil
	}))
	assert.Equal(t, []uint64{nodes[0].ID(), nodes[1].ID(), nodes[2].ID()}, visited)

	stop := errors.New("stop")
	assert.ErrorIs(t, Walk(nodes[0], func(*Container) error { return stop }), stop)
}
